package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/config"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
)

func newTestREST(t *testing.T, h http.HandlerFunc) *REST {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.API{
		Endpoint:        srv.URL,
		Version:         "v17",
		DeveloperToken:  "dev-token",
		LoginCustomerID: "111-222-3333",
	}
	return newREST(cfg, srv.Client(), metrics.New(false))
}

func TestFieldMask(t *testing.T) {
	assert.Equal(t, "status", fieldMask([]string{"status"}))
	assert.Equal(t, "amountMicros,name", fieldMask([]string{"amount_micros", "name"}))
	assert.Equal(t, "networkSettings.targetGoogleSearch", fieldMask([]string{"network_settings.target_google_search"}))
}

func TestEncodeOperations(t *testing.T) {
	p := mutate.NewPlan("1")
	_, err := p.CreateLabel("label", mutate.LabelSpec{Name: "promo"})
	require.NoError(t, err)
	amount := int64(2_500_000)
	require.NoError(t, p.UpdateBudget(mutate.Name("customers/1/campaignBudgets/9"), mutate.BudgetUpdate{AmountMicros: &amount}))
	require.NoError(t, p.Remove(mutate.ResourceAdGroup, mutate.Name("customers/1/adGroups/4")))

	encoded, err := encodeOperations(p.Operations())
	require.NoError(t, err)
	raw, err := json.Marshal(encoded)
	require.NoError(t, err)

	var got []map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 3)

	create := got[0]["labelOperation"]["create"].(map[string]any)
	assert.Equal(t, "customers/1/labels/-1", create["resourceName"])
	assert.Equal(t, "promo", create["name"])

	update := got[1]["campaignBudgetOperation"]
	assert.Equal(t, "amountMicros", update["updateMask"])
	assert.Equal(t, "2500000", update["update"].(map[string]any)["amountMicros"], "int64 fields travel as strings")

	assert.Equal(t, "customers/1/adGroups/4", got[2]["adGroupOperation"]["remove"])
}

func TestMutate(t *testing.T) {
	var body map[string]any
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/v17/customers/123/googleAds:mutate", req.URL.Path)
		assert.Equal(t, "dev-token", req.Header.Get("developer-token"))
		assert.Equal(t, "1112223333", req.Header.Get("login-customer-id"))
		raw, _ := io.ReadAll(req.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		io.WriteString(w, `{"mutateOperationResponses":[
			{"campaignBudgetResult":{"resourceName":"customers/123/campaignBudgets/55"}},
			{"campaignResult":{"resourceName":"customers/123/campaigns/66"}}
		]}`)
	})

	p := mutate.NewPlan("123")
	_, err := p.CreateBudget("budget", mutate.BudgetSpec{Name: "b", AmountMicros: 1_000_000})
	require.NoError(t, err)
	_, err = p.CreateCampaign("campaign", mutate.CampaignSpec{Name: "c", Budget: mutate.Role("budget"), ChannelType: "SEARCH"})
	require.NoError(t, err)

	resp, err := r.Mutate(context.Background(), "123", p.Operations(), MutateOptions{PartialFailure: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "customers/123/campaigns/66", resp.Results[1].ResourceName)
	assert.Empty(t, resp.PartialFailure)
	assert.Equal(t, true, body["partialFailure"])
	assert.Len(t, body["mutateOperations"], 2)
}

func TestMutatePartialFailure(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{
			"partialFailureError": {
				"code": 3,
				"message": "Multiple errors in 'details'.",
				"details": [{"errors": [{
					"errorCode": {"criterionError": "KEYWORD_TEXT_TOO_LONG"},
					"message": "too long",
					"location": {"fieldPathElements": [{"fieldName": "mutate_operations", "index": 1}]}
				}]}]
			},
			"mutateOperationResponses": [
				{"adGroupCriterionResult": {"resourceName": "customers/1/adGroupCriteria/2~3"}},
				{}
			]
		}`)
	})

	ops := []mutate.Operation{
		{Kind: mutate.KindRemove, Type: mutate.ResourceCriterion, Name: "customers/1/adGroupCriteria/2~3"},
		{Kind: mutate.KindRemove, Type: mutate.ResourceCriterion, Name: "customers/1/adGroupCriteria/2~4"},
	}
	resp, err := r.Mutate(context.Background(), "1", ops, MutateOptions{PartialFailure: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[1].ResourceName)
	require.Len(t, resp.PartialFailure, 1)
	assert.Equal(t, 1, resp.PartialFailure[0].Index)
	assert.Equal(t, "CRITERION_ERROR.KEYWORD_TEXT_TOO_LONG", resp.PartialFailure[0].Code)
}

func TestMutateRejected(t *testing.T) {
	var calls atomic.Int32
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"Request contains an invalid argument.","status":"INVALID_ARGUMENT",
			"details":[{"errors":[{"errorCode":{"quotaError":"RESOURCE_EXHAUSTED"},"message":"quota"}]}]}}`)
	})

	ops := []mutate.Operation{{Kind: mutate.KindRemove, Type: mutate.ResourceCampaign, Name: "customers/1/campaigns/2"}}
	_, err := r.Mutate(context.Background(), "1", ops, MutateOptions{})
	require.Error(t, err)
	assert.Equal(t, apierr.KindRemoteBatch, apierr.KindOf(err))
	cat, _ := apierr.Classify(err)
	assert.Equal(t, apierr.CategoryQuota, cat)
	assert.EqualValues(t, 1, calls.Load(), "mutate must not be retried")
}

func TestMutateServerErrorWithoutEnvelope(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	})
	ops := []mutate.Operation{{Kind: mutate.KindRemove, Type: mutate.ResourceCampaign, Name: "customers/1/campaigns/2"}}
	_, err := r.Mutate(context.Background(), "1", ops, MutateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestSearchPaginatesAndRetries(t *testing.T) {
	var calls atomic.Int32
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var in searchRequest
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		assert.Equal(t, "SELECT campaign.id FROM campaign", in.Query)
		if in.PageToken == "" {
			io.WriteString(w, `{"results":[{"campaign":{"id":"1"}}],"nextPageToken":"p2"}`)
			return
		}
		io.WriteString(w, `{"results":[{"campaign":{"id":"2"}}]}`)
	})

	rows, err := r.Search(context.Background(), "1", "SELECT campaign.id FROM campaign")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var row struct {
		Campaign struct {
			ID string `json:"id"`
		} `json:"campaign"`
	}
	require.NoError(t, rows[1].Decode(&row))
	assert.Equal(t, "2", row.Campaign.ID)
	assert.EqualValues(t, 3, calls.Load())
}
