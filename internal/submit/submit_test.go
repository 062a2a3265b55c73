package submit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/remote"
	"github.com/evanofslack/adsmutate/internal/remote/remotetest"
)

// countingSource records how often the connector is consulted.
type countingSource struct {
	calls  int
	client remote.Client
	err    error
}

func (c *countingSource) Client(context.Context) (remote.Client, error) {
	c.calls++
	return c.client, c.err
}

func statusBatch(t *testing.T, n int) *mutate.Batch {
	t.Helper()
	p := mutate.NewPlan("42")
	for i := 0; i < n; i++ {
		name := mutate.ResourceName("42", "campaigns", fmt.Sprint(i+1))
		require.NoError(t, p.UpdateStatus(mutate.ResourceCampaign, mutate.Name(name), "PAUSED"))
	}
	b, err := p.Batch()
	require.NoError(t, err)
	return b
}

func TestSubmitRejectsOversizedBatchWithoutNetwork(t *testing.T) {
	fake := &remotetest.Client{}
	src := &countingSource{client: fake}
	s := New(src, metrics.New(false))

	_, err := s.Submit(context.Background(), statusBatch(t, 101), Options{Limit: 100})
	require.Error(t, err)
	assert.Equal(t, apierr.KindLocalValidation, apierr.KindOf(err))
	assert.Equal(t, 0, src.calls)
	assert.Empty(t, fake.MutateCalls())
}

func TestSubmitLimitBounds(t *testing.T) {
	src := &countingSource{client: &remotetest.Client{}}
	s := New(src, metrics.New(false))

	_, err := s.Submit(context.Background(), statusBatch(t, 1), Options{Limit: 0})
	assert.True(t, apierr.IsKind(err, apierr.KindLocalValidation))

	_, err = s.Submit(context.Background(), &mutate.Batch{CustomerID: "1"}, Options{Limit: 10})
	assert.True(t, apierr.IsKind(err, apierr.KindLocalValidation))

	_, err = s.Submit(context.Background(), nil, Options{Limit: 10})
	assert.True(t, apierr.IsKind(err, apierr.KindLocalValidation))

	res, err := s.Submit(context.Background(), statusBatch(t, 100), Options{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 100)
	assert.Equal(t, 1, src.calls)
}

func TestSubmitPreservesPositions(t *testing.T) {
	fake := &remotetest.Client{}
	s := New(fake.Connector(), metrics.New(false))

	for _, n := range []int{1, 2, 7, 33} {
		b := statusBatch(t, n)
		res, err := s.Submit(context.Background(), b, Options{Limit: 100})
		require.NoError(t, err)
		require.Len(t, res.Entries, n)
		for i, e := range res.Entries {
			assert.Equal(t, i, e.Index)
			assert.Equal(t, b.Operations[i].Name, e.ResourceName)
			assert.True(t, e.OK())
		}
		assert.False(t, res.PartialFailure)
		assert.NoError(t, res.Err())
	}
}

func TestSubmitPartialFailureOneOfFive(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(_ context.Context, cid string, ops []mutate.Operation, opts remote.MutateOptions) (remote.MutateResponse, error) {
			resp := remotetest.Echo(cid, ops)
			resp.Results[2].ResourceName = ""
			resp.PartialFailure = []apierr.OperationFailure{{Index: 2, Code: "CRITERION_ERROR.KEYWORD_HAS_INVALID_CHARS", Message: "invalid characters"}}
			return resp, nil
		},
	}
	s := New(fake.Connector(), metrics.New(false))

	p := mutate.NewPlan("42")
	for i := 0; i < 5; i++ {
		_, err := p.CreateKeyword("", mutate.KeywordSpec{AdGroup: mutate.Name("customers/42/adGroups/7"), Text: fmt.Sprintf("kw %d", i), MatchType: "EXACT"})
		require.NoError(t, err)
	}
	b, err := p.Batch()
	require.NoError(t, err)

	res, err := s.Submit(context.Background(), b, Options{Limit: 5000, PartialFailure: true})
	require.NoError(t, err)
	assert.True(t, res.PartialFailure)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 4, res.Succeeded())
	assert.Equal(t, 1, res.Failed())
	assert.False(t, res.Entries[2].OK())
	assert.Equal(t, "invalid characters", res.Entries[2].Err.Message)
	assert.Equal(t, apierr.KindPartialFailure, apierr.KindOf(res.Err()))
	assert.True(t, fake.MutateCalls()[0].Options.PartialFailure)
}

func TestSubmitWholeBatchRejected(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(context.Context, string, []mutate.Operation, remote.MutateOptions) (remote.MutateResponse, error) {
			return remote.MutateResponse{}, errors.New("connection reset by peer")
		},
	}
	s := New(fake.Connector(), metrics.New(false))

	_, err := s.Submit(context.Background(), statusBatch(t, 3), Options{Limit: 100})
	require.Error(t, err)
	assert.Equal(t, apierr.KindRemoteBatch, apierr.KindOf(err))
	assert.Len(t, fake.MutateCalls(), 1, "no automatic retry")
}

func TestSubmitResultCountMismatch(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(_ context.Context, cid string, ops []mutate.Operation, _ remote.MutateOptions) (remote.MutateResponse, error) {
			return remotetest.Echo(cid, ops[:1]), nil
		},
	}
	s := New(fake.Connector(), metrics.New(false))
	_, err := s.Submit(context.Background(), statusBatch(t, 2), Options{Limit: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 results, got 1")
}

func TestSubmitValidateOnly(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(context.Context, string, []mutate.Operation, remote.MutateOptions) (remote.MutateResponse, error) {
			return remote.MutateResponse{}, nil
		},
	}
	s := New(fake.Connector(), metrics.New(false))
	res, err := s.Submit(context.Background(), statusBatch(t, 3), Options{Limit: 100, ValidateOnly: true})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, 3, res.Succeeded())
}

func TestSubmitConnectorFailure(t *testing.T) {
	src := &countingSource{err: apierr.ConnectorInit(3, errors.New("invalid_grant"))}
	m := metrics.New(true)
	s := New(src, m)
	_, err := s.Submit(context.Background(), statusBatch(t, 1), Options{Limit: 100})
	assert.Equal(t, apierr.KindConnectorInit, apierr.KindOf(err))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `adsmutate_batch_submissions_total{status="failure"} 1`)
}

func TestSubmitUnlocatedFailuresAreReported(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(_ context.Context, cid string, ops []mutate.Operation, _ remote.MutateOptions) (remote.MutateResponse, error) {
			resp := remotetest.Echo(cid, ops)
			resp.PartialFailure = []apierr.OperationFailure{{Index: -1, Code: "INTERNAL_ERROR", Message: "no field path"}}
			return resp, nil
		},
	}
	s := New(fake.Connector(), metrics.New(false))

	res, err := s.Submit(context.Background(), statusBatch(t, 2), Options{Limit: 100, PartialFailure: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded())
	assert.True(t, res.PartialFailure)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "INTERNAL_ERROR", res.Failures[0].Code)
	assert.Equal(t, apierr.KindPartialFailure, apierr.KindOf(res.Err()))
}

func TestSubmitUnlocatedFailureFillsNamelessEntry(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(_ context.Context, cid string, ops []mutate.Operation, _ remote.MutateOptions) (remote.MutateResponse, error) {
			resp := remotetest.Echo(cid, ops)
			resp.Results[1].ResourceName = ""
			resp.PartialFailure = []apierr.OperationFailure{{Index: -1, Code: "RESOURCE_NOT_FOUND", Message: "campaign not found"}}
			return resp, nil
		},
	}
	s := New(fake.Connector(), metrics.New(false))

	res, err := s.Submit(context.Background(), statusBatch(t, 2), Options{Limit: 100, PartialFailure: true})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1, "consumed failure is not reported twice")
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, "RESOURCE_NOT_FOUND", res.Entries[1].Err.Code)
}

func TestSubmitRejectsForwardReferenceBeforeNetwork(t *testing.T) {
	src := &countingSource{client: &remotetest.Client{}}
	s := New(src, metrics.New(false))

	p := mutate.NewPlan("1")
	_, err := p.CreateBudget("budget", mutate.BudgetSpec{Name: "b", AmountMicros: 1})
	require.NoError(t, err)
	_, err = p.CreateCampaign("campaign", mutate.CampaignSpec{Name: "c", Budget: mutate.Role("budget"), ChannelType: "SEARCH"})
	require.NoError(t, err)
	ops := p.Operations()
	ops[0], ops[1] = ops[1], ops[0]

	_, err = s.Submit(context.Background(), &mutate.Batch{CustomerID: "1", Operations: ops, Refs: p.Refs()}, Options{Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forward reference")
	assert.Equal(t, 0, src.calls)
}
