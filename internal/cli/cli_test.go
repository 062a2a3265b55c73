package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/state"
	"github.com/evanofslack/adsmutate/internal/workflow"
)

type fakeDispatcher struct {
	name    string
	payload []byte
	res     workflow.Summarizer
	err     error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, payload []byte) (workflow.Summarizer, error) {
	f.name = name
	f.payload = payload
	return f.res, f.err
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestHandlerDispatch(t *testing.T) {
	d := &fakeDispatcher{res: workflow.LabelResult{LabelID: "7", CampaignsLabeled: 2}}
	srv := httptest.NewServer(newHandler(d, metrics.New(true)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/workflows/create_label", "application/json", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "create_label", d.name)
	assert.JSONEq(t, `{"name":"x"}`, string(d.payload))

	got := decode(t, buf.Bytes())
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "label 7 applied to 2 campaigns and 0 ad groups", got["message"])
	assert.Equal(t, "7", got["data"].(map[string]any)["new_label_id"])
}

func TestHandlerFailures(t *testing.T) {
	partial := workflow.AddKeywordsResult{Added: 0, Failed: 1, Status: workflow.StatusFailed}
	tests := []struct {
		name       string
		err        error
		res        workflow.Summarizer
		wantCode   int
		wantKind   string
		wantResult bool
	}{
		{
			name:     "validation",
			err:      apierr.Validationf("add keywords", "keywords list cannot be empty"),
			res:      workflow.AddKeywordsResult{},
			wantCode: http.StatusBadRequest,
			wantKind: "local_validation",
		},
		{
			name:       "partial",
			err:        apierr.Partial("mutate", []apierr.OperationFailure{{Index: 0, Message: "bad keyword"}}),
			res:        partial,
			wantCode:   http.StatusMultiStatus,
			wantKind:   "partial_failure",
			wantResult: true,
		},
		{
			name:       "stage abort",
			err:        apierr.StageAbort("keywords", apierr.RemoteBatch("mutate", "rejected", nil)),
			res:        workflow.CloneCampaignResult{CampaignID: "1001"},
			wantCode:   http.StatusMultiStatus,
			wantKind:   "stage_abort",
			wantResult: true,
		},
		{
			name:     "connector",
			err:      apierr.ConnectorInit(3, fmt.Errorf("token refresh failed")),
			wantCode: http.StatusServiceUnavailable,
			wantKind: "connector_init",
		},
		{
			name:     "remote batch",
			err:      apierr.RemoteBatch("mutate", "rejected", nil),
			res:      workflow.LabelResult{},
			wantCode: http.StatusBadGateway,
			wantKind: "remote_batch",
		},
		{
			name:     "unknown workflow",
			err:      fmt.Errorf("%w: %q", workflow.ErrUnknownWorkflow, "nope"),
			wantCode: http.StatusNotFound,
			wantKind: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&fakeDispatcher{res: tt.res, err: tt.err}, metrics.New(true))
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/workflows/anything", strings.NewReader(`{}`))
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			got := decode(t, rec.Body.Bytes())
			assert.Equal(t, "error", got["status"])
			details := got["details"].(map[string]any)
			assert.Equal(t, tt.wantKind, details["kind"])
			_, hasResult := details["result"]
			assert.Equal(t, tt.wantResult, hasResult)
		})
	}
}

func TestHandlerRoutes(t *testing.T) {
	h := newHandler(&fakeDispatcher{}, metrics.New(true))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workflows", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec.Body.Bytes())
	assert.Len(t, got["data"], len(workflow.Names()))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workflows/create_label", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRenderRuns(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := []state.Run{{
		ID:         "run-1",
		Workflow:   workflow.WorkflowCloneCampaign,
		CustomerID: "1234567890",
		Status:     workflow.StatusPartial,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Message:    "cloned campaign id 1001 with 1 of 2 ad groups copied",
	}}

	var buf bytes.Buffer
	renderRuns(&buf, runs)
	out := buf.String()
	assert.Contains(t, out, "WORKFLOW")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "clone_campaign")
	assert.Contains(t, out, "1.5s")
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("api:\n  customerId: \"1234567890\"\njournal:\n  path: %q\n", filepath.Join(dir, "journal"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWorkflowsCommand(t *testing.T) {
	out, err := execute(t, "workflows")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(workflow.Names(), "\n")+"\n", out)
}

func TestCloneCommandRejectsBadID(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "clone", "abc")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindLocalValidation))

	got := decode(t, []byte(out))
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "local_validation", got["details"].(map[string]any)["kind"])
}

func TestExecCommandUnknownWorkflow(t *testing.T) {
	cfg := writeConfig(t)
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(`{}`))
	cmd.SetArgs([]string{"--config", cfg, "exec", "nope"})

	err := cmd.Execute()
	require.ErrorIs(t, err, workflow.ErrUnknownWorkflow)
	assert.Equal(t, "error", decode(t, out.Bytes())["status"])
}

func TestRunsShowMissing(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t), "runs", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "missing" not found`)

	_, err = execute(t, "--config", writeConfig(t), "runs", "list")
	require.NoError(t, err)
}
