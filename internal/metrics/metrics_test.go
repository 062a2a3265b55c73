package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(true)

	m.IncBatchSubmission("success")
	m.IncBatchSubmission("partial")
	m.IncBatchSubmission("bogus")
	m.IncOperation("create", "campaign")
	m.IncOperation("upsert", "campaign")
	m.IncAPIRequest("mutate", false)
	m.IncConnectorAttempt(true)
	m.IncPipelineStage("ad_groups", "partial")
	m.IncPipelineStage("", "partial")
	m.IncJournalRequest("create", true)

	if got := testutil.ToFloat64(m.batchSubmissions.WithLabelValues("success")); got != 1 {
		t.Errorf("success submissions = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.batchSubmissions); got != 2 {
		t.Errorf("submission series = %d, want 2", got)
	}
	if got := testutil.CollectAndCount(m.batchOperations); got != 1 {
		t.Errorf("operation series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("mutate", "failure")); got != 1 {
		t.Errorf("failed mutate requests = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.pipelineStages); got != 1 {
		t.Errorf("stage series = %d, want 1", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(true)
	m.ObserveBatchSize(3)
	m.ObserveWorkflow("clone_campaign", 1500*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"adsmutate_batch_size", "adsmutate_workflow_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestUnregistered(t *testing.T) {
	m := New(false)
	m.IncBatchSubmission("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "adsmutate_batch_submissions_total") {
		t.Error("unregistered metrics should not be exposed")
	}
}
