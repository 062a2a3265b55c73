// Package workflow implements the compound operations exposed by adsmutate.
// Each workflow validates its input, plans the operations, submits them
// directly or through a staged pipeline, and records the run in the journal.
package workflow

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/config"
	"github.com/evanofslack/adsmutate/internal/logger"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/pipeline"
	"github.com/evanofslack/adsmutate/internal/remote"
	"github.com/evanofslack/adsmutate/internal/state"
	"github.com/evanofslack/adsmutate/internal/submit"
)

// Run statuses recorded in the journal and returned to callers.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

type Service struct {
	cfg       *config.Config
	clients   submit.ClientSource
	submitter *submit.Submitter
	pipeline  *pipeline.Pipeline
	journal   state.Journal
	metrics   *metrics.Metrics
}

// New wires a Service. journal may be nil, in which case runs are not
// recorded.
func New(cfg *config.Config, clients submit.ClientSource, journal state.Journal, m *metrics.Metrics) *Service {
	sub := submit.New(clients, m)
	return &Service{
		cfg:       cfg,
		clients:   clients,
		submitter: sub,
		pipeline:  pipeline.New(sub, m),
		journal:   journal,
		metrics:   m,
	}
}

// run executes fn as one journaled run. fn may set Status, Message,
// Outputs and Stages on the run; Status defaults from the returned error.
func (s *Service) run(ctx context.Context, workflow, customerID string, fn func(ctx context.Context, run *state.Run) error) (string, error) {
	id := uuid.NewString()
	ctx = logger.WithRun(ctx, id, workflow)

	run := state.Run{
		ID:         id,
		Workflow:   workflow,
		CustomerID: customerID,
		StartedAt:  time.Now().UTC(),
	}
	slog.InfoContext(ctx, "Workflow started", "customer", customerID)

	err := fn(ctx, &run)

	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
		if run.Status == "" {
			run.Status = StatusFailed
		}
	} else if run.Status == "" {
		run.Status = StatusCompleted
	}
	s.metrics.ObserveWorkflow(workflow, run.Duration())

	if s.journal != nil {
		if jerr := s.journal.Record(ctx, run); jerr != nil {
			slog.ErrorContext(ctx, "Failed to record run in journal", "error", jerr)
		}
	}

	if err != nil {
		slog.ErrorContext(ctx, "Workflow failed", "status", run.Status, "error", err, "duration", run.Duration())
	} else {
		slog.InfoContext(ctx, "Workflow finished", "status", run.Status, "duration", run.Duration())
	}
	return id, err
}

func (s *Service) customer(id string) (string, error) {
	cid, err := s.cfg.ResolveCustomerID(id)
	if err != nil {
		return "", apierr.Validationf("resolve customer", "%v", err)
	}
	if err := mutate.ValidateID("customer_id", cid); err != nil {
		return "", err
	}
	return cid, nil
}

func (s *Service) search(ctx context.Context, customerID, query string) ([]remote.Row, error) {
	client, err := s.clients.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Search(ctx, customerID, query)
}

func (s *Service) limits() config.Limits {
	return s.cfg.Limits
}

// KeywordInput is one keyword to create.
type KeywordInput struct {
	Text      string `json:"text"`
	MatchType string `json:"match_type"`
}

func (k KeywordInput) matchType() string {
	if k.MatchType == "" {
		return "BROAD"
	}
	return strings.ToUpper(k.MatchType)
}

func toMicros(amount float64) int64 {
	return int64(math.Round(amount * 1_000_000))
}

// adID returns the ad id from an ad group ad name, which ends in
// {adGroupID}~{adID}.
func adID(name string) string {
	id := mutate.ResourceID(name)
	if i := strings.LastIndexByte(id, '~'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func statusOf(succeeded, failed int) string {
	switch {
	case failed == 0:
		return StatusCompleted
	case succeeded == 0:
		return StatusFailed
	}
	return StatusPartial
}
