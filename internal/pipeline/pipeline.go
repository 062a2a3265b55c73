// Package pipeline sequences dependent batches. Each stage builds its
// batches from the real resource names committed by earlier stages, so a
// child can reference a parent created by a separate request. Units within
// a stage are independent and may run concurrently. A failed stage stops
// the pipeline; nothing already committed is rolled back.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/reconcile"
	"github.com/evanofslack/adsmutate/internal/submit"
)

type BatchSubmitter interface {
	Submit(ctx context.Context, batch *mutate.Batch, opts submit.Options) (submit.Result, error)
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// State accumulates the real resource names and success counts produced by
// completed units. It lives for one Run.
type State struct {
	mu     sync.Mutex
	names  map[string]string
	counts map[string]int
}

func NewState() *State {
	return &State{names: make(map[string]string), counts: make(map[string]int)}
}

func (s *State) Bind(key, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[key] = name
}

func (s *State) Resolve(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[key]
	return name, ok
}

// Match returns the bindings whose key starts with prefix.
func (s *State) Match(prefix string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for k, v := range s.names {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

func (s *State) Add(counter string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[counter] += n
}

func (s *State) Count(counter string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[counter]
}

func (s *State) snapshot() (map[string]string, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]string, len(s.names))
	for k, v := range s.names {
		names[k] = v
	}
	counts := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	return names, counts
}

// Unit is one batch of a stage.
type Unit struct {
	Name  string
	Batch *mutate.Batch
	// Publish maps plan roles to State keys. A nil map publishes every
	// role under its own name.
	Publish map[string]string
}

type Stage struct {
	Name    string
	Options submit.Options
	// Concurrency bounds the units in flight. Values below 1 mean one.
	Concurrency int
	// Tolerant stages report failed units as a partial stage instead of
	// failing, as long as at least one unit succeeded.
	Tolerant bool
	// Build reads whatever it needs, typically from State and the remote
	// search endpoint, and returns the units to submit. No units skips
	// the stage.
	Build func(ctx context.Context, state *State) ([]Unit, error)
}

type UnitReport struct {
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Causes    []reconcile.Cause `json:"causes,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type StageReport struct {
	Name      string       `json:"name"`
	Status    Status       `json:"status"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Units     []UnitReport `json:"units,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type Report struct {
	Status Status            `json:"status"`
	Stages []StageReport     `json:"stages"`
	Names  map[string]string `json:"names"`
	Counts map[string]int    `json:"counts"`
}

func (r Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

type Pipeline struct {
	submitter BatchSubmitter
	metrics   *metrics.Metrics
}

func New(submitter BatchSubmitter, m *metrics.Metrics) *Pipeline {
	return &Pipeline{submitter: submitter, metrics: m}
}

// Run executes stages in order. The Report is always returned. If a stage
// fails after operations were committed, by an earlier stage or by sibling
// units of the failing one, the error is a StageAbort and the report status
// is partial.
func (p *Pipeline) Run(ctx context.Context, stages []Stage) (Report, error) {
	state := NewState()
	report := Report{Status: StatusCompleted}
	committed := false

	for i, stage := range stages {
		start := time.Now()
		sr, err := p.runStage(ctx, stage, state)
		report.Stages = append(report.Stages, sr)
		p.metrics.IncPipelineStage(stage.Name, string(sr.Status))
		slog.InfoContext(ctx, "Pipeline stage finished", "stage", stage.Name, "status", sr.Status, "succeeded", sr.Succeeded, "failed", sr.Failed, "duration", time.Since(start))
		if sr.Succeeded > 0 {
			committed = true
		}

		if err != nil {
			report.Status = StatusFailed
			if committed {
				report.Status = StatusPartial
				err = apierr.StageAbort(stage.Name, err)
			}
			for _, rest := range stages[i+1:] {
				report.Stages = append(report.Stages, StageReport{Name: rest.Name, Status: StatusSkipped})
				p.metrics.IncPipelineStage(rest.Name, string(StatusSkipped))
			}
			report.Names, report.Counts = state.snapshot()
			slog.ErrorContext(ctx, "Pipeline aborted", "stage", stage.Name, "status", report.Status, "error", err)
			return report, err
		}
		if sr.Status == StatusPartial {
			report.Status = StatusPartial
		}
	}

	report.Names, report.Counts = state.snapshot()
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, state *State) (StageReport, error) {
	sr := StageReport{Name: stage.Name}
	if err := ctx.Err(); err != nil {
		sr.Status, sr.Error = StatusFailed, err.Error()
		return sr, err
	}

	units, err := stage.Build(ctx, state)
	if err != nil {
		sr.Status, sr.Error = StatusFailed, err.Error()
		return sr, err
	}
	if len(units) == 0 {
		sr.Status = StatusSkipped
		return sr, nil
	}

	limit := stage.Concurrency
	if limit < 1 {
		limit = 1
	}
	reports := make([]UnitReport, len(units))
	errs := make([]error, len(units))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range units {
		g.Go(func() error {
			reports[i], errs[i] = p.runUnit(ctx, stage, u, state)
			return nil
		})
	}
	_ = g.Wait()

	sr.Units = reports
	failedUnits, partialUnits := 0, 0
	for _, r := range reports {
		sr.Succeeded += r.Succeeded
		sr.Failed += r.Failed
		switch r.Status {
		case StatusFailed:
			failedUnits++
		case StatusPartial:
			partialUnits++
		}
	}

	switch {
	case failedUnits == len(units), failedUnits > 0 && !stage.Tolerant:
		sr.Status = StatusFailed
		err := errors.Join(errs...)
		sr.Error = err.Error()
		return sr, err
	case failedUnits > 0, partialUnits > 0:
		sr.Status = StatusPartial
	default:
		sr.Status = StatusCompleted
	}
	return sr, nil
}

func (p *Pipeline) runUnit(ctx context.Context, stage Stage, u Unit, state *State) (UnitReport, error) {
	ur := UnitReport{Name: u.Name}
	res, err := p.submitter.Submit(ctx, u.Batch, stage.Options)
	if err != nil {
		ur.Status, ur.Error = StatusFailed, err.Error()
		if u.Batch != nil {
			ur.Failed = u.Batch.Len()
		}
		slog.WarnContext(ctx, "Pipeline unit failed", "stage", stage.Name, "unit", u.Name, "error", err)
		return ur, err
	}

	out := reconcile.Reconcile(u.Batch, res, nil)
	for role, name := range out.Names {
		key := role
		if u.Publish != nil {
			k, ok := u.Publish[role]
			if !ok {
				continue
			}
			key = k
		}
		state.Bind(key, name)
		if ur.Outputs == nil {
			ur.Outputs = make(map[string]string)
		}
		ur.Outputs[key] = name
	}
	for _, e := range res.Entries {
		if e.OK() {
			state.Add(e.Type.String(), 1)
		}
	}

	ur.Succeeded, ur.Failed = res.Succeeded(), res.Failed()
	ur.Causes = reconcile.Causes(res)
	ur.Status = StatusCompleted
	if res.PartialFailure {
		ur.Status = StatusPartial
		if ur.Succeeded == 0 {
			ur.Status = StatusFailed
			return ur, res.Err()
		}
	}
	return ur, nil
}

// Keys returns the sorted keys of m.
func Keys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
