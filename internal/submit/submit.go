// Package submit sends one verified batch as one physical mutate request
// and returns a result entry for every operation, in submission order.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/remote"
)

const opSubmit = "submit batch"

// ClientSource yields the authenticated client. *remote.Connector
// implements it.
type ClientSource interface {
	Client(ctx context.Context) (remote.Client, error)
}

type Options struct {
	// Limit is the ceiling on operations for this kind of batch.
	Limit int
	// PartialFailure lets the remote system apply the valid operations of
	// a batch and report the rest individually.
	PartialFailure bool
	ValidateOnly   bool
}

// Entry is the outcome of one operation.
type Entry struct {
	Index        int
	Type         mutate.ResourceType
	ResourceName string
	Err          *apierr.OperationFailure
}

func (e Entry) OK() bool {
	return e.Err == nil
}

// Result holds exactly one Entry per submitted operation.
type Result struct {
	Entries        []Entry
	PartialFailure bool
	Failures       []apierr.OperationFailure
}

func (r Result) Succeeded() int {
	n := 0
	for _, e := range r.Entries {
		if e.OK() {
			n++
		}
	}
	return n
}

func (r Result) Failed() int {
	return len(r.Entries) - r.Succeeded()
}

// Err is nil when every operation succeeded and a PartialFailure error
// otherwise.
func (r Result) Err() error {
	if !r.PartialFailure {
		return nil
	}
	return apierr.Partial(opSubmit, r.Failures)
}

type Submitter struct {
	clients ClientSource
	metrics *metrics.Metrics
}

func New(clients ClientSource, m *metrics.Metrics) *Submitter {
	return &Submitter{clients: clients, metrics: m}
}

// Submit sends batch as one request. Size violations and malformed batches
// are rejected before the connector is touched. A whole-batch rejection is
// returned as an error and nothing is considered applied; per-operation
// failures under partial failure are reported in the Result. Nothing is
// retried.
func (s *Submitter) Submit(ctx context.Context, batch *mutate.Batch, opts Options) (Result, error) {
	if batch == nil {
		s.metrics.IncBatchSubmission("rejected")
		return Result{}, apierr.Validationf(opSubmit, "batch is nil")
	}
	n := batch.Len()
	if opts.Limit <= 0 {
		s.metrics.IncBatchSubmission("rejected")
		return Result{}, apierr.Validationf(opSubmit, "batch ceiling must be positive, got %d", opts.Limit)
	}
	if n == 0 || n > opts.Limit {
		s.metrics.IncBatchSubmission("rejected")
		return Result{}, apierr.Validationf(opSubmit, "batch of %d operations is outside 1..%d", n, opts.Limit)
	}
	if err := mutate.Verify(batch.Operations, batch.Refs); err != nil {
		s.metrics.IncBatchSubmission("rejected")
		return Result{}, err
	}

	client, err := s.clients.Client(ctx)
	if err != nil {
		s.metrics.IncBatchSubmission("failure")
		return Result{}, err
	}

	slog.InfoContext(ctx, "Submitting batch", "customer", batch.CustomerID, "operations", n, "partial_failure", opts.PartialFailure, "validate_only", opts.ValidateOnly)
	start := time.Now()
	s.metrics.ObserveBatchSize(n)

	resp, err := client.Mutate(ctx, batch.CustomerID, batch.Operations, remote.MutateOptions{
		PartialFailure: opts.PartialFailure,
		ValidateOnly:   opts.ValidateOnly,
	})
	if err != nil {
		s.metrics.IncBatchSubmission("failure")
		if apierr.KindOf(err) == apierr.KindUnknown {
			err = apierr.RemoteBatch(opSubmit, "mutate request failed", err)
		}
		slog.ErrorContext(ctx, "Batch rejected", "customer", batch.CustomerID, "operations", n, "error", err)
		return Result{}, err
	}

	result, err := assemble(batch, resp, opts)
	if err != nil {
		s.metrics.IncBatchSubmission("failure")
		return Result{}, err
	}

	for _, op := range batch.Operations {
		s.metrics.IncOperation(op.Kind.String(), op.Type.String())
	}
	status := "success"
	if result.PartialFailure {
		status = "partial"
		slog.WarnContext(ctx, "Batch partially applied", "customer", batch.CustomerID, "succeeded", result.Succeeded(), "failed", result.Failed())
	}
	s.metrics.IncBatchSubmission(status)
	slog.InfoContext(ctx, "Batch submitted", "customer", batch.CustomerID, "succeeded", result.Succeeded(), "failed", result.Failed(), "duration", time.Since(start))
	return result, nil
}

// assemble lines the response up with the batch. Validate-only requests
// return no results, so every entry is reported as succeeded without a
// name.
func assemble(batch *mutate.Batch, resp remote.MutateResponse, opts Options) (Result, error) {
	n := batch.Len()
	if !opts.ValidateOnly && len(resp.Results) != n {
		msg := fmt.Sprintf("expected %d results, got %d", n, len(resp.Results))
		return Result{}, apierr.RemoteBatch(opSubmit, msg, nil)
	}

	byIndex := make(map[int]apierr.OperationFailure, len(resp.PartialFailure))
	var unlocated []apierr.OperationFailure
	for _, f := range resp.PartialFailure {
		if f.Index < 0 || f.Index >= n {
			unlocated = append(unlocated, f)
			continue
		}
		if _, seen := byIndex[f.Index]; !seen {
			byIndex[f.Index] = f
		}
	}

	result := Result{Entries: make([]Entry, n)}
	for i, op := range batch.Operations {
		e := Entry{Index: i, Type: op.Type}
		if i < len(resp.Results) {
			e.ResourceName = resp.Results[i].ResourceName
		}
		if f, ok := byIndex[i]; ok {
			e.Err = &f
			e.ResourceName = ""
		} else if !opts.ValidateOnly && e.ResourceName == "" {
			f := apierr.OperationFailure{Index: i, Code: "UNKNOWN", Message: "no result returned for operation"}
			if len(unlocated) > 0 {
				f.Code, f.Message, f.Trigger = unlocated[0].Code, unlocated[0].Message, unlocated[0].Trigger
				unlocated = unlocated[1:]
			}
			e.Err = &f
		}
		if e.Err != nil {
			result.Failures = append(result.Failures, *e.Err)
		}
		result.Entries[i] = e
	}
	// Failures that point at no operation still mean the batch was not
	// fully applied.
	result.Failures = append(result.Failures, unlocated...)
	result.PartialFailure = len(result.Failures) > 0
	return result, nil
}
