// Package remote talks to the advertising mutation API. Client is the
// transport seam used by the rest of the module; Connector lazily builds
// and caches the one authenticated Client a process uses.
package remote

import (
	"context"
	"encoding/json"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/mutate"
)

type Client interface {
	// Mutate submits ops as one physical request. The remote system applies
	// them in order; without PartialFailure the request is all or nothing.
	Mutate(ctx context.Context, customerID string, ops []mutate.Operation, opts MutateOptions) (MutateResponse, error)
	// Search runs a query and returns every result row across all pages.
	Search(ctx context.Context, customerID, query string) ([]Row, error)
}

type MutateOptions struct {
	PartialFailure bool
	ValidateOnly   bool
}

type MutateResponse struct {
	// Results has one entry per operation. Failed operations in a partially
	// applied batch have an empty ResourceName.
	Results               []MutateResult
	PartialFailure        []apierr.OperationFailure
	PartialFailureMessage string
}

type MutateResult struct {
	ResourceName string
}

// Row is one search result in its JSON form.
type Row json.RawMessage

func (r Row) Decode(v any) error {
	return json.Unmarshal(r, v)
}

func (r *Row) UnmarshalJSON(b []byte) error {
	*r = append((*r)[0:0], b...)
	return nil
}

func (r Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r, nil
}
