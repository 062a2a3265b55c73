// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/remote"
)

type MutateCall struct {
	CustomerID string
	Operations []mutate.Operation
	Options    remote.MutateOptions
}

type SearchCall struct {
	CustomerID string
	Query      string
}

// Client records every call. With no MutateFunc set, mutates succeed via
// Echo; with no SearchFunc set, searches return no rows.
type Client struct {
	MutateFunc func(ctx context.Context, customerID string, ops []mutate.Operation, opts remote.MutateOptions) (remote.MutateResponse, error)
	SearchFunc func(ctx context.Context, customerID, query string) ([]remote.Row, error)

	mu          sync.Mutex
	mutateCalls []MutateCall
	searchCalls []SearchCall
}

func (c *Client) Mutate(ctx context.Context, customerID string, ops []mutate.Operation, opts remote.MutateOptions) (remote.MutateResponse, error) {
	c.mu.Lock()
	c.mutateCalls = append(c.mutateCalls, MutateCall{CustomerID: customerID, Operations: ops, Options: opts})
	c.mu.Unlock()

	if c.MutateFunc == nil {
		return Echo(customerID, ops), nil
	}
	return c.MutateFunc(ctx, customerID, ops, opts)
}

func (c *Client) Search(ctx context.Context, customerID, query string) ([]remote.Row, error) {
	c.mu.Lock()
	c.searchCalls = append(c.searchCalls, SearchCall{CustomerID: customerID, Query: query})
	c.mu.Unlock()

	if c.SearchFunc == nil {
		return nil, nil
	}
	return c.SearchFunc(ctx, customerID, query)
}

func (c *Client) MutateCalls() []MutateCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MutateCall(nil), c.mutateCalls...)
}

func (c *Client) SearchCalls() []SearchCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SearchCall(nil), c.searchCalls...)
}

// Connector wraps c in a connector that never fails.
func (c *Client) Connector() *remote.Connector {
	return remote.NewConnector(func(context.Context) (remote.Client, error) { return c, nil }, metrics.New(false))
}

// Echo answers every operation with success. Creates get the real name
// customers/{cid}/{collection}/{1000+position}; updates and removes echo
// their target.
func Echo(customerID string, ops []mutate.Operation) remote.MutateResponse {
	resp := remote.MutateResponse{Results: make([]remote.MutateResult, len(ops))}
	for i, op := range ops {
		name := op.Name
		if op.Kind == mutate.KindCreate {
			name = mutate.ResourceName(customerID, op.Type.Collection(), strconv.Itoa(1000+i))
		}
		resp.Results[i].ResourceName = name
	}
	return resp
}

// Rows marshals each value into a search row.
func Rows(values ...any) []remote.Row {
	rows := make([]remote.Row, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		rows = append(rows, remote.Row(b))
	}
	return rows
}
