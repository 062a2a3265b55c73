package state

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("run not found")

// Run is the journal entry of one workflow invocation.
type Run struct {
	ID         string            `json:"id"`
	Workflow   string            `json:"workflow"`
	CustomerID string            `json:"customerId"`
	Status     string            `json:"status"`
	Message    string            `json:"message,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Outputs    map[string]string `json:"outputs,omitempty"`
	Stages     []StageSummary    `json:"stages,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type StageSummary struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
