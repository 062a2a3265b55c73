// Package mutate builds ordered batches of create, update and remove
// operations. Operations inside one batch may reference resources created
// earlier in the same batch through temporary placeholder names; the
// ReferenceTable records which names are placeholders so that batches with
// forward references are rejected before they reach the network.
package mutate

import (
	"fmt"
	"strconv"
)

type Kind int

const (
	KindCreate Kind = iota + 1
	KindUpdate
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindRemove:
		return "remove"
	}
	return "unknown"
}

// Operation is one element of a batch.
type Operation struct {
	Kind Kind
	Type ResourceType
	// Resource is the payload for creates and updates. Nil for removes.
	Resource Resource
	// Name is the target of an update or remove.
	Name string
	// UpdateMask lists the snake_case field paths an update changes.
	UpdateMask []string
	// Defines is the placeholder this create introduces, if any.
	Defines string
	// References holds every resource name the payload points at.
	References []string
}

func (op Operation) String() string {
	switch op.Kind {
	case KindCreate:
		if op.Defines != "" {
			return fmt.Sprintf("create %s %s", op.Type, op.Defines)
		}
		return fmt.Sprintf("create %s", op.Type)
	default:
		return fmt.Sprintf("%s %s %s", op.Kind, op.Type, op.Name)
	}
}

// Batch is a verified, non-empty, ordered list of operations for one customer.
type Batch struct {
	CustomerID string
	Operations []Operation
	Refs       *ReferenceTable
}

// NewBatch verifies ops against refs and wraps them as a Batch.
func NewBatch(customerID string, ops []Operation, refs *ReferenceTable) (*Batch, error) {
	if err := Verify(ops, refs); err != nil {
		return nil, err
	}
	if refs == nil {
		refs = NewReferenceTable()
	}
	return &Batch{CustomerID: customerID, Operations: ops, Refs: refs}, nil
}

func (b *Batch) Len() int {
	return len(b.Operations)
}

// Allocator hands out placeholder resource names drawn from a strictly
// decreasing negative sequence shared by every collection in a batch.
// It is not safe for concurrent use; each Plan owns one.
type Allocator struct {
	customerID string
	next       int64
}

func NewAllocator(customerID string) *Allocator {
	return &Allocator{customerID: customerID, next: -1}
}

func (a *Allocator) Allocate(collection string) string {
	id := a.next
	a.next--
	return ResourceName(a.customerID, collection, strconv.FormatInt(id, 10))
}
