// Package reconcile turns the positional outcome of a submitted batch into
// the named outputs a caller asked for.
package reconcile

import (
	"sort"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/submit"
)

type Outputs struct {
	// Values maps caller output keys, e.g. new_campaign_id, to resource ids.
	Values map[string]string
	// Names maps roles to the real resource names they now hold.
	Names     map[string]string
	Succeeded int
	Failed    int
	// Missing lists roles whose defining operation failed.
	Missing []string
}

func (o Outputs) ID(key string) string {
	return o.Values[key]
}

// Reconcile walks result against batch position by position. Every role
// whose defining create succeeded is rebound in batch.Refs to the real
// resource name, and roleMap translates roles to output keys.
func Reconcile(batch *mutate.Batch, result submit.Result, roleMap map[string]string) Outputs {
	out := Outputs{
		Values: make(map[string]string),
		Names:  make(map[string]string),
	}

	for i, e := range result.Entries {
		if i >= batch.Len() {
			break
		}
		if e.OK() {
			out.Succeeded++
		} else {
			out.Failed++
		}

		op := batch.Operations[i]
		if op.Defines == "" {
			continue
		}
		role, ok := batch.Refs.RoleOf(op.Defines)
		if !ok {
			continue
		}
		if !e.OK() {
			out.Missing = append(out.Missing, role)
			continue
		}
		if e.ResourceName == "" {
			continue
		}
		if err := batch.Refs.Bind(role, e.ResourceName); err == nil {
			out.Names[role] = e.ResourceName
		}
	}

	for role, key := range roleMap {
		if name, ok := out.Names[role]; ok {
			out.Values[key] = mutate.ResourceID(name)
		}
	}
	sort.Strings(out.Missing)
	return out
}

// CountSucceeded counts the successful operations on resources of type rt.
func CountSucceeded(result submit.Result, rt mutate.ResourceType) int {
	n := 0
	for _, e := range result.Entries {
		if e.OK() && e.Type == rt {
			n++
		}
	}
	return n
}

// Cause is a classified per-operation failure.
type Cause struct {
	Index    int             `json:"index"`
	Category apierr.Category `json:"category"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Hint     string          `json:"hint"`
}

// Causes classifies the failures carried by result.
func Causes(result submit.Result) []Cause {
	causes := make([]Cause, 0, len(result.Failures))
	for _, f := range result.Failures {
		cat, hint := apierr.ClassifyText(f.Code + " " + f.Message)
		causes = append(causes, Cause{
			Index:    f.Index,
			Category: cat,
			Code:     f.Code,
			Message:  f.Message,
			Hint:     hint,
		})
	}
	return causes
}
