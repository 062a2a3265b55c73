package mutate

import (
	"fmt"
)

// Binding is the value currently held by a role.
type Binding struct {
	Role string
	Type ResourceType
	// Placeholder is the temporary name allocated when the role was defined.
	Placeholder string
	// Name is the placeholder until Bind replaces it with the real name.
	Name string
	// Index is the position of the defining operation in its batch.
	Index int
}

// Bound reports whether the role has been resolved to a persisted resource.
func (b Binding) Bound() bool {
	return b.Name != "" && b.Name != b.Placeholder
}

// ReferenceTable maps logical roles to placeholder or real resource names.
// It is the only record of which names are placeholders.
type ReferenceTable struct {
	roles        map[string]*Binding
	order        []string
	placeholders map[string]string
}

func NewReferenceTable() *ReferenceTable {
	return &ReferenceTable{
		roles:        make(map[string]*Binding),
		placeholders: make(map[string]string),
	}
}

func (t *ReferenceTable) define(role string, rt ResourceType, placeholder string, index int) error {
	if role == "" {
		return fmt.Errorf("empty role")
	}
	if _, ok := t.roles[role]; ok {
		return fmt.Errorf("role %q is already defined", role)
	}
	if _, ok := t.placeholders[placeholder]; ok {
		return fmt.Errorf("placeholder %s is already in use", placeholder)
	}
	t.roles[role] = &Binding{Role: role, Type: rt, Placeholder: placeholder, Name: placeholder, Index: index}
	t.order = append(t.order, role)
	t.placeholders[placeholder] = role
	return nil
}

// Bind replaces the placeholder held by role with the real resource name
// returned by the remote system.
func (t *ReferenceTable) Bind(role, name string) error {
	b, ok := t.roles[role]
	if !ok {
		return fmt.Errorf("role %q is not defined", role)
	}
	b.Name = name
	return nil
}

// Resolve returns the name currently bound to role.
func (t *ReferenceTable) Resolve(role string) (string, bool) {
	b, ok := t.roles[role]
	if !ok {
		return "", false
	}
	return b.Name, true
}

func (t *ReferenceTable) Binding(role string) (Binding, bool) {
	b, ok := t.roles[role]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// IsPlaceholder reports whether name was allocated as a placeholder in
// this table.
func (t *ReferenceTable) IsPlaceholder(name string) bool {
	_, ok := t.placeholders[name]
	return ok
}

// RoleOf returns the role that owns placeholder.
func (t *ReferenceTable) RoleOf(placeholder string) (string, bool) {
	role, ok := t.placeholders[placeholder]
	return role, ok
}

// Roles lists roles in definition order.
func (t *ReferenceTable) Roles() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *ReferenceTable) Len() int {
	return len(t.order)
}
