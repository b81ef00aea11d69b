package core

import (
	"fmt"

	"deepcopy/pkg/domain"
)

type remapEntry struct {
	field string
	id    string
}

// remapTable maps a type's foreign-key field name to the identifier of the
// copy of that type currently open on the duplication path. Entries form a
// stack: each frame pushes its own identifier before visiting children and
// pops it afterwards, so a sibling branch never observes an identifier from a
// finished subtree and a nested copy of the same type only shadows its
// ancestor's entry.
type remapTable struct {
	entries []remapEntry
}

func (t *remapTable) put(field, id string) {
	t.entries = append(t.entries, remapEntry{field: field, id: id})
}

// remove pops the top entry, which must belong to field.
func (t *remapTable) remove(field string) {
	n := len(t.entries)
	if n == 0 || t.entries[n-1].field != field {
		panic(fmt.Sprintf("remap table: remove %q out of order", field))
	}
	t.entries = t.entries[:n-1]
}

// lookup returns the innermost identifier recorded for field.
func (t *remapTable) lookup(field string) (string, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].field == field {
			return t.entries[i].id, true
		}
	}
	return "", false
}

// attributes renders the visible entries as attribute overrides.
func (t *remapTable) attributes() domain.Attributes {
	if len(t.entries) == 0 {
		return nil
	}
	out := make(domain.Attributes, len(t.entries))
	for _, e := range t.entries {
		out[e.field] = e.id
	}
	return out
}

func (t *remapTable) len() int { return len(t.entries) }
