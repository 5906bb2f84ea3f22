package reconcile

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownAlias = errors.New("alias is not part of this import")

// Table is the editable mapping of one import session. The mapping step
// writes it before a run; the orchestrator only reads it.
type Table struct {
	mu       sync.RWMutex
	order    []string
	mappings map[string]Mapping
}

func NewTable(mappings []Mapping) *Table {
	t := &Table{mappings: make(map[string]Mapping, len(mappings))}

	for _, m := range mappings {
		if _, dup := t.mappings[m.Alias]; dup {
			continue
		}

		t.order = append(t.order, m.Alias)
		t.mappings[m.Alias] = m
	}

	return t
}

// Lookup returns the category an alias resolves to.
func (t *Table) Lookup(alias string) (uuid.UUID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.mappings[strings.TrimSpace(alias)]
	if !ok || m.CategoryID == nil {
		return uuid.Nil, false
	}

	return *m.CategoryID, true
}

// Assign points alias at a category. remember marks the alias to be
// stored on that category when the import starts.
func (t *Table) Assign(alias string, id uuid.UUID, remember bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	alias = strings.TrimSpace(alias)

	m, ok := t.mappings[alias]
	if !ok {
		return ErrUnknownAlias
	}

	m.CategoryID = &id
	m.Remember = remember
	t.mappings[alias] = m

	return nil
}

// Clear makes alias unresolved again.
func (t *Table) Clear(alias string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	alias = strings.TrimSpace(alias)

	m, ok := t.mappings[alias]
	if !ok {
		return ErrUnknownAlias
	}

	m.CategoryID = nil
	m.Remember = false
	t.mappings[alias] = m

	return nil
}

// Mappings returns a copy of all mappings in first-seen order.
func (t *Table) Mappings() []Mapping {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Mapping, 0, len(t.order))

	for _, alias := range t.order {
		m := t.mappings[alias]
		if m.CategoryID != nil {
			id := *m.CategoryID
			m.CategoryID = &id
		}

		out = append(out, m)
	}

	return out
}

// Unresolved lists aliases that have no category yet.
func (t *Table) Unresolved() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string

	for _, alias := range t.order {
		if t.mappings[alias].CategoryID == nil {
			out = append(out, alias)
		}
	}

	return out
}
