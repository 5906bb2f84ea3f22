package reconcile

import (
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

// Mapping resolves one statement alias to an optional category.
// Remember asks the importer to store the alias on the category.
type Mapping struct {
	Alias      string
	CategoryID *uuid.UUID
	Remember   bool
}

func (m Mapping) Resolved() bool {
	return m.CategoryID != nil
}

// Reconcile maps every distinct alias in txs to the category that lists it.
// Aliases are trimmed and compared case-sensitively; the output follows
// first-seen order. When several categories list an alias, the first one
// in cats wins. Empty aliases are left out. Reconcile does not write.
func Reconcile(txs []statement.Transaction, cats []*category.Category) []Mapping {
	index := aliasIndex(cats)
	seen := make(map[string]struct{})

	var out []Mapping

	for _, tx := range txs {
		alias := strings.TrimSpace(tx.Fields.CategoryAlias)
		if alias == "" {
			continue
		}

		if _, ok := seen[alias]; ok {
			continue
		}

		seen[alias] = struct{}{}

		m := Mapping{Alias: alias}
		if id, ok := index[alias]; ok {
			m.CategoryID = &id
		}

		out = append(out, m)
	}

	return out
}

// aliasIndex keeps the first category claiming each alias.
func aliasIndex(cats []*category.Category) map[string]uuid.UUID {
	index := make(map[string]uuid.UUID)

	for _, c := range cats {
		for _, a := range c.Aliases {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}

			if _, taken := index[a]; !taken {
				index[a] = c.ID
			}
		}
	}

	return index
}
