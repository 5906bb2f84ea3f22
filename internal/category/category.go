package category

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a user-defined bucket for transactions. Aliases are the
// bank-side category names that resolve to it during an import.
type Category struct {
	ID        uuid.UUID
	Name      string
	Color     string
	Aliases   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAlias reports whether alias, trimmed, is one of c's aliases.
func (c *Category) HasAlias(alias string) bool {
	return slices.Contains(c.Aliases, strings.TrimSpace(alias))
}

// normalizeAliases trims every alias, drops empty ones and removes
// duplicates, keeping the first occurrence.
func normalizeAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	seen := make(map[string]struct{}, len(aliases))

	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}

		if _, ok := seen[a]; ok {
			continue
		}

		seen[a] = struct{}{}
		out = append(out, a)
	}

	return out
}
