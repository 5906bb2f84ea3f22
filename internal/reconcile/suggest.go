package reconcile

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/MrJamesThe3rd/tally/internal/category"
)

// Suggestion is a likely category for an unresolved alias. It is shown to
// the operator and never applied on its own.
type Suggestion struct {
	Category *category.Category
	Alias    string
	Distance int
}

// Suggest finds the known alias closest to alias, ignoring case. Matches
// further than a third of the alias length are discarded.
func Suggest(alias string, cats []*category.Category) (Suggestion, bool) {
	needle := strings.ToLower(strings.TrimSpace(alias))
	if needle == "" {
		return Suggestion{}, false
	}

	limit := utf8.RuneCountInString(needle) / 3

	var (
		best  Suggestion
		found bool
	)

	for _, c := range cats {
		for _, known := range c.Aliases {
			d := levenshtein.ComputeDistance(needle, strings.ToLower(strings.TrimSpace(known)))
			if d > limit {
				continue
			}

			if !found || d < best.Distance {
				best = Suggestion{Category: c, Alias: known, Distance: d}
				found = true
			}
		}
	}

	return best, found
}
