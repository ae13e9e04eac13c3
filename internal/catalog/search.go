package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a free-text query into a contains pattern with the LIKE
// wildcards of the query itself escaped. Queries must use ESCAPE '\'.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

// foldMatcher does a Unicode case-folded contains match.
type foldMatcher struct {
	fold   cases.Caser
	needle string
}

func newFoldMatcher(query string) foldMatcher {
	fold := cases.Fold()
	return foldMatcher{fold: fold, needle: fold.String(query)}
}

func (m foldMatcher) any(values ...*string) bool {
	for _, v := range values {
		if v != nil && strings.Contains(m.fold.String(*v), m.needle) {
			return true
		}
	}
	return false
}
