package core

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanText strips any markup from free text (task instructions, sensory notes...) then trims it.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// DedupStrings cleans and de-duplicates `vals`, preserving order. Blank values are ignored.
// It returns the number of repeated values dropped.
func DedupStrings(vals []string) ([]string, int) {
	var dupes int
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = CleanString(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			dupes++
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, dupes
}
