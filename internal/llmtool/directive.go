package llmtool

import (
	"regexp"
	"strings"
)

// reSearch finds a SEARCH directive that starts a line.
var reSearch = regexp.MustCompile(`(?m)^[ \t>*-]*SEARCH:[ \t]*(.*)$`)

// ParseSearch returns the query of the first SEARCH directive in reply.
// Surrounding quotes and backticks are stripped; an empty query is treated
// as no directive.
func ParseSearch(reply string) (string, bool) {
	m := reSearch.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	q := strings.TrimSpace(m[1])
	q = strings.Trim(q, "\"'`")
	q = strings.TrimSpace(q)
	if q == "" {
		return "", false
	}
	return q, true
}
