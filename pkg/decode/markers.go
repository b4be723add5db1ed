package decode

import "strings"

// Sentinel lines printed around a trace buffer dumped over a console.
const (
	MarkerBegin = "==== TRACE BEGIN ===="
	MarkerEnd   = "==== TRACE END ===="
)

// Markers lists every sentinel the filter strips, in reporting order.
var Markers = []string{MarkerBegin, MarkerEnd}

// StripMarkers removes every occurrence of each known marker from s and
// returns the markers that were found, each at most once.
func StripMarkers(s string) (string, []string) {
	var found []string
	for _, m := range Markers {
		if !strings.Contains(s, m) {
			continue
		}
		s = strings.ReplaceAll(s, m, "")
		found = append(found, m)
	}
	return s, found
}
