package download

import "strings"

// NormalizeURLs extracts an ordered, deduplicated URL list from free-form
// text: one URL per line, tolerating accidental multi-URL pastes on a single
// line. Blank tokens are dropped and the first occurrence of a duplicate
// wins.
func NormalizeURLs(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, token := range strings.Fields(line) {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}
