package domain

import (
	"strings"
)

// NormalizeTags lower-cases, hyphenates, and de-duplicates a comma separated
// tag list, keeping first-seen order. It returns nil when nothing remains.
func NormalizeTags(raw string) *string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.Join(strings.Fields(strings.ToLower(part)), "-")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	joined := strings.Join(out, ",")
	return &joined
}

func splitTags(s string) []string {
	return strings.Split(s, ",")
}
