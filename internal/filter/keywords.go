// Package filter implements the content keyword matching engine.
package filter

import "strings"

// MatchKeywords checks whether the text matches at least one of the given
// keywords (OR semantics). Matching is a case-insensitive substring test,
// so multi-word keywords like "% off" work as phrases.
// If no keywords are provided, the text always passes.
func MatchKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
