package matcher

import "strings"

// Match returns the subset of keywords whose lowercase form occurs as a
// substring of the lowercase text. The result preserves the input keyword
// order and the original keyword spelling. Empty text or an empty keyword
// list yields nil.
//
// Matching is deliberately substring-based with no word-boundary checks: a
// keyword can match inside a longer word.
func Match(text string, keywords []string) []string {
	if text == "" || len(keywords) == 0 {
		return nil
	}

	lower := strings.ToLower(text)

	var matched []string
	for _, keyword := range keywords {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			matched = append(matched, keyword)
		}
	}
	return matched
}
