package consensus

import "strings"

// Sanitize repairs a raw ranking response into a permutation of eligible.
//
// The text is split on commas and line breaks; tokens that exactly match an eligible name
// are kept in first-seen order without repeats, and any eligible names never mentioned are
// appended in the order given. Foreign names are dropped. It never fails.
func Sanitize(raw string, eligible []string) []string {
	allowed := make(map[string]bool, len(eligible))
	for _, name := range eligible {
		allowed[name] = true
	}

	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	ranking := make([]string, 0, len(eligible))
	seen := make(map[string]bool, len(eligible))
	for _, tok := range tokens {
		name := strings.TrimSpace(tok)
		if !allowed[name] || seen[name] {
			continue
		}
		seen[name] = true
		ranking = append(ranking, name)
	}

	for _, name := range eligible {
		if !seen[name] {
			seen[name] = true
			ranking = append(ranking, name)
		}
	}
	return ranking
}
