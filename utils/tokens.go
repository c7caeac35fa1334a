package utils

import "regexp"

// tokenRE matches one word or one punctuation character, the same split a
// rough BPE-ish tokenizer would produce for English prose.
var tokenRE = regexp.MustCompile(`\w+|[^\w\s]`)

// CountTokens returns a heuristic token count for s (words plus punctuation).
// It is an approximation, not a provider-exact tokenization.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	return len(tokenRE.FindAllString(s, -1))
}
