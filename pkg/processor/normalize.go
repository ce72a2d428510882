package processor

import (
	"strings"
	"unicode"
)

// trimPunctuation is the set of leading/trailing characters stripped during
// comparison normalization.
const trimPunctuation = `"'.,;:!?`

// artifactPrefixes are labels LLM extractors tend to prepend to memory
// statements. Storage cleaning strips at most one, first match wins.
var artifactPrefixes = []string{
	"Remember:",
	"User preference:",
	"User likes:",
	"User dislikes:",
	"Important:",
	"Note:",
	"Memory:",
}

// NormalizeContent canonicalizes content for equality and similarity
// comparisons: whitespace runs collapse to single spaces, surrounding
// punctuation is stripped, and the result is lower-cased. Never used for
// storage output.
func NormalizeContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	content = strings.Trim(content, trimPunctuation)
	return strings.ToLower(content)
}

// CleanContent prepares content for storage: whitespace runs collapse to
// single spaces, one known extraction-artifact prefix is stripped, and the
// first rune is upper-cased if it is lower-case. Case is otherwise
// preserved. The result may be empty; empty records are dropped downstream.
func CleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	for _, prefix := range artifactPrefixes {
		if strings.HasPrefix(content, prefix) {
			content = strings.TrimSpace(content[len(prefix):])
			break
		}
	}

	runes := []rune(content)
	if len(runes) > 0 && unicode.IsLower(runes[0]) {
		runes[0] = unicode.ToUpper(runes[0])
		content = string(runes)
	}
	return content
}

// tokenSet splits normalized content into its set of whitespace-separated
// tokens.
func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes |intersection| / |union| over two token sets. Empty sets
// are never similar to anything, including each other.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
