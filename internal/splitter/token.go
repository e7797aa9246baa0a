package splitter

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough token count. This is intentionally simple:
// exact tokenization is not required for sizing segments. Space-separated
// words cover the English side; CJK runes count one token each because the
// Japanese half of a textbook page carries no spaces at all.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	cjk := 0
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			cjk++
		}
	}
	// Roughly 1.33 tokens per word for English text.
	tokens := int(float64(words)*1.33) + cjk
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}
