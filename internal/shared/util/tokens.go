package util

import "unicode/utf8"

// CharsPerToken is the approximation ratio for token counting.
// Conservative estimate: most tokenizers produce ~1 token per 3-4 chars for code.
const CharsPerToken = 3.5

// EstimateTokens approximates the token cost of a piece of text without
// calling a tokenizer. Always at least 1 for non-empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len(text)) / CharsPerToken)
	if n < 1 {
		n = 1
	}
	return n
}

// TruncateToTokens cuts text so its estimated token cost fits maxTokens.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	maxChars := int(float64(maxTokens) * CharsPerToken)
	if len(text) <= maxChars {
		return text
	}
	// Never split a multi-byte rune at the cut point.
	for maxChars > 0 && !utf8.RuneStart(text[maxChars]) {
		maxChars--
	}
	return text[:maxChars]
}
