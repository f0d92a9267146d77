package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty text = %d tokens", got)
	}
	if got := EstimateTokens("x"); got != 1 {
		t.Errorf("single char = %d tokens, want 1", got)
	}
	long := strings.Repeat("a", 350)
	if got := EstimateTokens(long); got != 100 {
		t.Errorf("350 chars = %d tokens, want 100", got)
	}
}

func TestTruncateToTokens(t *testing.T) {
	text := strings.Repeat("b", 700)
	cut := TruncateToTokens(text, 100)
	if EstimateTokens(cut) > 100 {
		t.Errorf("truncated text still estimates %d tokens", EstimateTokens(cut))
	}
	if TruncateToTokens(text, 0) != "" {
		t.Error("zero budget should produce empty text")
	}
	short := "hello"
	if TruncateToTokens(short, 100) != short {
		t.Error("text under budget was modified")
	}
}

func TestTruncateToTokensKeepsRunesIntact(t *testing.T) {
	// Three bytes per rune; the char cut point lands mid-rune.
	text := strings.Repeat("世", 200)
	cut := TruncateToTokens(text, 100)
	if !utf8.ValidString(cut) {
		t.Error("cut text contains a broken rune")
	}
	if cut == "" {
		t.Error("cut text is empty")
	}
	if EstimateTokens(cut) > 100 {
		t.Errorf("truncated text still estimates %d tokens", EstimateTokens(cut))
	}
}
