package types

// TokenCounter is the minimal token counting interface. The memory
// coordinator uses it to size crew memory for LLM context budgeting;
// implementations live outside this package (tiktoken-backed in memory/,
// character-estimate fallback below).
type TokenCounter interface {
	// CountTokens counts tokens in a text string.
	CountTokens(text string) int
}

// EstimateTokenizer provides a simple character-based token estimation.
// Chinese characters average ~1.5 chars/token, everything else ~4.
type EstimateTokenizer struct {
	charsPerToken float64
}

// NewEstimateTokenizer creates a new EstimateTokenizer.
func NewEstimateTokenizer() *EstimateTokenizer {
	return &EstimateTokenizer{charsPerToken: 4.0}
}

// CountTokens counts tokens in text.
func (t *EstimateTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	var cjkCount, otherCount int
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		} else {
			otherCount++
		}
	}
	tokens := float64(cjkCount)/1.5 + float64(otherCount)/t.charsPerToken
	if tokens < 1 {
		return 1
	}
	return int(tokens)
}

// isCJK reports whether r is a CJK ideograph (including extension A),
// kana, or hangul.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3040 && r <= 0x30FF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}

var _ TokenCounter = (*EstimateTokenizer)(nil)
