// Package splitter cuts page text into analysis segments sized for one
// generator call. Segments never overlap: every sentence of the page belongs
// to exactly one segment, so the merged analysis has no duplicates.
package splitter

import (
	"strings"

	"github.com/huugi-star/potenote-scanner-sub000/internal/parser"
)

// Segment is one analysis unit: a contiguous slice of the page text.
type Segment struct {
	Index int
	Text  string
}

// Config controls segmenting behavior.
type Config struct {
	SegmentTokens int // Target segment size in tokens.
	MinSegment    int // Minimum segment size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SegmentTokens: 1200,
		MinSegment:    1,
	}
}

// SplitPage segments a parsed page.
func SplitPage(page *parser.Page, cfg Config) []Segment {
	return Split(page.Text, cfg)
}

// Split segments raw text at paragraph boundaries, falling back to sentence
// boundaries for oversized paragraphs.
func Split(text string, cfg Config) []Segment {
	if cfg.SegmentTokens <= 0 {
		cfg.SegmentTokens = 1200
	}
	if cfg.MinSegment <= 0 {
		cfg.MinSegment = 1
	}

	var segments []Segment
	for _, part := range splitText(text, cfg.SegmentTokens) {
		if EstimateTokens(part) < cfg.MinSegment {
			continue
		}
		segments = append(segments, Segment{Index: len(segments), Text: part})
	}
	return segments
}

// splitText breaks text into parts of approximately targetTokens.
func splitText(text string, targetTokens int) []string {
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// A single paragraph above the target splits at sentence boundaries.
		if paraTokens > targetTokens {
			flush()
			result = append(result, splitBySentences(para, targetTokens)...)
			continue
		}

		if currentTokens+paraTokens > targetTokens {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	flush()

	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based parts.
func splitBySentences(text string, targetTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting. Terminators cover both
// English punctuation and the Japanese full stop found in mixed-language
// textbook pages.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '。':
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		case '.', '!', '?':
			if i+1 < len(runes) && runes[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
