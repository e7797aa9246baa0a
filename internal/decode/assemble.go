// Package decode turns unreliable generator output into the strongly-typed
// grammar model. The pipeline is pure and stateless: no I/O, no logging,
// no shared mutable state, safe for any number of concurrent callers.
package decode

import (
	"strings"

	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
)

// Assemble decodes one raw generator response into a Document. sourceText
// is the page text the response was generated from; it backfills
// original_text when the generator omitted it. Referentially transparent:
// identical input, identical Document.
func Assemble(raw, sourceText string) (*grammar.Document, error) {
	m, err := Repair(raw)
	if err != nil {
		return nil, err
	}
	return AssembleValue(m, sourceText), nil
}

// AssembleValue builds a Document from an already-repaired value. Once the
// outer shape is accepted a malformed sentence record never aborts the
// batch: it degrades to an empty-but-valid Sentence.
func AssembleValue(doc map[string]any, sourceText string) *grammar.Document {
	records := sentenceRecords(doc)
	sentences := make([]grammar.Sentence, 0, len(records))
	for i, rec := range records {
		sentences = append(sentences, buildSentence(i, rec, sourceText))
	}
	return &grammar.Document{Sentences: sentences}
}

func buildSentence(i int, rec any, sourceText string) grammar.Sentence {
	m, ok := rec.(map[string]any)
	if !ok {
		// Degraded record. A bare string at least keeps its text.
		s := emptySentence(i + 1)
		if str, isStr := rec.(string); isStr {
			s.OriginalText = str
		}
		return s
	}

	idx := i + 1
	if n, isNum := m["index"].(float64); isNum && int(n) > 0 {
		idx = int(n)
	}

	original := stringField(m, "original_text")
	if original == "" {
		original = sourceText
	}

	chunks := canonChunkList(firstList(m, chunkListAliases))

	var marked []grammar.Chunk
	if mt := stringField(m, "marked_text"); strings.TrimSpace(mt) != "" {
		marked = Tokenize(mt)
	}

	translation := firstString(m, translationAliases)
	details := detailStrings(m)

	// The renderer always needs something to show: a sentence that arrived
	// with chunks but no explanation gets one deterministic paragraph,
	// flagged as synthesized.
	synthesized := false
	if len(details) == 0 {
		if basis := preferExplicit(chunks, marked); len(basis) > 0 {
			details = []string{synthesizeDetail(original, translation, basis)}
			synthesized = true
		}
	}

	if details == nil {
		details = []string{}
	}

	subs := canonSubStructures(m["sub_structures"], 0)
	if subs == nil {
		subs = []grammar.SubStructure{}
	}

	return grammar.Sentence{
		Index:             idx,
		OriginalText:      original,
		Translation:       translation,
		Chunks:            chunks,
		MarkedChunks:      marked,
		Vocab:             canonVocab(m),
		Details:           details,
		SubStructures:     subs,
		DetailSynthesized: synthesized,
	}
}

func preferExplicit(chunks, marked []grammar.Chunk) []grammar.Chunk {
	if len(chunks) > 0 {
		return chunks
	}
	return marked
}

func emptySentence(index int) grammar.Sentence {
	return grammar.Sentence{
		Index:         index,
		Chunks:        []grammar.Chunk{},
		Vocab:         []grammar.VocabEntry{},
		Details:       []string{},
		SubStructures: []grammar.SubStructure{},
	}
}
