// Package grammar holds the immutable sentence-analysis model produced by
// the decode pipeline: one Document per accepted generator response.
package grammar

// Document is an ordered sequence of analyzed sentences. It is built once
// by the assembler and read-only afterwards; a new scan produces a new
// Document.
type Document struct {
	Sentences []Sentence `json:"sentences"`
}

// Sentence is one analyzed sentence of the source page.
type Sentence struct {
	Index        int     `json:"index"`
	OriginalText string  `json:"original_text"`
	Translation  string  `json:"translation"`
	Chunks       []Chunk `json:"chunks"`

	// MarkedChunks is the chunk sequence derived from an inline-tagged
	// "marked text" field, kept separate from the explicit Chunks array.
	// Consumers prefer Chunks when both are present.
	MarkedChunks []Chunk `json:"marked_chunks,omitempty"`

	Vocab         []VocabEntry   `json:"vocab"`
	Details       []string       `json:"details"`
	SubStructures []SubStructure `json:"sub_structures"`

	// DetailSynthesized marks Details as generated by the normalizer
	// fallback rather than authored upstream.
	DetailSynthesized bool `json:"detail_synthesized,omitempty"`
}

// DisplayChunks returns the chunk sequence a renderer should walk: the
// explicit array when present, otherwise the tag-derived one.
func (s *Sentence) DisplayChunks() []Chunk {
	if len(s.Chunks) > 0 {
		return s.Chunks
	}
	return s.MarkedChunks
}

// Chunk is the smallest annotated unit of a sentence: a literal span plus
// its grammatical annotation. Text and Translation are always present
// (possibly empty); the remaining annotations are omitted entirely when the
// upstream supplied nothing, which downstream consumers use to tell "no
// annotation" from "empty annotation".
type Chunk struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
	Role        Role   `json:"role"`
	Kind        Kind   `json:"kind"`
	Attribute   string `json:"attribute,omitempty"`
	Meaning     string `json:"meaning,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Modifies    string `json:"modifies,omitempty"`
	Note        string `json:"note,omitempty"`
}

// SubStructure is a zoom-in: the decoded internal grammar of one chunk.
// TargetSpan back-references the parent sentence's chunks by text match;
// the SubStructure owns its chunk tree outright. SubStructures allows one
// further zoom level; the structure is a tree, never a graph.
type SubStructure struct {
	TargetSpan    string         `json:"target_span"`
	AnalyzedText  string         `json:"analyzed_text"`
	Explanation   string         `json:"explanation,omitempty"`
	Chunks        []Chunk        `json:"chunks"`
	SubStructures []SubStructure `json:"sub_structures,omitempty"`
}

// VocabEntry is a vocabulary callout for the sentence.
type VocabEntry struct {
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
}
