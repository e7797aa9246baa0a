package llm

import "strings"

// AnalysisPrompt instructs the model to diagram every sentence of a segment.
// The response schema mirrors what the decode package canonicalizes, so new
// fields here need a decoding counterpart there.
const AnalysisPrompt = `You are an English grammar teacher for Japanese learners. Analyze every sentence in the following text and return ONE JSON object:

{
  "sentences": [
    {
      "index": 1,
      "original_text": "the sentence exactly as written",
      "translation": "natural Japanese translation",
      "chunks": [
        {
          "text": "literal span from the sentence",
          "translation": "Japanese for this span",
          "role": "S | V | O | C | M | S' | V' | O' | C' | M' | CONN | NONE",
          "type": "noun | verb | modifier | connector",
          "attribute": "optional grammatical note",
          "meaning": "optional core meaning"
        }
      ],
      "marked_text": "the sentence with each span tagged as span<{ROLE:attribute:meaning}>, _ for an absent field",
      "vocab": [{"term": "word", "meaning": "Japanese meaning"}],
      "details": ["explanation paragraphs in Japanese"],
      "sub_structures": [
        {
          "target_span": "the chunk being zoomed into",
          "analyzed_text": "that span with inner tags",
          "explanation": "what the inner structure is"
        }
      ]
    }
  ]
}

Rules:
- Cover every span of each sentence with exactly one chunk, in order.
- Roles: S subject, V verb, O object, C complement, M modifier, CONN connector; primed forms for clause-internal elements.
- Keep chunk "text" character-for-character identical to the source sentence.
- Use "sub_structures" only when a chunk hides a clause worth zooming into.
- Respond with ONLY the JSON object, no other text.`

// BuildSegmentPrompt appends the segment to the prompt template.
func BuildSegmentPrompt(template, segment string) string {
	var sb strings.Builder
	sb.WriteString(template)
	sb.WriteString("\n\n---\n")
	sb.WriteString(segment)
	return sb.String()
}
