package decode

import (
	"strings"

	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
)

// maxZoomDepth bounds sub-structure recursion. The grammar only models
// zooming into one nested clause, so two levels is already generous.
const maxZoomDepth = 2

// canonChunk maps one raw chunk record onto the canonical model. Text and
// translation always materialize (empty, never absent); the optional
// annotations are carried only when present and non-empty.
func canonChunk(m map[string]any) grammar.Chunk {
	role := grammar.ParseRole(stringField(m, "role"))

	rawKind := stringField(m, "type")
	if rawKind == "" {
		rawKind = stringField(m, "kind")
	}

	return grammar.Chunk{
		Text:        stringField(m, "text"),
		Translation: stringField(m, "translation"),
		Role:        role,
		Kind:        grammar.ParseKind(rawKind, role),
		Attribute:   strings.TrimSpace(stringField(m, "attribute")),
		Meaning:     strings.TrimSpace(stringField(m, "meaning")),
		Explanation: strings.TrimSpace(stringField(m, "explanation")),
		Modifies:    strings.TrimSpace(stringField(m, "modifies")),
		Note:        strings.TrimSpace(stringField(m, "note")),
	}
}

// canonChunkList canonicalizes a raw chunk array in source order. A bare
// string element degrades to an unannotated span; anything else non-map is
// dropped.
func canonChunkList(list []any) []grammar.Chunk {
	out := make([]grammar.Chunk, 0, len(list))
	for _, el := range list {
		switch v := el.(type) {
		case map[string]any:
			out = append(out, canonChunk(v))
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			out = append(out, grammar.Chunk{
				Text: v,
				Role: grammar.RoleNone,
				Kind: grammar.KindForRole(grammar.RoleNone),
			})
		}
	}
	return out
}

// canonSubStructures decodes the zoom-in entries of a sentence (or of a
// parent zoom-in, up to maxZoomDepth). Each entry owns its chunk tree; an
// explicit chunk array wins over tokenizing the analyzed text.
func canonSubStructures(raw any, depth int) []grammar.SubStructure {
	if depth >= maxZoomDepth {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]grammar.SubStructure, 0, len(list))
	for _, el := range list {
		m, isMap := el.(map[string]any)
		if !isMap {
			continue
		}

		analyzed := firstString(m, analyzedAliases)
		chunks := canonChunkList(firstList(m, chunkListAliases))
		if len(chunks) == 0 && strings.TrimSpace(analyzed) != "" {
			chunks = Tokenize(analyzed)
		}

		out = append(out, grammar.SubStructure{
			TargetSpan:    firstString(m, targetSpanAliases),
			AnalyzedText:  analyzed,
			Explanation:   strings.TrimSpace(stringField(m, "explanation")),
			Chunks:        chunks,
			SubStructures: canonSubStructures(m["sub_structures"], depth+1),
		})
	}
	return out
}
