package decode

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
)

// The generator is prompted with a fixed field vocabulary but drifts. All
// accepted spellings live here and are resolved once at ingestion, never as
// scattered optional lookups at use sites. First present (and, for strings,
// non-empty) alias wins.
var (
	chunkListAliases   = []string{"chunks", "main_structure"}
	translationAliases = []string{"translation", "full_translation", "japanese_translation"}
	targetSpanAliases  = []string{"target_span", "target_text", "target_chunk"}
	analyzedAliases    = []string{"analyzed_text", "marked_text"}
	vocabAliases       = []string{"vocab", "vocabulary"}
	termAliases        = []string{"term", "word"}
)

// sentenceRecords returns the per-sentence records of a repaired value:
// the "sentences" list when present, otherwise the whole value as one
// implicit sentence.
func sentenceRecords(doc map[string]any) []any {
	if raw, ok := doc["sentences"]; ok {
		if list, isList := raw.([]any); isList {
			return list
		}
	}
	return []any{doc}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func firstList(m map[string]any, keys []string) []any {
	for _, k := range keys {
		if list, ok := m[k].([]any); ok {
			return list
		}
	}
	return nil
}

// asString coerces any value to its display string: strings pass through,
// everything else is serialized to its textual form.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// detailStrings coerces the free-text explanation list, dropping elements
// that trim to empty.
func detailStrings(m map[string]any) []string {
	raw, ok := m["details"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, el := range raw {
		s := asString(el)
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// synthesizeDetail builds the deterministic fallback paragraph for a
// sentence whose generator response carried chunks but no explanation, so
// the renderer always has something to show. The caller flags the result
// as synthesized.
func synthesizeDetail(text, translation string, chunks []grammar.Chunk) string {
	spans := make([]string, 0, len(chunks))
	for _, c := range chunks {
		spans = append(spans, fmt.Sprintf("%s(%s)", c.Text, c.Role))
	}

	subject := firstTextByRole(chunks, grammar.RoleS, grammar.RoleSSub)
	verb := firstTextByRole(chunks, grammar.RoleV, grammar.RoleVSub)
	object := firstTextByRole(chunks, grammar.RoleO, grammar.RoleOSub, grammar.RoleC, grammar.RoleCSub)

	var mods []string
	for _, c := range chunks {
		if strings.HasPrefix(string(c.Role), "M") {
			mods = append(mods, c.Text)
		}
	}

	return fmt.Sprintf("%s\n%s\n主語: %s / 動詞: %s / 目的語・補語: %s / 修飾語: %s\n訳: %s",
		text,
		strings.Join(spans, " | "),
		subject, verb, object,
		strings.Join(mods, " "),
		translation,
	)
}

func firstTextByRole(chunks []grammar.Chunk, roles ...grammar.Role) string {
	for _, c := range chunks {
		for _, r := range roles {
			if c.Role == r {
				return c.Text
			}
		}
	}
	return ""
}

func canonVocab(m map[string]any) []grammar.VocabEntry {
	list := firstList(m, vocabAliases)
	out := make([]grammar.VocabEntry, 0, len(list))
	for _, el := range list {
		em, ok := el.(map[string]any)
		if !ok {
			continue
		}
		term := strings.TrimSpace(firstString(em, termAliases))
		if term == "" {
			continue
		}
		out = append(out, grammar.VocabEntry{
			Term:    term,
			Meaning: strings.TrimSpace(stringField(em, "meaning")),
		})
	}
	return out
}
