package decode

import (
	"strings"

	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
)

// The marked-text mini-language: literal spans interleaved with tags of the
// form <{ROLE}>, <{ROLE:ATTR}> or <{ROLE:ATTR:MEANING}>, where a tag always
// follows the span it annotates. An underscore field means "absent". There
// is no escape syntax: a literal "<{" in prose is consumed as a tag, a
// decided and tested boundary of the format.
const (
	tagOpen  = "<{"
	tagClose = "}>"

	placeholder = "_"
)

// Tokenize parses one marked-text string into its ordered chunk sequence.
// Purely lexical: tag placement is trusted, never re-derived from the
// literal text. Text after the final tag (or the entire string when no tag
// occurs) becomes an unannotated NONE chunk; adjacent unannotated spans are
// never merged.
func Tokenize(marked string) []grammar.Chunk {
	var out []grammar.Chunk

	rest := marked
	for {
		i := strings.Index(rest, tagOpen)
		if i < 0 {
			break
		}
		j := strings.Index(rest[i+len(tagOpen):], tagClose)
		if j < 0 {
			// Unterminated tag: the remainder is literal text.
			break
		}

		span := strings.TrimSpace(rest[:i])
		content := rest[i+len(tagOpen) : i+len(tagOpen)+j]
		rest = rest[i+len(tagOpen)+j+len(tagClose):]

		if span == "" {
			continue
		}
		out = append(out, tagChunk(span, content))
	}

	if tail := strings.TrimSpace(rest); tail != "" {
		out = append(out, grammar.Chunk{
			Text: tail,
			Role: grammar.RoleNone,
			Kind: grammar.KindForRole(grammar.RoleNone),
		})
	}
	return out
}

// tagChunk builds the chunk for one annotated span from the tag's ordered
// role:attribute:meaning fields.
func tagChunk(span, content string) grammar.Chunk {
	fields := strings.SplitN(content, ":", 3)
	for len(fields) < 3 {
		fields = append(fields, "")
	}

	role := grammar.ParseRole(tagField(fields[0]))
	return grammar.Chunk{
		Text:      span,
		Role:      role,
		Kind:      grammar.KindForRole(role),
		Attribute: tagField(fields[1]),
		Meaning:   tagField(fields[2]),
	}
}

func tagField(s string) string {
	s = strings.TrimSpace(s)
	if s == placeholder {
		return ""
	}
	return s
}
