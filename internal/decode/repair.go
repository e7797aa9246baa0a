package decode

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	// Fenced-code markers with an optional trailing language tag, stripped
	// wherever they occur.
	fenceRe = regexp.MustCompile("```[a-zA-Z0-9]*")

	// Trailing commas immediately before a closing bracket.
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Repair coerces one raw generator blob into a map-like structured value.
//
// Strategies, in order: strip fences and a leading BOM; slice from the
// first '{' to the last '}' when both exist; drop trailing commas; parse.
// If that fails, parse the un-sliced, un-comma-cleaned text (slicing can
// corrupt an already-valid document). If that fails too, run jsonrepair on
// the brace-sliced candidate and parse once more. Inputs with no brace span
// at all end in MalformedError.
//
// The first-'{'/last-'}' slice is not bracket-depth aware: a stray brace in
// commentary ahead of the document mis-slices. Known limitation, pinned by
// test.
func Repair(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	stripped := strings.TrimPrefix(raw, "\uFEFF")
	stripped = fenceRe.ReplaceAllString(stripped, "")

	candidate := stripped
	sliced := false
	if i := strings.Index(stripped, "{"); i >= 0 {
		if j := strings.LastIndex(stripped, "}"); j > i {
			candidate = stripped[i : j+1]
			sliced = true
		}
	}
	candidate = trailingCommaRe.ReplaceAllString(candidate, "$1")

	var v any
	ok := json.Unmarshal([]byte(candidate), &v) == nil
	if !ok {
		ok = json.Unmarshal([]byte(stripped), &v) == nil
	}
	if !ok && sliced {
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
			ok = json.Unmarshal([]byte(repaired), &v) == nil
		}
	}
	if !ok {
		return nil, &MalformedError{Excerpt: truncate(raw, excerptLimit)}
	}

	// Documented upstream quirk: a single-element array wrapping the
	// intended object.
	if arr, isArr := v.([]any); isArr {
		if len(arr) == 0 {
			return nil, &UnexpectedShapeError{Got: "an empty array"}
		}
		v = arr[0]
	}

	m, isMap := v.(map[string]any)
	if !isMap {
		return nil, &UnexpectedShapeError{Got: shapeName(v)}
	}
	return m, nil
}

func shapeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	default:
		return "an unsupported value"
	}
}
