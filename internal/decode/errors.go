package decode

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the generator handed back nothing but
// whitespace.
var ErrEmptyInput = errors.New("generator output is empty")

// MalformedError means no structured value was recoverable after every
// repair strategy. Excerpt carries at most the first 200 characters of the
// original input, never the full payload, so logs stay bounded.
type MalformedError struct {
	Excerpt string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("no parseable document in generator output (excerpt: %s)", e.Excerpt)
}

// UnexpectedShapeError means a structured value was recovered but is not
// map-like even after array unwrapping.
type UnexpectedShapeError struct {
	Got string
}

func (e *UnexpectedShapeError) Error() string {
	return fmt.Sprintf("recovered value is %s, expected an object", e.Got)
}

// excerptLimit bounds the diagnostic excerpt carried by MalformedError.
const excerptLimit = 200

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
