package grammar

import (
	"regexp"
	"strings"
)

// Role is one of the fixed grammatical codes the renderer colors by.
// Primed variants mark elements of a nested clause; CONN marks connectives;
// NONE marks an unannotated span such as trailing punctuation.
type Role string

const (
	RoleS    Role = "S"
	RoleV    Role = "V"
	RoleO    Role = "O"
	RoleC    Role = "C"
	RoleM    Role = "M"
	RoleSSub Role = "S'"
	RoleVSub Role = "V'"
	RoleOSub Role = "O'"
	RoleCSub Role = "C'"
	RoleMSub Role = "M'"
	RoleConn Role = "CONN"
	RoleNone Role = "NONE"
)

var validRoles = map[Role]bool{
	RoleS: true, RoleV: true, RoleO: true, RoleC: true, RoleM: true,
	RoleSSub: true, RoleVSub: true, RoleOSub: true, RoleCSub: true, RoleMSub: true,
	RoleConn: true, RoleNone: true,
}

// Kind is the coarse lexical class of a chunk. It is always derivable from
// the canonical role; upstream values are accepted only when they match one
// of the four literals verbatim.
type Kind string

const (
	KindNoun      Kind = "noun"
	KindModifier  Kind = "modifier"
	KindVerb      Kind = "verb"
	KindConnector Kind = "connector"
)

var validKinds = map[Kind]bool{
	KindNoun: true, KindModifier: true, KindVerb: true, KindConnector: true,
}

var apostropheRun = regexp.MustCompile(`'+`)

// ParseRole maps an arbitrary role spelling onto the canonical set: trim,
// collapse apostrophe runs, uppercase, then membership check. Anything
// unmatched becomes M, so a misspelled role degrades to a modifier instead
// of dropping the span.
func ParseRole(raw string) Role {
	s := strings.TrimSpace(raw)
	s = apostropheRun.ReplaceAllString(s, "'")
	r := Role(strings.ToUpper(s))
	if validRoles[r] {
		return r
	}
	return RoleM
}

// KindForRole derives the kind from a canonical role.
func KindForRole(r Role) Kind {
	switch r {
	case RoleV, RoleVSub:
		return KindVerb
	case RoleConn:
		return KindConnector
	case RoleM, RoleMSub:
		return KindModifier
	default:
		return KindNoun
	}
}

// ParseKind accepts the four canonical literals verbatim and otherwise
// falls back to the role-derived kind, so a bogus upstream type always
// lands inside the closed set.
func ParseKind(raw string, role Role) Kind {
	if k := Kind(raw); validKinds[k] {
		return k
	}
	return KindForRole(role)
}
