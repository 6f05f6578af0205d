// Package effect implements Tails' compile-time type and stack-shape
// vocabulary: TypeSet, StackEffect, the then() combinator, and the
// EffectStack used by the symbolic stack checker (spec.md §4.4, §4.6).
package effect

import (
	"strings"

	"github.com/tails-lang/tails/internal/value"
)

// TypeSet is a small bitmap over {Null, Number, String, Array, Quote}.
type TypeSet uint8

const (
	Null TypeSet = 1 << iota
	Number
	String
	Array
	Quote

	// Any matches every type -- the empty sigil in stack-effect literal
	// syntax (spec.md §4.4).
	Any = Null | Number | String | Array | Quote

	// None is the empty set: matches nothing, used as the zero value
	// distinguishing "unconstrained" (Any) from "impossible" (None)
	// during intersection.
	None TypeSet = 0
)

// Of returns the singleton TypeSet containing v's run-time Kind.
func Of(v value.Value) TypeSet {
	switch v.Kind() {
	case value.KindNull:
		return Null
	case value.KindNumber:
		return Number
	case value.KindString:
		return String
	case value.KindArray:
		return Array
	case value.KindQuote:
		return Quote
	default:
		return None
	}
}

// Union is set union (|).
func (t TypeSet) Union(o TypeSet) TypeSet { return t | o }

// Intersect is set intersection (&).
func (t TypeSet) Intersect(o TypeSet) TypeSet { return t & o }

// Diff is set difference (t - o).
func (t TypeSet) Diff(o TypeSet) TypeSet { return t &^ o }

// Empty reports whether the set matches no type.
func (t TypeSet) Empty() bool { return t == None }

// Contains reports whether every type in o is also in t.
func (t TypeSet) Contains(o TypeSet) bool { return t&o == o }

func (t TypeSet) String() string {
	if t == Any || t == None {
		if t == Any {
			return ""
		}
		return "!"
	}
	var parts []string
	if t&Null != 0 {
		parts = append(parts, "?")
	}
	if t&Number != 0 {
		parts = append(parts, "#")
	}
	if t&String != 0 {
		parts = append(parts, "$")
	}
	if t&Array != 0 {
		parts = append(parts, "[]")
	}
	if t&Quote != 0 {
		parts = append(parts, "{}")
	}
	return strings.Join(parts, "|")
}
