// Package word defines Word, the named addressable unit of compiled or
// native code that vocabularies hold and quotations reference (spec.md
// §3).
package word

import (
	"strings"

	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/opcode"
)

// Flags mirror opcode.Flag plus the parameter-kind bits spec.md §3
// mentions for parameterized native words (e.g. _ROTn takes a rotate
// count, _GETARG/_SETARG take an offset).
type Flags struct {
	Native bool
	Magic  bool
	Inline bool

	// HasParam marks a native word that consumes a compile-time
	// parameter token from the postfix parser (spec.md §4.7's "if it
	// requires a parameter, parse the next token as a numeric parameter").
	HasParam bool
}

// NativeFunc is an opaque function type for a native word's runtime
// behavior, declared here rather than importing internal/vm (which would
// cycle back to word). Word has no field of this type and internal/vm does
// not use it: native words are dispatched by their NativeOp.
type NativeFunc func(frame interface{}) interface{}

// Word is a named, addressable unit of code: either native (a handler
// function keyed by its Op) or interpreted (a compiled instruction
// stream).
type Word struct {
	Name   string // upper-case for lookup
	Effect effect.StackEffect
	Flags  Flags

	// NativeOp identifies a native word's opcode, used by the executor to
	// look up its handler in the primitive jump table.
	NativeOp opcode.Op

	// Code is the compiled instruction stream for an interpreted word.
	// WordRefs resolves the small indices an _INTERP*/_TAILINTERP*
	// instruction's Refs field carries.
	Code     []byte
	WordRefs []*Word

	// MaxStack records the word's measured maximum extra stack depth
	// growth, filled in by the stack checker at finalization.
	MaxStack int
}

// New creates an interpreted word stub; Code/WordRefs/Effect are filled
// in by the compiler during finalization.
func New(name string) *Word {
	return &Word{Name: strings.ToUpper(name)}
}

// NewNative creates a native word wired to a primitive opcode.
func NewNative(name string, op opcode.Op, eff effect.StackEffect, flags Flags) *Word {
	flags.Native = true
	return &Word{Name: strings.ToUpper(name), NativeOp: op, Effect: eff, Flags: flags}
}

// StackEffect returns w's declared or inferred effect. It exists so the
// checker can recover a quotation literal's effect through the opaque
// value.QuoteRef interface without importing word back into value.
func (w *Word) StackEffect() effect.StackEffect { return w.Effect }

// Empty reports whether the word's body performs no observable work: no
// code, or code that is immediately _RETURN. Used by value.Heap's
// QuoteEmpty for the _ZBRANCH falsy rule over quotations, and satisfies
// value.QuoteRef.
func (w *Word) Empty() bool {
	if w == nil {
		return true
	}
	if w.Flags.Native {
		return false
	}
	return len(w.Code) == 0 || (len(w.Code) == 1 && opcode.Op(w.Code[0]) == opcode.OpReturn)
}
