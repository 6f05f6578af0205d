package effect

import "fmt"

// maxField is the hard byte-sized limit the engine imposes on stack-effect
// fields (input count, max depth growth) so that effects stay cheap to
// pass around, per spec.md §4.4.
const maxField = 255

// ErrOverflow is returned by Then when composing two effects would exceed
// maxField in any field.
type ErrOverflow struct{ Field string }

func (e ErrOverflow) Error() string { return fmt.Sprintf("stack effect overflow: %s", e.Field) }

// StackEffect is a word's declared (or inferred) contract: up to N typed
// inputs (bottom-to-top), up to M typed outputs (bottom-to-top), an
// OutputMatch linking an output to "same value/type as input k", and a
// maximum extra stack depth the word can reach while running.
type StackEffect struct {
	Inputs  []TypeSet
	Outputs []TypeSet

	// OutputMatch[i], if >= 0, says Outputs[i] carries the exact input
	// value/type found at Inputs[OutputMatch[i]] (spec.md §4.4's "output
	// match" link).
	OutputMatch []int

	Max int

	// Dynamic marks an opcode (CALL, IFELSE) whose compile-time effect
	// depends on runtime stack contents and is computed specially by the
	// checker rather than read directly off this declaration.
	Dynamic bool

	// Open marks a not-yet-fully-declared effect (e.g. a quotation being
	// compiled): the checker may grow Inputs by auto-inferring additional
	// inputs at the bottom, per spec.md §4.6.
	Open bool
}

// Net is outputs minus inputs, the change in stack depth across the word.
func (e StackEffect) Net() int { return len(e.Outputs) - len(e.Inputs) }

// Empty is the identity stack effect: no inputs, no outputs, no growth.
var Empty = StackEffect{}

// Then computes the effect of executing a followed by b, per spec.md
// §4.4: inputs = max(a.inputs, b.inputs - a.net); net = a.net + b.net;
// max = max(a.max, b.max + a.net). Field overflow past the engine's
// byte-sized limit is a hard error.
func Then(a, b StackEffect) (StackEffect, error) {
	aIn, aNet, aMax := len(a.Inputs), a.Net(), a.Max
	bIn, bNet, bMax := len(b.Inputs), b.Net(), b.Max

	need := bIn - aNet
	inputs := aIn
	if need > inputs {
		inputs = need
	}
	if inputs > maxField {
		return StackEffect{}, ErrOverflow{"inputs"}
	}

	net := aNet + bNet

	max := aMax
	if m := bMax + aNet; m > max {
		max = m
	}
	if max > maxField || max < 0 {
		return StackEffect{}, ErrOverflow{"max"}
	}

	out := StackEffect{Max: max}
	// Reconstruct typed Inputs/Outputs consistent with (inputs, net):
	// any positions b needs below what a supplies are auto-inferred as
	// Any, mirroring the open-quotation inference rule of spec.md §4.6.
	extra := inputs - aIn
	out.Inputs = make([]TypeSet, 0, inputs)
	for i := 0; i < extra; i++ {
		out.Inputs = append(out.Inputs, Any)
	}
	out.Inputs = append(out.Inputs, a.Inputs...)

	outCount := inputs + net
	if outCount < 0 {
		return StackEffect{}, ErrOverflow{"outputs"}
	}
	out.Outputs = make([]TypeSet, outCount)
	for i := range out.Outputs {
		out.Outputs[i] = Any
	}
	// Preserve b's declared output types for the topmost len(b.Outputs)
	// positions, since those pass through unchanged from b.
	for i, t := range b.Outputs {
		pos := outCount - len(b.Outputs) + i
		if pos >= 0 && pos < len(out.Outputs) {
			out.Outputs[pos] = t
		}
	}
	out.OutputMatch = make([]int, len(out.Outputs))
	for i := range out.OutputMatch {
		out.OutputMatch[i] = -1
	}
	return out, nil
}

// Spec names one input or output slot of a stack-effect literal
// ("(input-spec)* -- (output-spec)*", spec.md §4.4/§6): an identifier
// optionally followed by type sigils from # $ [] {} ?. The lexer/parser
// that produces these from source text lives in
// internal/parser/effectsyntax, to keep this package free of lexing
// concerns.
type Spec struct {
	Name  string
	Types TypeSet
}
