package compiler

import (
	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
)

// quoteEffecter is implemented by *word.Word; recovered through the opaque
// value.QuoteRef interface so the checker can type-check CALL/IFELSE
// against a literal quotation's declared effect without an import cycle.
type quoteEffecter interface {
	StackEffect() effect.StackEffect
}

// checkState threads the symbolic stack and diagnostics through one pass
// over a Compiler's entries (spec.md §4.6).
type checkState struct {
	heap    *value.Heap
	inputs  []effect.TypeSet
	cur     *effect.Stack // nil when the current program point is unreachable
	maxSeen int           // peak depth above the declared inputs, for MaxStack

	// open marks a not-yet-fully-declared effect (spec.md §4.6): a
	// quotation with neither a declared effect nor a seeded real stack.
	// apply() grows inputs by auto-inferring additional inputs at the
	// bottom instead of reporting underflow, mirroring the original's
	// compiler+stackcheck.cc effectCanAddInputs/defaultCheckWithEffect.
	open bool
}

// Check runs the symbolic stack checker over c's current entries against
// its declared effect, returning the inferred (or, if declared, validated)
// StackEffect and the measured max extra depth. heap resolves quotation
// literals' declared effects; it may be nil if no entry pushes a Quote
// literal (e.g. a word built purely from AddInline'd native bundles).
func (c *Compiler) Check(heap *value.Heap) (effect.StackEffect, int, error) {
	var inputs []effect.TypeSet
	open := false
	switch {
	case c.declared != nil:
		inputs = c.declared.Inputs
	case c.seed != nil:
		inputs = c.seed
	default:
		open = true
	}

	st := &checkState{heap: heap, inputs: inputs, cur: effect.NewStack(inputs), open: open}

	for _, e := range c.entries {
		if e.memo != nil {
			if st.cur == nil {
				st.cur = e.memo
			} else if !st.cur.Merge(e.memo) {
				return effect.StackEffect{}, 0, errAt(e.source, "inconsistent stack depth at branch join")
			}
		}
		if st.cur == nil {
			// Unreachable: no fallthrough predecessor and nothing branches
			// here either. Nothing to check.
			continue
		}
		// The baseline stays fixed at the compile's original input count
		// even as st.inputs grows from open inference below, mirroring
		// EffectStack's fixed _initialDepth in the original.
		if d := st.cur.Depth() - len(inputs); d > st.maxSeen {
			st.maxSeen = d
		}

		if err := st.step(c, e); err != nil {
			return effect.StackEffect{}, 0, err
		}
	}

	outputs := []effect.TypeSet{}
	if st.cur != nil {
		for _, sl := range st.cur.Slots() {
			outputs = append(outputs, sl.Types)
		}
	}
	inferred := effect.StackEffect{Inputs: st.inputs, Outputs: outputs, Max: st.maxSeen, Open: open}
	inferred.OutputMatch = make([]int, len(outputs))
	for i := range inferred.OutputMatch {
		inferred.OutputMatch[i] = -1
	}
	if c.declared != nil && len(c.declared.Outputs) > 0 && len(outputs) != len(c.declared.Outputs) {
		return effect.StackEffect{}, 0, errAt(0, "%s: declared %d outputs, body leaves %d", c.Name, len(c.declared.Outputs), len(outputs))
	}
	return inferred, st.maxSeen, nil
}

// step applies one entry's effect to st.cur, handling control transfer for
// branches and returning a diagnostic for any failure mode spec.md §4.6
// lists (underflow, type mismatch, bad join, missing RECURSE effect, an
// indeterminate CALL/IFELSE target).
func (st *checkState) step(c *Compiler, e *entry) error {
	switch e.kind {
	case entryEnd, entryMark:
		return nil

	case entryLiteral:
		sl := effect.FromLiteral(e.literal)
		if st.heap != nil && e.literal.Kind() == value.KindQuote {
			if ref := st.heap.QuoteOf(e.literal); ref != nil {
				if qe, ok := ref.(quoteEffecter); ok {
					eff := qe.StackEffect()
					sl.QuoteEffect = &eff
				}
			}
		}
		st.cur.Push(sl)
		return nil

	case entryInt:
		st.cur.Push(effect.FromLiteral(value.Number(float64(e.intVal))))
		return nil

	case entryGetArg:
		idx := len(st.inputs) - 1 + int(e.argOff)
		sl, ok := st.cur.At(idx)
		if !ok {
			return errAt(e.source, "_GETARG: offset %d out of range", e.argOff)
		}
		st.cur.Push(sl)
		return nil

	case entrySetArg:
		idx := len(st.inputs) - 1 + int(e.argOff)
		sl, ok := st.cur.Pop()
		if !ok {
			return errAt(e.source, "stack underflow before _SETARG")
		}
		if !st.cur.SetAt(idx, sl) {
			return errAt(e.source, "_SETARG: offset %d out of range", e.argOff)
		}
		return nil

	case entryLocals:
		for i := uint8(0); i < e.localsN; i++ {
			st.cur.Push(effect.FromType(effect.Null))
		}
		return nil

	case entryDropArgs:
		results := make([]effect.Slot, e.results)
		for i := int(e.results) - 1; i >= 0; i-- {
			sl, ok := st.cur.Pop()
			if !ok {
				return errAt(e.source, "stack underflow before _DROPARGS")
			}
			results[i] = sl
		}
		for i := uint8(0); i < e.locals; i++ {
			if _, ok := st.cur.Pop(); !ok {
				return errAt(e.source, "stack underflow before _DROPARGS")
			}
		}
		for _, sl := range results {
			st.cur.Push(sl)
		}
		return nil

	case entryRecurse:
		if e.recurseEffect == nil {
			return errAt(e.source, "recursive call requires a declared stack effect")
		}
		return st.apply(*e.recurseEffect, e.source)

	case entryCall:
		if e.word.Flags.Native {
			switch e.word.NativeOp {
			case opcode.OpCall:
				return st.checkCall(e.source)
			case opcode.OpIfElse:
				return st.checkIfElse(e.source)
			}
		}
		return st.apply(e.word.Effect, e.source)

	case entryBranch:
		if err := st.join(e.target, e.source); err != nil {
			return err
		}
		st.cur = nil // unconditional: no fallthrough
		return nil

	case entryZBranch:
		if _, ok := st.cur.Pop(); !ok {
			return errAt(e.source, "stack underflow before _ZBRANCH")
		}
		return st.join(e.target, e.source)

	case entryNative:
		switch e.nativeOp {
		case opcode.OpCall:
			return st.checkCall(e.source)
		case opcode.OpIfElse:
			return st.checkIfElse(e.source)
		default:
			eff, ok := nativeEffects[e.nativeOp]
			if !ok {
				return errAt(e.source, "checker: no effect registered for %s", e.nativeOp)
			}
			return st.apply(eff, e.source)
		}

	default:
		return errAt(e.source, "checker: unhandled entry kind")
	}
}

// join records st.cur as an incoming state for target, merging with any
// state already recorded there.
func (st *checkState) join(target *entry, source int) error {
	if target == nil {
		return errAt(source, "branch with no destination")
	}
	if target.memo == nil {
		target.memo = st.cur.Clone()
		return nil
	}
	if !target.memo.Merge(st.cur) {
		return errAt(source, "inconsistent stack depth at branch join")
	}
	return nil
}

// apply pops eff's inputs (checking type compatibility), then pushes its
// outputs, resolving OutputMatch links against the popped inputs. In open
// mode, a failed pop -- which by construction only happens once the
// symbolic stack is completely empty (effect.Stack.Pop never fails
// otherwise) -- synthesizes an Any-typed slot for the missing input and
// prepends its type to st.inputs instead of erroring, per spec.md §4.6.
func (st *checkState) apply(eff effect.StackEffect, source int) error {
	popped := make([]effect.Slot, len(eff.Inputs))
	for i := len(eff.Inputs) - 1; i >= 0; i-- {
		sl, ok := st.cur.Pop()
		want := eff.Inputs[i]
		if !ok {
			if !st.open {
				return errAt(source, "stack underflow: need %d more value(s)", len(eff.Inputs)-i)
			}
			st.inputs = append([]effect.TypeSet{want}, st.inputs...)
			sl = effect.FromType(want)
		} else if !want.Empty() && sl.Types != effect.None && want.Intersect(sl.Types).Empty() {
			return errAt(source, "type mismatch: expected %s, have %s", want, sl.Types)
		}
		popped[i] = sl
	}
	for i, t := range eff.Outputs {
		if len(eff.OutputMatch) > i && eff.OutputMatch[i] >= 0 {
			st.cur.Push(popped[eff.OutputMatch[i]])
			continue
		}
		st.cur.Push(effect.FromType(t))
	}
	return nil
}

// checkCall type-checks CALL: pop a quotation, which must carry a
// statically known declared effect, and apply it.
func (st *checkState) checkCall(source int) error {
	sl, ok := st.cur.Pop()
	if !ok {
		return errAt(source, "stack underflow before CALL")
	}
	if sl.QuoteEffect == nil {
		return errAt(source, "CALL requires a statically known quotation effect")
	}
	return st.apply(*sl.QuoteEffect, source)
}

// checkIfElse type-checks IFELSE: pop (cond, then-quote, else-quote), both
// quotes statically known, and join their effects -- spec.md §4.6's
// requirement that both arms leave the stack at the same depth.
func (st *checkState) checkIfElse(source int) error {
	elseSl, ok := st.cur.Pop()
	if !ok {
		return errAt(source, "stack underflow before IFELSE")
	}
	thenSl, ok := st.cur.Pop()
	if !ok {
		return errAt(source, "stack underflow before IFELSE")
	}
	if _, ok := st.cur.Pop(); !ok { // condition
		return errAt(source, "stack underflow before IFELSE")
	}
	if thenSl.QuoteEffect == nil || elseSl.QuoteEffect == nil {
		return errAt(source, "IFELSE requires statically known quotation effects")
	}

	thenStack := st.cur.Clone()
	elseStack := st.cur.Clone()

	save := st.cur
	st.cur = thenStack
	if err := st.apply(*thenSl.QuoteEffect, source); err != nil {
		return err
	}
	thenStack = st.cur
	st.cur = elseStack
	if err := st.apply(*elseSl.QuoteEffect, source); err != nil {
		return err
	}
	elseStack = st.cur
	st.cur = save

	if !thenStack.Merge(elseStack) {
		return errAt(source, "IFELSE: branches leave the stack at different depths")
	}
	st.cur = thenStack
	return nil
}
