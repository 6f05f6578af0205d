package compiler

import (
	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/word"
)

// Finalize checks c's accumulated entries, marks tail calls, and assembles
// the result into w: Code, WordRefs, Effect and MaxStack (spec.md §4.5
// step 3, §4.6, §4.1). heap resolves quotation literals during checking;
// it may be nil for words that push none.
func (c *Compiler) Finalize(w *word.Word, heap *value.Heap) error {
	if !c.CtrlEmpty() {
		return errAt(0, "%s: unbalanced control structure at end of definition", c.Name)
	}

	inferred, maxStack, err := c.Check(heap)
	if err != nil {
		return err
	}

	markTailCalls(c.entries)

	code, refs, err := assemble(c.entries)
	if err != nil {
		return err
	}

	w.Code = code
	w.WordRefs = refs
	w.MaxStack = maxStack
	if c.declared != nil {
		w.Effect = *c.declared
	} else {
		w.Effect = inferred
	}
	return nil
}

// markTailCalls promotes an entryCall to a tail call when it is the last
// instruction before the word returns with nothing following it but the
// terminal placeholder, a zero-size position mark, or another
// already-tail instruction, mirroring spec.md §4.5 step 3's "last
// interpreted call before a return becomes _TAILINTERP*". Up to four
// consecutive calls right before entryEnd are all marked, since assemble
// later bundles such a run into one _TAILINTERP2/3/4; a position mark
// between two calls ends the run.
func markTailCalls(entries []*entry) {
	run := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.kind == entryEnd || e.kind == entryMark {
			if run > 0 {
				break
			}
			continue
		}
		if e.kind != entryCall || run == 4 {
			break
		}
		e.tail = true
		run++
	}
}

// assemble lowers a finalized entry list to bytecode, bundling runs of up
// to 4 consecutive entryCall instructions (all tail, or all non-tail) into
// the single _INTERPn/_TAILINTERPn opcodes, and resolving branch targets to
// signed 16-bit offsets relative to the byte following the instruction.
func assemble(entries []*entry) ([]byte, []*word.Word, error) {
	// Pass 1: assign a PC to every entry, accounting for call bundling.
	var refs []*word.Word
	refIndex := map[*word.Word]uint16{}
	internRef := func(w *word.Word) uint16 {
		if idx, ok := refIndex[w]; ok {
			return idx
		}
		idx := uint16(len(refs))
		refs = append(refs, w)
		refIndex[w] = idx
		return idx
	}

	type bundle struct {
		first int // index into entries of the bundle's first entryCall
		n     int
		tail  bool
	}
	var bundles []bundle

	pc := 0
	i := 0
	for i < len(entries) {
		e := entries[i]
		if e.kind == entryCall {
			n := 1
			for n < 4 && i+n < len(entries) && entries[i+n].kind == entryCall && entries[i+n].tail == e.tail {
				n++
			}
			bundles = append(bundles, bundle{first: i, n: n, tail: e.tail})
			for k := 0; k < n; k++ {
				entries[i+k].pc = pc
			}
			pc += 1 + 2*n // opcode byte + n word-ref words
			i += n
			continue
		}
		e.pc = pc
		pc += instrSize(e)
		i++
	}
	endPC := pc

	// Pass 2: emit bytes now that every entry's PC (and the final length)
	// is known, so branch offsets can be computed.
	buf := make([]byte, 0, endPC)
	bi := 0
	i = 0
	for i < len(entries) {
		e := entries[i]
		if e.kind == entryCall {
			b := bundles[bi]
			bi++
			op := bundleOp(b.n, b.tail)
			buf = append(buf, byte(op))
			for k := 0; k < b.n; k++ {
				idx := internRef(entries[i+k].word)
				buf = append(buf, byte(idx>>8), byte(idx))
			}
			i += b.n
			continue
		}
		if e.kind == entryMark {
			i++
			continue
		}
		buf = opcode.Encode(buf, entryInstruction(e, endPC))
		i++
	}

	return buf, refs, nil
}

func bundleOp(n int, tail bool) opcode.Op {
	switch {
	case tail && n == 1:
		return opcode.OpTailInterp
	case tail && n == 2:
		return opcode.OpTailInterp2
	case tail && n == 3:
		return opcode.OpTailInterp3
	case tail && n == 4:
		return opcode.OpTailInterp4
	case n == 2:
		return opcode.OpInterp2
	case n == 3:
		return opcode.OpInterp3
	case n == 4:
		return opcode.OpInterp4
	default:
		return opcode.OpInterp
	}
}

// instrSize returns the byte length of e's own instruction (excluding
// entryCall, handled as part of a bundle in assemble).
func instrSize(e *entry) int {
	switch e.kind {
	case entryEnd:
		return 1 // OpReturn
	case entryMark:
		return 0 // pure position bookmark, emits nothing
	case entryLiteral:
		return 1 + 8 // opcode + Value cell
	case entryInt:
		return 1 + 2
	case entryGetArg, entrySetArg:
		return 1 + 1
	case entryLocals:
		return 1 + 1
	case entryDropArgs:
		return 1 + 2
	case entryBranch, entryZBranch:
		return 1 + 2
	case entryRecurse:
		return 1
	case entryNative:
		return 1
	default:
		return 1
	}
}

// entryInstruction builds the opcode.Instruction for every non-bundled
// entry kind, ready for opcode.Encode. The entry's own PC is read from
// e.pc (assigned in assemble's first pass) so branch offsets come out relative
// to the byte following the instruction regardless of emission order.
func entryInstruction(e *entry, endPC int) opcode.Instruction {
	switch e.kind {
	case entryEnd:
		return opcode.Instruction{Op: opcode.OpReturn}
	case entryLiteral:
		return opcode.Instruction{Op: opcode.OpLiteral, Val: e.literal}
	case entryInt:
		return opcode.Instruction{Op: opcode.OpInt, Int: e.intVal}
	case entryGetArg:
		return opcode.Instruction{Op: opcode.OpGetArg, ArgOff: e.argOff}
	case entrySetArg:
		return opcode.Instruction{Op: opcode.OpSetArg, ArgOff: e.argOff}
	case entryLocals:
		return opcode.Instruction{Op: opcode.OpLocals, Locals: e.localsN}
	case entryDropArgs:
		return opcode.Instruction{Op: opcode.OpDropArgs, Locals: e.locals, Result: e.results}
	case entryRecurse:
		return opcode.Instruction{Op: opcode.OpRecurse}
	case entryBranch:
		return opcode.Instruction{Op: opcode.OpBranch, Offset: branchOffset(e, endPC)}
	case entryZBranch:
		return opcode.Instruction{Op: opcode.OpZBranch, Offset: branchOffset(e, endPC)}
	case entryNative:
		return opcode.Instruction{Op: e.nativeOp}
	default:
		return opcode.Instruction{Op: opcode.OpNop}
	}
}

// branchOffset computes e's signed 16-bit jump offset relative to the byte
// following its encoded 3-byte form (opcode + offset). A branch targeting
// the terminal placeholder lands on the word's own _RETURN -- one byte
// before endPC, which is the position just past it.
func branchOffset(e *entry, endPC int) int16 {
	destPC := endPC - 1
	if e.target != nil {
		if e.target.kind == entryEnd {
			destPC = endPC - 1
		} else {
			destPC = e.target.pc
		}
	}
	after := e.pc + 3
	return int16(destPC - after)
}
