// Package compiler builds Tails words from a front end's calls: an
// ordered list of source-words (spec.md §4.5), control-flow fixups,
// finalization into a checked and assembled instruction stream, plus
// textual disassembly of the result (spec.md §4.1, §9 design notes).
package compiler

import (
	"fmt"

	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/word"
)

// entryKind tags what an IR entry represents.
type entryKind uint8

const (
	entryCall entryKind = iota
	entryLiteral
	entryInt
	entryBranch
	entryZBranch
	entryLocals
	entryDropArgs
	entryGetArg
	entrySetArg
	entryRecurse
	entryNative // a zero-effect-parameter native opcode: DROP, DUP, PLUS, CALL, IFELSE, ...
	entryMark   // zero-size position bookmark, a branch target that isn't the word's own end
	entryEnd    // terminal placeholder, becomes OpReturn
)

// Pos is an opaque, stable handle to one IR entry -- a pointer, which
// remains valid across further Add calls since the entry list is a slice
// of pointers (spec.md §9: "avoid relocating entries between add and
// fixBranch").
type Pos = *entry

type entry struct {
	kind   entryKind
	source int // byte offset into source text, for diagnostics

	word    *word.Word // entryCall
	literal value.Value
	intVal  int16

	target *entry // branch destination

	locals, results uint8 // entryDropArgs
	localsN         uint8 // entryLocals
	argOff          int8  // entryGetArg/entrySetArg

	recurseEffect *effect.StackEffect // entryRecurse

	nativeOp opcode.Op // entryNative

	// tail marks an entryCall promoted to a tail call by markTailCalls.
	tail bool

	// filled in by Finalize's assemble pass
	pc int

	// memoized checker stack snapshot at this entry, for branch-join
	// handling (spec.md §4.6 step 2).
	memo *effect.Stack
}

// ctrlKind tags a pending control-flow-stack entry (spec.md §4.5).
type ctrlKind byte

const (
	CtrlIf    ctrlKind = 'i'
	CtrlElse  ctrlKind = 'e'
	CtrlBegin ctrlKind = 'b'
	CtrlWhile ctrlKind = 'w'
)

type ctrlEntry struct {
	kind ctrlKind
	pos  *entry
}

// CompileError carries a source offset so the caller can print a caret,
// per spec.md §7.
type CompileError struct {
	Source int
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("@%d: %s", e.Source, e.Msg)
}

func errAt(source int, format string, args ...interface{}) error {
	return &CompileError{Source: source, Msg: fmt.Sprintf(format, args...)}
}

// Compiler accumulates one word's IR as a front end parses it.
type Compiler struct {
	Name string

	entries []*entry
	end     *entry // terminal placeholder, always entries[len-1] until Finalize
	ctrl    []ctrlEntry

	declared     *effect.StackEffect
	seed         []effect.TypeSet // real stack types seeded for a top-level compile, non-nil once set
	localsCount  int
}

// New starts compiling a new word named name.
func New(name string) *Compiler {
	c := &Compiler{Name: name}
	c.end = &entry{kind: entryEnd}
	c.entries = append(c.entries, c.end)
	return c
}

// DeclareEffect binds an explicit stack effect (from a leading
// parenthesized declaration, or a quotation literal's signature).
func (c *Compiler) DeclareEffect(eff effect.StackEffect) {
	c.declared = &eff
}

// DeclaredEffect returns the explicitly declared effect, if any.
func (c *Compiler) DeclaredEffect() *effect.StackEffect { return c.declared }

// SeedStack primes the checker with the types actually present on the
// engine's real data stack at the start of a top-level compile, mirroring
// the original's repl.cc setInputStack(): a later REPL line can then
// consume values an earlier line left behind instead of the checker
// reporting a spurious underflow. types may be empty (a confirmed-empty
// real stack), but must be non-nil to take effect; it is ignored once
// DeclareEffect has also been called. Unlike a declared or seeded
// Compiler, one that receives neither call checks in "open" mode instead
// (spec.md §4.6) -- the mode a quotation with no effect literal of its
// own gets, since it has no real stack to seed from.
func (c *Compiler) SeedStack(types []effect.TypeSet) {
	c.seed = types
}

// insertBeforeEnd appends e just before the terminal placeholder, which
// always stays last so it remains a stable "current end" branch target.
func (c *Compiler) insertBeforeEnd(e *entry) *entry {
	n := len(c.entries)
	c.entries[n-1] = e
	c.entries = append(c.entries, c.end)
	return e
}

// Add appends a call to w at source, returning its position.
func (c *Compiler) Add(w *word.Word, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryCall, word: w, source: source})
}

// AddLiteral appends a literal Value push.
func (c *Compiler) AddLiteral(v value.Value, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryLiteral, literal: v, source: source})
}

// AddInt appends a compact integer literal push (OpInt).
func (c *Compiler) AddInt(n int16, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryInt, intVal: n, source: source})
}

// AddNative appends a zero-extra-parameter native opcode (DROP, DUP,
// OVER, SWAP, ROT, NOP, ZERO, ONE, the arithmetic/relational/query
// opcodes, CALL, IFELSE, DEFINE, PRINT, SP, NL, NLQ).
func (c *Compiler) AddNative(op opcode.Op, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryNative, nativeOp: op, source: source})
}

// AddInline splices w's body in place, skipping its trailing OpReturn,
// if w is interpreted; otherwise it behaves like Add. Per spec.md §9,
// this is only safe for words without locals: it is an error to inline a
// word using OpLocals/OpDropArgs.
func (c *Compiler) AddInline(w *word.Word, source int) (Pos, error) {
	if w.Flags.Native || len(w.Code) == 0 {
		return c.Add(w, source), nil
	}

	// byPC maps an original byte offset in w.Code to the entry that will
	// represent it in our own entry list, so that intra-body branch
	// targets re-resolve correctly after the splice. A branch that
	// targeted w's trailing OpReturn (i.e. "fall off the end") instead
	// targets endOfBody, a fresh mark placed right after the spliced
	// body, so execution continues into whatever follows the inline site.
	endOfBody := &entry{kind: entryMark}
	byPC := map[int]*entry{len(w.Code): endOfBody}
	type pending struct {
		e      *entry
		destPC int
	}
	var pendingBranches []pending
	var spliced []*entry

	for pc := 0; pc < len(w.Code); {
		ins := opcode.Decode(w.Code, pc)
		if ins.Op == opcode.OpLocals || ins.Op == opcode.OpDropArgs {
			return nil, errAt(source, "cannot inline %s: uses locals", w.Name)
		}
		if ins.Op == opcode.OpReturn && pc+ins.Len == len(w.Code) {
			break // drop the trailing return, per spec.md §4.5/§9
		}

		var e *entry
		switch {
		case ins.Op.Magic() && func() (isCall bool) { _, isCall = ins.Op.NAryCount(); return }():
			for _, ref := range ins.Refs {
				target := w.WordRefs[ref]
				ce := &entry{kind: entryCall, word: target, source: source}
				spliced = append(spliced, ce)
				if byPC[pc] == nil {
					byPC[pc] = ce // first instruction of a bundle is the join point
				}
			}
			pc += ins.Len
			continue
		case ins.Op == opcode.OpLiteral:
			e = &entry{kind: entryLiteral, literal: ins.Val, source: source}
		case ins.Op == opcode.OpInt:
			e = &entry{kind: entryInt, intVal: ins.Int, source: source}
		case ins.Op == opcode.OpGetArg:
			e = &entry{kind: entryGetArg, argOff: ins.ArgOff, source: source}
		case ins.Op == opcode.OpSetArg:
			e = &entry{kind: entrySetArg, argOff: ins.ArgOff, source: source}
		case ins.Op == opcode.OpRecurse:
			e = &entry{kind: entryCall, word: w, source: source} // self-call to the inlined word
		case ins.Op == opcode.OpBranch:
			e = &entry{kind: entryBranch, source: source}
			pendingBranches = append(pendingBranches, pending{e, pc + ins.Len + int(ins.Offset)})
		case ins.Op == opcode.OpZBranch:
			e = &entry{kind: entryZBranch, source: source}
			pendingBranches = append(pendingBranches, pending{e, pc + ins.Len + int(ins.Offset)})
		default:
			e = &entry{kind: entryNative, nativeOp: ins.Op, source: source}
		}
		spliced = append(spliced, e)
		byPC[pc] = e
		pc += ins.Len
	}

	for _, p := range pendingBranches {
		dest, ok := byPC[p.destPC]
		if !ok {
			return nil, errAt(source, "cannot inline %s: branch lands off an instruction boundary", w.Name)
		}
		p.e.target = dest
	}

	n := len(c.entries)
	c.entries = c.entries[:n-1]
	c.entries = append(c.entries, spliced...)
	c.entries = append(c.entries, endOfBody)
	c.entries = append(c.entries, c.end)
	if len(spliced) == 0 {
		return endOfBody, nil
	}
	return spliced[0], nil
}

// AddBranch appends an unconditional branch with no destination yet set
// (the caller fixes it up later via FixBranch, or sets dest immediately
// for a backward branch).
func (c *Compiler) AddBranch(source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryBranch, source: source})
}

// AddZBranch appends a conditional (pop-and-test) branch.
func (c *Compiler) AddZBranch(source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryZBranch, source: source})
}

// AddBranchBackTo emits an unconditional branch whose destination is
// already known (a BEGIN target, for REPEAT).
func (c *Compiler) AddBranchBackTo(dest Pos, source int) Pos {
	e := &entry{kind: entryBranch, target: dest, source: source}
	return c.insertBeforeEnd(e)
}

// mark drops a zero-size bookmark at the current position, usable as a
// stable branch target even as later Adds extend the entry list. Unlike
// the terminal placeholder, a mark does not imply "the word's own return":
// it simply names wherever it was inserted.
func (c *Compiler) mark() *entry {
	return c.insertBeforeEnd(&entry{kind: entryMark})
}

// FixBranch sets src's destination to a fresh mark at the current
// position (used by IF's THEN, WHILE's exit, etc.) This must not reuse
// the compiler's terminal placeholder: that placeholder always resolves
// to the word's own trailing _RETURN, not to wherever FixBranch happens
// to be called.
func (c *Compiler) FixBranch(src Pos) {
	src.target = c.mark()
}

// End returns a fresh mark at the current position, usable as a branch
// target for "jump to here" fixups.
func (c *Compiler) End() Pos { return c.mark() }

// ReserveLocal ensures an OpLocals prefix entry exists (inserting one at
// the front if necessary) and extends it by one slot, returning the
// positive offset identifying the new slot.
func (c *Compiler) ReserveLocal() int {
	var locE *entry
	if len(c.entries) > 1 && c.entries[0].kind == entryLocals {
		locE = c.entries[0]
	} else {
		locE = &entry{kind: entryLocals}
		c.entries = append([]*entry{locE}, c.entries...)
	}
	locE.localsN++
	c.localsCount++
	return c.localsCount
}

// AddGetArg / AddSetArg append a local/input access by raw (unnormalized)
// offset; the checker re-normalizes at check time (spec.md §4.6).
func (c *Compiler) AddGetArg(off int8, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryGetArg, argOff: off, source: source})
}

func (c *Compiler) AddSetArg(off int8, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entrySetArg, argOff: off, source: source})
}

// AddDropArgs appends the frame-unwind opcode used at the end of a
// locals-using word (explicit Forth usage is rare; the Pratt front end
// always emits one at function end).
func (c *Compiler) AddDropArgs(locals, results uint8, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryDropArgs, locals: locals, results: results, source: source})
}

// AddRecurse appends a call to the word currently being compiled. eff
// must be the word's own declared effect (recursion without one is a
// compile error the checker reports).
func (c *Compiler) AddRecurse(eff *effect.StackEffect, source int) Pos {
	return c.insertBeforeEnd(&entry{kind: entryRecurse, recurseEffect: eff, source: source})
}

// PushCtrl pushes a pending control-flow target.
func (c *Compiler) PushCtrl(kind ctrlKind, pos Pos) {
	c.ctrl = append(c.ctrl, ctrlEntry{kind, pos})
}

// PopCtrl pops the top control-flow entry, requiring its kind be one of
// kinds; else a compile error.
func (c *Compiler) PopCtrl(source int, kinds ...ctrlKind) (ctrlKind, Pos, error) {
	if len(c.ctrl) == 0 {
		return 0, nil, errAt(source, "unbalanced control structure")
	}
	top := c.ctrl[len(c.ctrl)-1]
	ok := false
	for _, k := range kinds {
		if top.kind == k {
			ok = true
			break
		}
	}
	if !ok {
		return 0, nil, errAt(source, "unbalanced control structure: found %q", rune(top.kind))
	}
	c.ctrl = c.ctrl[:len(c.ctrl)-1]
	return top.kind, top.pos, nil
}

// CtrlEmpty reports whether the control-flow stack is empty (used at the
// end of compiling a word to detect a dangling IF/BEGIN).
func (c *Compiler) CtrlEmpty() bool { return len(c.ctrl) == 0 }

// LocalsCount reports how many slots ReserveLocal has handed out so far,
// for a front end computing the frame size _DROPARGS must unwind.
func (c *Compiler) LocalsCount() int { return c.localsCount }
