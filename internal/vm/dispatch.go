package vm

import (
	"fmt"

	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/word"
)

// RuntimeError reports a failure during execution, with the offending
// word and instruction pointer for diagnostics.
type RuntimeError struct {
	Word string
	PC   int
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s@%d: %s", e.Word, e.PC, e.Msg)
}

// Run executes w from its start, as a fresh top-level call: w's inputs
// must already be on top of e.Stack.
func (e *Engine) Run(w *word.Word) error {
	return e.call(w)
}

// call invokes target, native or interpreted, with its inputs already on
// top of e.Stack, restoring the caller's frame base on return.
func (e *Engine) call(target *word.Word) error {
	if target.Flags.Native {
		return e.callNative(target)
	}
	saved := e.frameBase
	e.frameBase = len(e.Stack) - len(target.Effect.Inputs)
	e.callStack = append(e.callStack, frame{w: target})
	err := e.runBody(target)
	e.callStack = e.callStack[:len(e.callStack)-1]
	e.frameBase = saved
	return err
}

// runBody drives the tail-dispatch loop over w's compiled instruction
// stream (spec.md §4.1): every opcode handler advances pc or, for a tail
// call, replaces w/pc and continues the same loop without growing the Go
// call stack.
func (e *Engine) runBody(w *word.Word) error {
	pc := 0
	for {
		op := opcode.Op(w.Code[pc])
		e.logf("%s @%d: %s", w.Name, pc, op)

		if n, isCall := op.NAryCount(); isCall {
			ins := opcode.Decode(w.Code, pc)
			tailed := false
			for i := 0; i < n; i++ {
				target := w.WordRefs[ins.Refs[i]]
				if op.IsTail() && i == n-1 {
					if target.Flags.Native {
						return e.callNative(target)
					}
					e.frameBase = len(e.Stack) - len(target.Effect.Inputs)
					e.callStack[len(e.callStack)-1] = frame{w: target}
					w, pc = target, 0
					tailed = true
					break
				}
				if err := e.call(target); err != nil {
					return err
				}
			}
			if !tailed {
				pc += ins.Len
			}
			continue
		}

		ins := opcode.Decode(w.Code, pc)
		switch op {
		case opcode.OpReturn:
			return nil

		case opcode.OpRecurse:
			if err := e.call(w); err != nil {
				return err
			}
			pc += ins.Len

		case opcode.OpBranch:
			pc += ins.Len + int(ins.Offset)

		case opcode.OpZBranch:
			v, ok := e.Pop()
			if !ok {
				return e.errf(w, pc, "stack underflow")
			}
			if value.Truthy(v, e.Heap) {
				pc += ins.Len
			} else {
				pc += ins.Len + int(ins.Offset)
			}

		case opcode.OpLiteral:
			e.Push(ins.Val)
			pc += ins.Len

		case opcode.OpInt:
			e.Push(value.Number(float64(ins.Int)))
			pc += ins.Len

		case opcode.OpGetArg:
			idx := e.frameBase + len(w.Effect.Inputs) - 1 + int(ins.ArgOff)
			if idx < 0 || idx >= len(e.Stack) {
				return e.errf(w, pc, "_GETARG: offset %d out of range", ins.ArgOff)
			}
			e.Push(e.Stack[idx])
			pc += ins.Len

		case opcode.OpSetArg:
			idx := e.frameBase + len(w.Effect.Inputs) - 1 + int(ins.ArgOff)
			v, ok := e.Pop()
			if !ok {
				return e.errf(w, pc, "stack underflow before _SETARG")
			}
			if idx < 0 || idx >= len(e.Stack) {
				return e.errf(w, pc, "_SETARG: offset %d out of range", ins.ArgOff)
			}
			e.Stack[idx] = v
			pc += ins.Len

		case opcode.OpLocals:
			for i := uint8(0); i < ins.Locals; i++ {
				e.Push(value.Null)
			}
			pc += ins.Len

		case opcode.OpDropArgs:
			if len(e.Stack) < int(ins.Locals)+int(ins.Result) {
				return e.errf(w, pc, "stack underflow before _DROPARGS")
			}
			results := append([]value.Value(nil), e.Stack[len(e.Stack)-int(ins.Result):]...)
			e.Stack = e.Stack[:len(e.Stack)-int(ins.Result)-int(ins.Locals)]
			e.Stack = append(e.Stack, results...)
			pc += ins.Len

		default:
			if err := e.doNative(op); err != nil {
				return &RuntimeError{Word: w.Name, PC: pc, Msg: err.Error()}
			}
			pc += ins.Len
		}
	}
}

func (e *Engine) errf(w *word.Word, pc int, format string, args ...interface{}) error {
	return &RuntimeError{Word: w.Name, PC: pc, Msg: fmt.Sprintf(format, args...)}
}

// callNative runs a native word's handler directly (no frame-base change:
// natives carry no _GETARG-addressable locals).
func (e *Engine) callNative(w *word.Word) error {
	e.callStack = append(e.callStack, frame{w: w})
	err := e.doNative(w.NativeOp)
	e.callStack = e.callStack[:len(e.callStack)-1]
	return err
}

// literalsOf scans w's compiled body for OpLiteral operands, used by
// Collect to mark heap objects a word's code embeds directly.
func literalsOf(w *word.Word) []value.Value {
	var out []value.Value
	for pc := 0; pc < len(w.Code); {
		ins := opcode.Decode(w.Code, pc)
		if ins.Op == opcode.OpLiteral {
			out = append(out, ins.Val)
		}
		pc += ins.Len
	}
	return out
}
