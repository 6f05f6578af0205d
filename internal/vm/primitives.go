package vm

import (
	"fmt"
	"strings"

	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/word"
)

// doNative executes a primitive opcode's runtime behavior against e.Stack
// and e.Heap (spec.md §4.2). It is the implementation side of the effects
// internal/compiler's checker declares for the same opcodes.
func (e *Engine) doNative(op opcode.Op) error {
	switch op {
	case opcode.OpDrop:
		_, ok := e.pop1()
		return errIf(!ok, "DROP: stack underflow")

	case opcode.OpDup:
		v, ok := e.top(0)
		if !ok {
			return errIf(true, "DUP: stack underflow")
		}
		e.Push(v)

	case opcode.OpOver:
		v, ok := e.top(1)
		if !ok {
			return errIf(true, "OVER: stack underflow")
		}
		e.Push(v)

	case opcode.OpSwap:
		b, okb := e.pop1()
		a, oka := e.pop1()
		if !oka || !okb {
			return errIf(true, "SWAP: stack underflow")
		}
		e.Push(b)
		e.Push(a)

	case opcode.OpRot:
		c, okc := e.pop1()
		b, okb := e.pop1()
		a, oka := e.pop1()
		if !oka || !okb || !okc {
			return errIf(true, "ROT: stack underflow")
		}
		e.Push(b)
		e.Push(c)
		e.Push(a)

	case opcode.OpNop:

	case opcode.OpZero:
		e.Push(value.Number(0))

	case opcode.OpOne:
		e.Push(value.Number(1))

	case opcode.OpEq, opcode.OpNe:
		b, a, ok := e.pop2()
		if !ok {
			return errIf(true, "stack underflow")
		}
		eq := value.Equal(a, b, e.Heap)
		if op == opcode.OpNe {
			eq = !eq
		}
		e.Push(boolValue(eq))

	case opcode.OpEqZero, opcode.OpNeZero:
		a, ok := e.pop1()
		if !ok {
			return errIf(true, "stack underflow")
		}
		eq := value.Equal(a, value.Number(0), e.Heap)
		if op == opcode.OpNeZero {
			eq = !eq
		}
		e.Push(boolValue(eq))

	case opcode.OpGe, opcode.OpGt, opcode.OpLe, opcode.OpLt:
		b, a, ok := e.pop2()
		if !ok {
			return errIf(true, "stack underflow")
		}
		lt := value.Less(a, b, e.Heap)
		gt := value.Less(b, a, e.Heap)
		var r bool
		switch op {
		case opcode.OpGe:
			r = !lt
		case opcode.OpGt:
			r = gt
		case opcode.OpLe:
			r = !gt
		case opcode.OpLt:
			r = lt
		}
		e.Push(boolValue(r))

	case opcode.OpGtZero, opcode.OpLtZero:
		a, ok := e.pop1()
		if !ok {
			return errIf(true, "stack underflow")
		}
		zero := value.Number(0)
		var r bool
		if op == opcode.OpGtZero {
			r = value.Less(zero, a, e.Heap)
		} else {
			r = value.Less(a, zero, e.Heap)
		}
		e.Push(boolValue(r))

	case opcode.OpPlus:
		b, a, ok := e.pop2()
		if !ok {
			return errIf(true, "stack underflow")
		}
		e.Push(e.plus(a, b))

	case opcode.OpMinus, opcode.OpMult, opcode.OpDiv, opcode.OpMod, opcode.OpMax, opcode.OpMin:
		b, a, ok := e.pop2()
		if !ok {
			return errIf(true, "stack underflow")
		}
		e.Push(arith(op, a, b))

	case opcode.OpAbs:
		a, ok := e.pop1()
		if !ok {
			return errIf(true, "stack underflow")
		}
		f, isNum := a.Number()
		if !isNum {
			e.Push(value.Null)
		} else if f < 0 {
			e.Push(value.Number(-f))
		} else {
			e.Push(a)
		}

	case opcode.OpNull:
		e.Push(value.Null)

	case opcode.OpLength:
		a, ok := e.pop1()
		if !ok {
			return errIf(true, "stack underflow")
		}
		n, isLen := e.Heap.Length(a)
		if !isLen {
			e.Push(value.Null)
		} else {
			e.Push(value.Number(float64(n)))
		}

	case opcode.OpDefine:
		quote, okq := e.pop1()
		name, okn := e.pop1()
		if !okq || !okn {
			return errIf(true, "DEFINE: stack underflow")
		}
		return e.define(name, quote)

	case opcode.OpPrint:
		v, ok := e.pop1()
		if !ok {
			return errIf(true, "PRINT: stack underflow")
		}
		e.print(v)

	case opcode.OpSp:
		e.writeOut(" ")

	case opcode.OpNl:
		e.writeOut("\n")

	case opcode.OpNlq:
		e.writeOut("\n")
		for i := len(e.Stack) - 1; i >= 0; i-- {
			e.print(e.Stack[i])
			e.writeOut(" ")
		}
		e.writeOut("\n")

	case opcode.OpCall:
		quote, ok := e.pop1()
		if !ok {
			return errIf(true, "CALL: stack underflow")
		}
		return e.callQuote(quote)

	case opcode.OpIfElse:
		elseQ, ok1 := e.pop1()
		thenQ, ok2 := e.pop1()
		cond, ok3 := e.pop1()
		if !ok1 || !ok2 || !ok3 {
			return errIf(true, "IFELSE: stack underflow")
		}
		if value.Truthy(cond, e.Heap) {
			return e.callQuote(thenQ)
		}
		return e.callQuote(elseQ)

	default:
		return fmt.Errorf("unimplemented native opcode %s", op)
	}
	return nil
}

func (e *Engine) pop1() (value.Value, bool) { return e.Pop() }

func (e *Engine) pop2() (b, a value.Value, ok bool) {
	b, okb := e.Pop()
	a, oka := e.Pop()
	return b, a, oka && okb
}

func (e *Engine) top(depth int) (value.Value, bool) {
	i := len(e.Stack) - 1 - depth
	if i < 0 || i >= len(e.Stack) {
		return value.Null, false
	}
	return e.Stack[i], true
}

func boolValue(b bool) value.Value {
	if b {
		return value.Number(1)
	}
	return value.Number(0)
}

func errIf(cond bool, msg string) error {
	if cond {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// plus implements PLUS's overload: numeric addition, or string
// concatenation/array append via Heap.Concat (spec.md §4.2).
func (e *Engine) plus(a, b value.Value) value.Value {
	af, aIsNum := a.Number()
	bf, bIsNum := b.Number()
	if aIsNum && bIsNum {
		return value.Number(af + bf)
	}
	v, ok := e.Heap.Concat(a, b)
	if !ok {
		return value.Null
	}
	return v
}

func arith(op opcode.Op, a, b value.Value) value.Value {
	af, aok := a.Number()
	bf, bok := b.Number()
	if !aok || !bok {
		return value.Null
	}
	switch op {
	case opcode.OpMinus:
		return value.Number(af - bf)
	case opcode.OpMult:
		return value.Number(af * bf)
	case opcode.OpDiv:
		if bf == 0 {
			return value.Null
		}
		return value.Number(af / bf)
	case opcode.OpMod:
		if bf == 0 {
			return value.Null
		}
		m := af - bf*float64(int64(af/bf))
		return value.Number(m)
	case opcode.OpMax:
		if af > bf {
			return value.Number(af)
		}
		return value.Number(bf)
	case opcode.OpMin:
		if af < bf {
			return value.Number(af)
		}
		return value.Number(bf)
	default:
		return value.Null
	}
}

// callQuote runs the word a Quote Value refers to, as a non-tail CALL.
func (e *Engine) callQuote(q value.Value) error {
	ref := e.Heap.QuoteOf(q)
	target, ok := ref.(*word.Word)
	if !ok || target == nil {
		return fmt.Errorf("CALL/IFELSE: not a quotation")
	}
	return e.call(target)
}

// define installs name (a String Value) as a word bound to quote's
// referenced compiled body in the current (innermost) vocabulary scope,
// per spec.md §4.9's "DEFINE adds a binding to the current vocabulary".
func (e *Engine) define(name, quote value.Value) error {
	if name.Kind() != value.KindString {
		return fmt.Errorf("DEFINE: name must be a string")
	}
	target, ok := e.Heap.QuoteOf(quote).(*word.Word)
	if !ok || target == nil {
		return fmt.Errorf("DEFINE: value must be a quotation")
	}
	bound := *target
	bound.Name = strings.ToUpper(e.Heap.StringOf(name))
	e.Vocab.Current().Define(&bound)
	return nil
}

// print writes v's textual representation to the engine's output stream
// (spec.md §6's PRINT).
func (e *Engine) print(v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		e.writeOut("null")
	case value.KindNumber:
		f, _ := v.Number()
		e.writeOut(fmt.Sprintf("%g", f))
	case value.KindString:
		e.writeOut(e.Heap.StringOf(v))
	case value.KindArray:
		e.writeOut("[")
		for i, el := range e.Heap.ArrayOf(v) {
			if i > 0 {
				e.writeOut(" ")
			}
			e.print(el)
		}
		e.writeOut("]")
	case value.KindQuote:
		e.writeOut("{...}")
	}
}

func (e *Engine) writeOut(s string) {
	if e.out != nil {
		fmt.Fprint(e.out, s)
	}
}
