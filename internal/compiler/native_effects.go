package compiler

import (
	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/opcode"
)

// nativeEffects gives the checker a fixed StackEffect for every native
// opcode whose effect does not depend on runtime stack contents. CALL and
// IFELSE are handled specially in checker.go instead.
var nativeEffects = map[opcode.Op]effect.StackEffect{
	opcode.OpDrop: mkEffect(1, 0, nil),
	opcode.OpDup:  mkEffect(1, 2, []int{0, 0}),
	opcode.OpOver: mkEffect(2, 3, []int{0, 1, 0}),
	opcode.OpRot:  mkEffect(3, 3, []int{1, 2, 0}),
	opcode.OpSwap: mkEffect(2, 2, []int{1, 0}),
	opcode.OpNop:  mkEffect(0, 0, nil),

	opcode.OpZero: mkEffect(0, 1, nil),
	opcode.OpOne:  mkEffect(0, 1, nil),

	opcode.OpEq: mkEffect(2, 1, nil),
	opcode.OpNe: mkEffect(2, 1, nil),
	opcode.OpEqZero: mkEffect(1, 1, nil),
	opcode.OpNeZero: mkEffect(1, 1, nil),
	opcode.OpGe: mkEffect(2, 1, nil),
	opcode.OpGt: mkEffect(2, 1, nil),
	opcode.OpGtZero: mkEffect(1, 1, nil),
	opcode.OpLe: mkEffect(2, 1, nil),
	opcode.OpLt: mkEffect(2, 1, nil),
	opcode.OpLtZero: mkEffect(1, 1, nil),

	opcode.OpPlus:  mkEffect(2, 1, nil),
	opcode.OpMinus: mkEffect(2, 1, nil),
	opcode.OpMult:  mkEffect(2, 1, nil),
	opcode.OpDiv:   mkEffect(2, 1, nil),
	opcode.OpMod:   mkEffect(2, 1, nil),
	opcode.OpAbs:   mkEffect(1, 1, nil),
	opcode.OpMax:   mkEffect(2, 1, nil),
	opcode.OpMin:   mkEffect(2, 1, nil),

	opcode.OpNull:   mkEffect(0, 1, nil),
	opcode.OpLength: mkEffect(1, 1, nil),

	opcode.OpDefine: mkEffect(2, 0, nil),

	opcode.OpPrint: mkEffect(1, 0, nil),
	opcode.OpSp:    mkEffect(0, 0, nil),
	opcode.OpNl:    mkEffect(0, 0, nil),
	opcode.OpNlq:   mkEffect(0, 0, nil),
}

// mkEffect builds an untyped (Any-typed) fixed-arity StackEffect; match, if
// non-nil, gives OutputMatch for each output position (index into inputs,
// or -1 meaning "a fresh value").
func mkEffect(inputs, outputs int, match []int) effect.StackEffect {
	eff := effect.StackEffect{Inputs: make([]effect.TypeSet, inputs), Outputs: make([]effect.TypeSet, outputs)}
	for i := range eff.Inputs {
		eff.Inputs[i] = effect.Any
	}
	for i := range eff.Outputs {
		eff.Outputs[i] = effect.Any
	}
	eff.OutputMatch = make([]int, outputs)
	for i := range eff.OutputMatch {
		if match != nil {
			eff.OutputMatch[i] = match[i]
		} else {
			eff.OutputMatch[i] = -1
		}
	}
	return eff
}
