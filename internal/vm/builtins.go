package vm

import (
	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/vocabulary"
	"github.com/tails-lang/tails/internal/word"
)

// nativeWord describes one built-in's name, opcode, and declared effect,
// the source Builtins() assembles its vocabulary from.
type nativeWord struct {
	name string
	op   opcode.Op
	eff  effect.StackEffect
}

func fx(inputs, outputs int, match ...int) effect.StackEffect {
	eff := effect.StackEffect{Inputs: make([]effect.TypeSet, inputs), Outputs: make([]effect.TypeSet, outputs)}
	for i := range eff.Inputs {
		eff.Inputs[i] = effect.Any
	}
	eff.OutputMatch = make([]int, outputs)
	for i := range eff.Outputs {
		eff.Outputs[i] = effect.Any
		if i < len(match) {
			eff.OutputMatch[i] = match[i]
		} else {
			eff.OutputMatch[i] = -1
		}
	}
	return eff
}

var nativeWords = []nativeWord{
	{"DROP", opcode.OpDrop, fx(1, 0)},
	{"DUP", opcode.OpDup, fx(1, 2, 0, 0)},
	{"OVER", opcode.OpOver, fx(2, 3, 0, 1, 0)},
	{"ROT", opcode.OpRot, fx(3, 3, 1, 2, 0)},
	{"SWAP", opcode.OpSwap, fx(2, 2, 1, 0)},
	{"NOP", opcode.OpNop, fx(0, 0)},

	{"ZERO", opcode.OpZero, fx(0, 1)},
	{"ONE", opcode.OpOne, fx(0, 1)},

	{"EQ", opcode.OpEq, fx(2, 1)},
	{"NE", opcode.OpNe, fx(2, 1)},
	{"0=", opcode.OpEqZero, fx(1, 1)},
	{"0<>", opcode.OpNeZero, fx(1, 1)},
	{"GE", opcode.OpGe, fx(2, 1)},
	{"GT", opcode.OpGt, fx(2, 1)},
	{"0>", opcode.OpGtZero, fx(1, 1)},
	{"LE", opcode.OpLe, fx(2, 1)},
	{"LT", opcode.OpLt, fx(2, 1)},
	{"0<", opcode.OpLtZero, fx(1, 1)},

	{"PLUS", opcode.OpPlus, fx(2, 1)},
	{"MINUS", opcode.OpMinus, fx(2, 1)},
	{"MULT", opcode.OpMult, fx(2, 1)},
	{"DIV", opcode.OpDiv, fx(2, 1)},
	{"MOD", opcode.OpMod, fx(2, 1)},
	{"ABS", opcode.OpAbs, fx(1, 1)},
	{"MAX", opcode.OpMax, fx(2, 1)},
	{"MIN", opcode.OpMin, fx(2, 1)},

	{"NULL", opcode.OpNull, fx(0, 1)},
	{"LENGTH", opcode.OpLength, fx(1, 1)},

	{"DEFINE", opcode.OpDefine, fx(2, 0)},

	{"PRINT", opcode.OpPrint, fx(1, 0)},
	{"SP", opcode.OpSp, fx(0, 0)},
	{"NL", opcode.OpNl, fx(0, 0)},
	{"NLQ", opcode.OpNlq, fx(0, 0)},

	{"CALL", opcode.OpCall, effect.StackEffect{Dynamic: true}},
	{"IFELSE", opcode.OpIfElse, effect.StackEffect{Dynamic: true}},
}

// Builtins constructs the base vocabulary every Engine starts from:
// every primitive opcode bound to its surface name (spec.md §4.2/§4.9).
func Builtins() *vocabulary.Vocabulary {
	v := vocabulary.New()
	for _, nw := range nativeWords {
		v.Define(word.NewNative(nw.name, nw.op, nw.eff, word.Flags{}))
	}
	return v
}
