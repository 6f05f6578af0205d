package compiler

import (
	"fmt"
	"strings"

	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/word"
)

// Disassemble renders w's compiled body as "@offset: OPNAME operand" lines,
// one per instruction, following the textual convention of the original
// implementation's disassembler. Word references print the referenced
// word's name; everything else prints its raw operand.
func Disassemble(w *word.Word) string {
	if w.Flags.Native {
		return fmt.Sprintf("; %s is native (%s)\n", w.Name, w.NativeOp)
	}
	var b strings.Builder
	for pc := 0; pc < len(w.Code); {
		ins := opcode.Decode(w.Code, pc)
		fmt.Fprintf(&b, "@%d: %s", pc, ins.Op)
		writeOperand(&b, w, ins, pc)
		b.WriteByte('\n')
		pc += ins.Len
	}
	return b.String()
}

func writeOperand(b *strings.Builder, w *word.Word, ins opcode.Instruction, pc int) {
	switch ins.Op.ParamShape() {
	case opcode.ParamWordRef:
		for _, ref := range ins.Refs {
			b.WriteByte(' ')
			if int(ref) < len(w.WordRefs) {
				b.WriteString(w.WordRefs[ref].Name)
			} else {
				fmt.Fprintf(b, "?%d", ref)
			}
		}
	case opcode.ParamValue:
		fmt.Fprintf(b, " %s", describeValue(ins.Val))
	case opcode.ParamInt16:
		fmt.Fprintf(b, " %d", ins.Int)
	case opcode.ParamOffset8:
		fmt.Fprintf(b, " %d", ins.ArgOff)
	case opcode.ParamLocals:
		fmt.Fprintf(b, " %d", ins.Locals)
	case opcode.ParamCounts:
		fmt.Fprintf(b, " %d %d", ins.Locals, ins.Result)
	case opcode.ParamRotN:
		fmt.Fprintf(b, " %d", ins.RotN)
	case opcode.ParamBranch:
		fmt.Fprintf(b, " @%d", pc+ins.Len+int(ins.Offset))
	}
}

// describeValue renders a literal Value without requiring a Heap: numbers
// print directly, null prints as "null", and heap-backed kinds (long
// strings, arrays, quotes) print their kind tag only, since disassembly
// has no Heap in scope to resolve the handle.
func describeValue(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindNumber:
		f, _ := v.Number()
		return fmt.Sprintf("%g", f)
	case value.KindString:
		if s, ok := shortStringLiteral(v); ok {
			return fmt.Sprintf("%q", s)
		}
		return "<string>"
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// shortStringLiteral recovers an inline short string's content for
// disassembly, the only String form expressible without a Heap. It
// reports false for a heap-backed string.
func shortStringLiteral(v value.Value) (string, bool) {
	h := value.NewHeap()
	s := h.StringOf(v)
	if s == "" && v != value.ShortString("") {
		// A heap handle this Heap doesn't own: its content is unknown
		// without the owning Heap.
		return "", false
	}
	return s, true
}
