package opcode

import (
	"encoding/binary"

	"github.com/tails-lang/tails/internal/value"
)

// Instruction is the decoded form of one opcode plus its parameter, as
// produced by Decode and consumed by the disassembler, the compiler's
// AddInline, and the vm's dispatch loop.
// Exactly one of the typed fields is meaningful, per Op.ParamShape().
type Instruction struct {
	Op     Op
	Offset int16     // ParamBranch
	Locals uint8     // ParamCounts (left), ParamLocals
	Result uint8     // ParamCounts (right)
	Refs   []uint16  // ParamWordRef -- indices into the owning Word's WordRefs table
	Val    value.Value // ParamValue
	Int    int16     // ParamInt16
	ArgOff int8      // ParamOffset8
	RotN   int8      // ParamRotN

	// Len is the total encoded length in bytes (opcode + parameter),
	// filled in by Decode.
	Len int
}

// paramSize returns the number of parameter bytes following op's opcode byte
// in the encoded stream, given the opcode's nary count where relevant.
func paramSize(op Op, nary int) int {
	switch op.ParamShape() {
	case ParamNone:
		return 0
	case ParamBranch:
		return 2
	case ParamCounts:
		return 2
	case ParamWordRef:
		return 2 * nary
	case ParamValue:
		return 8
	case ParamInt16:
		return 2
	case ParamOffset8:
		return 1
	case ParamLocals:
		return 1
	case ParamRotN:
		return 1
	default:
		return 0
	}
}

// Encode appends ins to buf and returns the result.
func Encode(buf []byte, ins Instruction) []byte {
	buf = append(buf, byte(ins.Op))
	switch ins.Op.ParamShape() {
	case ParamNone:
	case ParamBranch:
		buf = append(buf, 0, 0)
		binary.BigEndian.PutUint16(buf[len(buf)-2:], uint16(ins.Offset))
	case ParamCounts:
		buf = append(buf, ins.Locals, ins.Result)
	case ParamWordRef:
		for _, r := range ins.Refs {
			buf = append(buf, 0, 0)
			binary.BigEndian.PutUint16(buf[len(buf)-2:], r)
		}
	case ParamValue:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(ins.Val))
		buf = append(buf, b[:]...)
	case ParamInt16:
		buf = append(buf, 0, 0)
		binary.BigEndian.PutUint16(buf[len(buf)-2:], uint16(ins.Int))
	case ParamOffset8:
		buf = append(buf, byte(ins.ArgOff))
	case ParamLocals:
		buf = append(buf, ins.Locals)
	case ParamRotN:
		buf = append(buf, byte(ins.RotN))
	}
	return buf
}

// Decode reads one instruction from code starting at pc. For word-ref
// opcodes it determines the number of refs from the opcode itself via
// NAryCount.
func Decode(code []byte, pc int) Instruction {
	op := Op(code[pc])
	nary, _ := op.NAryCount()
	if nary == 0 {
		nary = 1
	}
	size := paramSize(op, nary)
	ins := Instruction{Op: op, Len: 1 + size}
	p := code[pc+1:]
	switch op.ParamShape() {
	case ParamBranch:
		ins.Offset = int16(binary.BigEndian.Uint16(p))
	case ParamCounts:
		ins.Locals, ins.Result = p[0], p[1]
	case ParamWordRef:
		ins.Refs = make([]uint16, nary)
		for i := 0; i < nary; i++ {
			ins.Refs[i] = binary.BigEndian.Uint16(p[2*i:])
		}
	case ParamValue:
		ins.Val = value.Value(binary.BigEndian.Uint64(p))
	case ParamInt16:
		ins.Int = int16(binary.BigEndian.Uint16(p))
	case ParamOffset8:
		ins.ArgOff = int8(p[0])
	case ParamLocals:
		ins.Locals = p[0]
	case ParamRotN:
		ins.RotN = int8(p[0])
	}
	return ins
}
