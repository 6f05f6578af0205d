package opcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/value"
)

func TestEncodeDecodeBranch(t *testing.T) {
	ins := opcode.Instruction{Op: opcode.OpZBranch, Offset: -12}
	buf := opcode.Encode(nil, ins)
	require.Equal(t, 3, len(buf), "opcode byte plus 16-bit offset")

	got := opcode.Decode(buf, 0)
	require.Equal(t, opcode.OpZBranch, got.Op)
	require.Equal(t, int16(-12), got.Offset)
	require.Equal(t, 3, got.Len)
}

func TestEncodeDecodeLiteral(t *testing.T) {
	v := value.Number(42)
	buf := opcode.Encode(nil, opcode.Instruction{Op: opcode.OpLiteral, Val: v})
	require.Equal(t, 9, len(buf))

	got := opcode.Decode(buf, 0)
	require.Equal(t, opcode.OpLiteral, got.Op)
	require.Equal(t, v, got.Val)
}

func TestEncodeDecodeWordRefMultiArity(t *testing.T) {
	ins := opcode.Instruction{Op: opcode.OpInterp3, Refs: []uint16{1, 2, 3}}
	buf := opcode.Encode(nil, ins)
	require.Equal(t, 1+6, len(buf))

	got := opcode.Decode(buf, 0)
	require.Equal(t, []uint16{1, 2, 3}, got.Refs)
	require.Equal(t, 7, got.Len)
}

func TestEncodeDecodeOffset8(t *testing.T) {
	buf := opcode.Encode(nil, opcode.Instruction{Op: opcode.OpGetArg, ArgOff: -3})
	got := opcode.Decode(buf, 0)
	require.Equal(t, int8(-3), got.ArgOff)
	require.Equal(t, 2, got.Len)
}

func TestEncodeDecodeCounts(t *testing.T) {
	buf := opcode.Encode(nil, opcode.Instruction{Op: opcode.OpDropArgs, Locals: 2, Result: 1})
	got := opcode.Decode(buf, 0)
	require.Equal(t, uint8(2), got.Locals)
	require.Equal(t, uint8(1), got.Result)
}

func TestEncodeDecodeSequenceAtOffset(t *testing.T) {
	var buf []byte
	buf = opcode.Encode(buf, opcode.Instruction{Op: opcode.OpDup})
	second := len(buf)
	buf = opcode.Encode(buf, opcode.Instruction{Op: opcode.OpInt, Int: 7})

	got := opcode.Decode(buf, second)
	require.Equal(t, opcode.OpInt, got.Op)
	require.Equal(t, int16(7), got.Int)
}
