package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/vm"
)

func TestBuiltinsRegistersCoreWords(t *testing.T) {
	base := vm.Builtins()
	for _, name := range []string{
		"DROP", "DUP", "OVER", "ROT", "SWAP", "NOP",
		"PLUS", "MINUS", "MULT", "DIV", "MOD", "ABS", "MAX", "MIN",
		"EQ", "NE", "GE", "GT", "LE", "LT", "0=", "0<>", "0>", "0<",
		"NULL", "LENGTH", "DEFINE", "PRINT", "SP", "NL", "NLQ",
		"CALL", "IFELSE",
	} {
		_, ok := base.Lookup(name)
		require.True(t, ok, "missing builtin %q", name)
	}
}

func TestBuiltinsAreNative(t *testing.T) {
	base := vm.Builtins()
	w, ok := base.Lookup("DUP")
	require.True(t, ok)
	require.True(t, w.Flags.Native)
}

func TestBuiltinsEachEngineGetsItsOwnVocabularyInstance(t *testing.T) {
	a := vm.New()
	b := vm.New()
	require.NotSame(t, a.Vocab, b.Vocab)
}
