package vm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/parser/postfix"
	"github.com/tails-lang/tails/internal/vm"
)

func TestDispatchRuntimeErrorOnNonStringDefineName(t *testing.T) {
	e := vm.New()
	p := postfix.New(e.Vocab, e.Heap)

	// DEFINE's declared effect accepts any two values statically; only at
	// runtime is the name checked to actually be a string.
	w, err := p.CompileLine(`1 { 2 } DEFINE`, e.Stack)
	require.NoError(t, err)

	runErr := e.Run(w)
	require.Error(t, runErr)

	var rte *vm.RuntimeError
	require.True(t, errors.As(runErr, &rte))
	require.Equal(t, "<line 1>", rte.Word)
}

func TestDispatchDeepRecurseCompletes(t *testing.T) {
	e := vm.New()
	p := postfix.New(e.Vocab, e.Heap)

	def := `"COUNTDOWN" { (n# -- n#) DUP 0= IF ELSE 1 MINUS RECURSE THEN } DEFINE`
	w, err := p.CompileLine(def, e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w))

	w2, err := p.CompileLine("2000 COUNTDOWN", e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w2))

	require.NotEmpty(t, e.Stack)
	require.Equal(t, "0", goldenTopOfStack(e, e.Stack[len(e.Stack)-1]))
}
