package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/logio"
	"github.com/tails-lang/tails/internal/parser/postfix"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vm"
)

type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

func TestEnginePushPop(t *testing.T) {
	e := vm.New()
	e.Push(value.Number(1))
	e.Push(value.Number(2))

	v, ok := e.Pop()
	require.True(t, ok)
	f, _ := v.Number()
	require.Equal(t, 2.0, f)

	v, ok = e.Pop()
	require.True(t, ok)
	f, _ = v.Number()
	require.Equal(t, 1.0, f)

	_, ok = e.Pop()
	require.False(t, ok)
}

func TestEngineWithOutput(t *testing.T) {
	var buf bytes.Buffer
	e := vm.New(vm.WithOutput(&buf))
	p := postfix.New(e.Vocab, e.Heap)
	w, err := p.CompileLine(`"hi" PRINT`, e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w))
	require.Equal(t, "hi", buf.String())
}

func TestEngineWithLogger(t *testing.T) {
	var buf bytes.Buffer
	log := new(logio.Logger)
	log.SetOutput(nopWriteCloser{&buf})

	e := vm.New(vm.WithLogger(log))
	p := postfix.New(e.Vocab, e.Heap)
	w, err := p.CompileLine("1 2 PLUS", e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w))
	require.NotEmpty(t, buf.String())
}

func TestEngineCollectReclaimsUnreachableStrings(t *testing.T) {
	e := vm.New()
	p := postfix.New(e.Vocab, e.Heap)

	w, err := p.CompileLine(`"throwaway" DROP`, e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w))

	freed := e.Collect()
	require.GreaterOrEqual(t, freed, 1)
}

func TestEngineCollectKeepsStackReachableStrings(t *testing.T) {
	e := vm.New()
	p := postfix.New(e.Vocab, e.Heap)

	w, err := p.CompileLine(`"keep me around"`, e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w))

	e.Collect()

	require.NotEmpty(t, e.Stack)
	require.Equal(t, "keep me around", e.Heap.StringOf(e.Stack[len(e.Stack)-1]))
}

func TestEngineCollectKeepsDefinedWordLiterals(t *testing.T) {
	e := vm.New()
	p := postfix.New(e.Vocab, e.Heap)

	w, err := p.CompileLine(`"GREET" { "hello there" } DEFINE`, e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w))

	e.Collect()

	w2, err := p.CompileLine("GREET", e.Stack)
	require.NoError(t, err)
	require.NoError(t, e.Run(w2))

	require.NotEmpty(t, e.Stack)
	require.Equal(t, "hello there", e.Heap.StringOf(e.Stack[len(e.Stack)-1]))
}
