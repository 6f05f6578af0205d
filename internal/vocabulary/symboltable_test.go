package vocabulary_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/vocabulary"
)

func TestSymbolTableLookupOwnScope(t *testing.T) {
	root := vocabulary.NewSymbolTable()
	sym := &vocabulary.Symbol{Name: "x", Kind: vocabulary.SymbolParam, Type: effect.Number}
	root.Define(sym)

	got, ok := root.Lookup("x")
	require.True(t, ok)
	require.Same(t, sym, got)
}

func TestSymbolTableLookupFallsBackToParent(t *testing.T) {
	root := vocabulary.NewSymbolTable()
	root.Define(&vocabulary.Symbol{Name: "outer"})
	child := root.Push()

	got, ok := child.Lookup("outer")
	require.True(t, ok)
	require.Equal(t, "outer", got.Name)
}

func TestSymbolTableChildShadowsParent(t *testing.T) {
	root := vocabulary.NewSymbolTable()
	root.Define(&vocabulary.Symbol{Name: "x", Offset: 1})
	child := root.Push()
	child.Define(&vocabulary.Symbol{Name: "x", Offset: 2})

	got, ok := child.Lookup("x")
	require.True(t, ok)
	require.Equal(t, 2, got.Offset)

	got, ok = root.Lookup("x")
	require.True(t, ok)
	require.Equal(t, 1, got.Offset)
}

func TestSymbolTableParent(t *testing.T) {
	root := vocabulary.NewSymbolTable()
	require.Nil(t, root.Parent())

	child := root.Push()
	require.Same(t, root, child.Parent())
}

func TestSymbolTableLocalNamesExcludesAncestors(t *testing.T) {
	root := vocabulary.NewSymbolTable()
	root.Define(&vocabulary.Symbol{Name: "outer"})
	child := root.Push()
	child.Define(&vocabulary.Symbol{Name: "inner"})

	locals := child.LocalNames()
	require.Len(t, locals, 1)
	_, ok := locals["inner"]
	require.True(t, ok)
}

func TestSymbolTableLookupMissing(t *testing.T) {
	root := vocabulary.NewSymbolTable()
	_, ok := root.Lookup("nope")
	require.False(t, ok)
}
