package effect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/value"
)

func TestStackPushPopPeek(t *testing.T) {
	s := effect.NewStack([]effect.TypeSet{effect.Number, effect.String})
	require.Equal(t, 2, s.Depth())

	top, ok := s.Peek(0)
	require.True(t, ok)
	require.Equal(t, effect.String, top.Types)

	sl, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, effect.String, sl.Types)
	require.Equal(t, 1, s.Depth())

	_, ok = s.Pop()
	require.True(t, ok)
	_, ok = s.Pop()
	require.False(t, ok, "popping an empty stack must report false")
}

func TestStackPushLiteral(t *testing.T) {
	s := effect.NewStack(nil)
	s.Push(effect.FromLiteral(value.Number(42)))
	sl, ok := s.Peek(0)
	require.True(t, ok)
	require.True(t, sl.HasLit)
	require.Equal(t, value.Number(42), sl.Literal)
}

func TestStackAtAndSetAt(t *testing.T) {
	s := effect.NewStack([]effect.TypeSet{effect.Number, effect.Number})
	sl, ok := s.At(0)
	require.True(t, ok)
	require.Equal(t, effect.Number, sl.Types)

	require.True(t, s.SetAt(0, effect.FromType(effect.String)))
	sl, _ = s.At(0)
	require.Equal(t, effect.String, sl.Types)

	require.False(t, s.SetAt(5, effect.FromType(effect.Number)), "out-of-range SetAt must fail")
}

func TestStackClone(t *testing.T) {
	s := effect.NewStack([]effect.TypeSet{effect.Number})
	cp := s.Clone()
	cp.Push(effect.FromType(effect.String))
	require.Equal(t, 1, s.Depth(), "Clone must not alias the original stack")
	require.Equal(t, 2, cp.Depth())
}

func TestStackMergeRequiresEqualDepth(t *testing.T) {
	a := effect.NewStack([]effect.TypeSet{effect.Number})
	b := effect.NewStack([]effect.TypeSet{effect.Number, effect.String})
	require.False(t, a.Merge(b))
}

func TestStackMergeUnionsTypes(t *testing.T) {
	a := effect.NewStack(nil)
	a.Push(effect.FromType(effect.Number))
	b := effect.NewStack(nil)
	b.Push(effect.FromType(effect.String))

	require.True(t, a.Merge(b))
	sl, _ := a.Peek(0)
	require.Equal(t, effect.Number|effect.String, sl.Types)
}

func TestStackMergeKeepsAgreeingLiteral(t *testing.T) {
	a := effect.NewStack(nil)
	a.Push(effect.FromLiteral(value.Number(7)))
	b := effect.NewStack(nil)
	b.Push(effect.FromLiteral(value.Number(7)))

	require.True(t, a.Merge(b))
	sl, _ := a.Peek(0)
	require.True(t, sl.HasLit)
	require.Equal(t, value.Number(7), sl.Literal)
}

func TestStackMergeDropsDisagreeingLiteral(t *testing.T) {
	a := effect.NewStack(nil)
	a.Push(effect.FromLiteral(value.Number(7)))
	b := effect.NewStack(nil)
	b.Push(effect.FromLiteral(value.Number(8)))

	require.True(t, a.Merge(b))
	sl, _ := a.Peek(0)
	require.False(t, sl.HasLit, "disagreeing literals must not survive a merge")
}
