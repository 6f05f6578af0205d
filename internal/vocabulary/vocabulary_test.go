package vocabulary_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/vocabulary"
	"github.com/tails-lang/tails/internal/word"
)

func TestVocabularyDefineLookupCaseInsensitive(t *testing.T) {
	v := vocabulary.New()
	w := word.New("square")
	v.Define(w)

	got, ok := v.Lookup("SQUARE")
	require.True(t, ok)
	require.Same(t, w, got)

	got, ok = v.Lookup("square")
	require.True(t, ok)
	require.Same(t, w, got)

	_, ok = v.Lookup("missing")
	require.False(t, ok)
}

func TestVocabularyNames(t *testing.T) {
	v := vocabulary.New()
	v.Define(word.New("a"))
	v.Define(word.New("b"))
	require.ElementsMatch(t, []string{"A", "B"}, v.Names())
}

func TestStackLookupSearchesInnermostFirst(t *testing.T) {
	base := vocabulary.New()
	outer := word.New("foo")
	base.Define(outer)

	s := vocabulary.NewStack(base)
	inner := s.Push()
	shadow := word.New("foo")
	inner.Define(shadow)

	got, ok := s.Lookup("foo")
	require.True(t, ok)
	require.Same(t, shadow, got, "inner scope must shadow the outer one")
}

func TestStackPopFallsBackToOuterScope(t *testing.T) {
	base := vocabulary.New()
	s := vocabulary.NewStack(base)
	s.Push()
	s.Pop()
	require.Same(t, base, s.Current())
}

func TestStackPopNeverRemovesBaseScope(t *testing.T) {
	base := vocabulary.New()
	s := vocabulary.NewStack(base)
	s.Pop()
	require.Same(t, base, s.Current(), "popping the last scope must be a no-op")
}

func TestStackCurrentReceivesNewDefinitions(t *testing.T) {
	base := vocabulary.New()
	s := vocabulary.NewStack(base)
	inner := s.Push()

	w := word.New("bar")
	s.Current().Define(w)

	got, ok := inner.Lookup("bar")
	require.True(t, ok)
	require.Same(t, w, got)
}

func TestStackScopesAndAllWords(t *testing.T) {
	base := vocabulary.New()
	base.Define(word.New("one"))
	s := vocabulary.NewStack(base)
	inner := s.Push()
	inner.Define(word.New("two"))

	require.Equal(t, 2, len(s.Scopes()))
	require.Equal(t, 2, len(s.AllWords()))
}
