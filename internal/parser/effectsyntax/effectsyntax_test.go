package effectsyntax_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/parser/effectsyntax"
)

func TestParseSimpleNumericEffect(t *testing.T) {
	eff, in, out, err := effectsyntax.Parse("(a# b# -- c#)")
	require.NoError(t, err)
	require.Equal(t, []effect.TypeSet{effect.Number, effect.Number}, eff.Inputs)
	require.Equal(t, []effect.TypeSet{effect.Number}, eff.Outputs)
	require.Equal(t, []string{"a", "b"}, in)
	require.Equal(t, []string{"c"}, out)
}

func TestParseWithoutSurroundingParens(t *testing.T) {
	eff, _, _, err := effectsyntax.Parse("a# -- a#")
	require.NoError(t, err)
	require.Equal(t, []effect.TypeSet{effect.Number}, eff.Inputs)
	require.Equal(t, []effect.TypeSet{effect.Number}, eff.Outputs)
}

func TestParseUntypedNameIsAny(t *testing.T) {
	eff, _, _, err := effectsyntax.Parse("(x -- x)")
	require.NoError(t, err)
	require.Equal(t, effect.Any, eff.Inputs[0])
	require.Equal(t, effect.Any, eff.Outputs[0])
}

func TestParseOutputMatchesNamedInput(t *testing.T) {
	eff, _, _, err := effectsyntax.Parse("(a# b# -- b# a#)")
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, eff.OutputMatch)
}

func TestParseOutputWithNoMatchingInputIsUnbound(t *testing.T) {
	eff, _, _, err := effectsyntax.Parse("(a# -- a# r#)")
	require.NoError(t, err)
	require.Equal(t, []int{0, -1}, eff.OutputMatch)
}

func TestParseAllSigils(t *testing.T) {
	eff, _, _, err := effectsyntax.Parse("(a# s$ n? arr[] q{} -- )")
	require.NoError(t, err)
	require.Equal(t, effect.Number, eff.Inputs[0])
	require.Equal(t, effect.String, eff.Inputs[1])
	require.Equal(t, effect.Null, eff.Inputs[2])
	require.Equal(t, effect.Array, eff.Inputs[3])
	require.Equal(t, effect.Quote, eff.Inputs[4])
}

func TestParseMultiSigilUnion(t *testing.T) {
	eff, _, _, err := effectsyntax.Parse("(x#$ -- )")
	require.NoError(t, err)
	require.Equal(t, effect.Number|effect.String, eff.Inputs[0])
}

func TestParseEmptySides(t *testing.T) {
	eff, in, out, err := effectsyntax.Parse("( -- )")
	require.NoError(t, err)
	require.Empty(t, eff.Inputs)
	require.Empty(t, eff.Outputs)
	require.Empty(t, in)
	require.Empty(t, out)
}

func TestParseMissingSeparatorFails(t *testing.T) {
	_, _, _, err := effectsyntax.Parse("(a# b#)")
	require.Error(t, err)
}

func TestParseMalformedArraySigilFails(t *testing.T) {
	_, _, _, err := effectsyntax.Parse("(a[ -- )")
	require.Error(t, err)
}

func TestParseMalformedQuoteSigilFails(t *testing.T) {
	_, _, _, err := effectsyntax.Parse("(a{ -- )")
	require.Error(t, err)
}

func TestParseUnknownSigilFails(t *testing.T) {
	_, _, _, err := effectsyntax.Parse("(a% -- )")
	require.Error(t, err)
}
