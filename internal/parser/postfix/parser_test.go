package postfix_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/parser/postfix"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vm"
)

func topOfStack(engine *vm.Engine, v value.Value) string {
	switch v.Kind() {
	case value.KindNumber:
		f, _ := v.Number()
		return fmt.Sprintf("%g", f)
	case value.KindString:
		return engine.Heap.StringOf(v)
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

func compileAndRun(t *testing.T, engine *vm.Engine, lines ...string) string {
	t.Helper()
	p := postfix.New(engine.Vocab, engine.Heap)
	for _, line := range lines {
		w, err := p.CompileLine(line, engine.Stack)
		require.NoError(t, err)
		require.NoError(t, engine.Run(w))
	}
	require.NotEmpty(t, engine.Stack)
	return topOfStack(engine, engine.Stack[len(engine.Stack)-1])
}

func TestParserArrayLiteral(t *testing.T) {
	engine := vm.New()
	require.Equal(t, "3", compileAndRun(t, engine, "[1 2 3] LENGTH"))
}

func TestParserNestedArrayLiteral(t *testing.T) {
	engine := vm.New()
	require.Equal(t, "2", compileAndRun(t, engine, "[[1 2] [3 4]] LENGTH"))
}

func TestParserArrayLiteralRejectsBareWords(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("[1 PLUS]", nil)
	require.Error(t, err)
}

func TestParserUnterminatedArrayFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("[1 2", nil)
	require.Error(t, err)
}

func TestParserQuoteLiteral(t *testing.T) {
	engine := vm.New()
	require.Equal(t, "25", compileAndRun(t, engine, "5 { DUP MULT } CALL"))
}

func TestParserUnterminatedQuoteFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("{ 1 2", nil)
	require.Error(t, err)
}

func TestParserUnexpectedQuoteCloseFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("1 }", nil)
	require.Error(t, err)
}

func TestParserUndefinedWordFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("NOSUCHWORD", nil)
	require.Error(t, err)
}

func TestParserDanglingIfFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("1 IF 2", nil)
	require.Error(t, err)
}

func TestParserElseWithoutIfFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("1 ELSE 2 THEN", nil)
	require.Error(t, err)
}

func TestParserRepeatWithoutBeginFails(t *testing.T) {
	engine := vm.New()
	p := postfix.New(engine.Vocab, engine.Heap)
	_, err := p.CompileLine("1 WHILE REPEAT", nil)
	require.Error(t, err)
}

func TestParserLeadingDeclaredEffectBindsOnce(t *testing.T) {
	engine := vm.New()
	require.Equal(t, "9", compileAndRun(t, engine,
		`"SQ" { (n# -- r#) DUP MULT } DEFINE`,
		"3 SQ",
	))
}

func TestParserStringLiteral(t *testing.T) {
	engine := vm.New()
	require.Equal(t, "hello", compileAndRun(t, engine, `"hello"`))
}

func TestParserIfThenBothBranches(t *testing.T) {
	require.Equal(t, "8", compileAndRun(t, vm.New(), "9 1 IF 1 MINUS THEN"))
	require.Equal(t, "9", compileAndRun(t, vm.New(), "9 0 IF 1 MINUS THEN"))
}

func TestParserIfElseThenBothBranches(t *testing.T) {
	require.Equal(t, "100", compileAndRun(t, vm.New(), "1 IF 100 ELSE 200 THEN"))
	require.Equal(t, "200", compileAndRun(t, vm.New(), "0 IF 100 ELSE 200 THEN"))
}

func TestParserBeginWhileRepeatCountsDownToZero(t *testing.T) {
	require.Equal(t, "0", compileAndRun(t, vm.New(), "3 BEGIN DUP 0> WHILE 1 MINUS REPEAT"))
}

func TestParserLineReusesPriorLineStack(t *testing.T) {
	// A value an earlier REPL line left on the stack seeds the next line's
	// checker (spec.md's original repl.cc setInputStack()), so DUP MULT
	// here sees a real input instead of underflowing at compile time.
	engine := vm.New()
	require.Equal(t, "9", compileAndRun(t, engine, "3", "DUP MULT"))
}
