// Command gen_golden runs the golden end-to-end scenarios below against
// the real engine, records each one's final top-of-stack rendering, and
// emits a table-driven test file that re-asserts those recordings on every
// `go test` (adapted from
// _examples/jcorbin-gothird/scripts/gen_vm_expects.go's generate-then-pipe-
// through-goimports shape; the regex-rewrite step there becomes a genuine
// engine trial run here, each trial concurrent with the others via
// errgroup rather than gofmt/main racing over a pipe).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tails-lang/tails/internal/parser/postfix"
	"github.com/tails-lang/tails/internal/parser/pratt"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vm"
	"github.com/tails-lang/tails/internal/word"
)

// scenario is one golden end-to-end case. Defs are compiled and run first
// (typically to DEFINE a helper word), then Src is compiled and run, and
// its final top-of-stack rendering is recorded as the test's expectation.
type scenario struct {
	Name  string
	Front string // "postfix" or "smol"
	Defs  []string
	Src   string
}

// Postfix surface names are the alphabetic forms the builtin vocabulary
// registers (PLUS, MINUS, MULT, ...); the symbolic spellings (+, -, *, ...)
// are sugar the Pratt front end's base symbol table binds to those same
// words, not postfix tokens.
var scenarios = []scenario{
	{Name: "SubtractNegative", Front: "postfix", Src: "3 -4 MINUS"},
	{Name: "DupPlusAbs", Front: "postfix", Src: "4 3 PLUS DUP PLUS ABS"},
	{
		Name:  "SquareTwice",
		Front: "postfix",
		Defs:  []string{`"SQUARE" { (# -- #) DUP MULT } DEFINE`},
		Src:   "4 3 PLUS SQUARE DUP PLUS SQUARE ABS",
	},
	{Name: "IfTrue", Front: "postfix", Src: "1 IF 123 ELSE 666 THEN"},
	{Name: "IfFalse", Front: "postfix", Src: "0 IF 123 ELSE 666 THEN"},
	{Name: "FactorialLoop", Front: "postfix", Src: "1 5 BEGIN DUP WHILE SWAP OVER MULT SWAP 1 MINUS REPEAT DROP"},
	{Name: "StringConcat", Front: "postfix", Src: `"Hi" "There" PLUS`},
	{Name: "ArrayLength", Front: "postfix", Src: "[12 34 56] LENGTH"},
	{
		Name:  "RecursiveFactorial",
		Front: "postfix",
		Defs: []string{
			// The RECURSE sits in the ELSE arm, which falls straight
			// through to the word's own _RETURN with nothing in between.
			// _RECURSE is always a nested call, so each level adds one
			// host-level call; the data stack stays two values deep.
			`"FACT" { (f# i# -- r#) DUP 0= IF DROP ELSE OVER OVER MULT SWAP 1 MINUS ROT DROP RECURSE THEN } DEFINE`,
		},
		Src: "1 5 FACT",
	},
	{Name: "InfixPrecedence", Front: "smol", Src: "3+4*5"},
	{Name: "InfixLet", Front: "smol", Src: "let z = 3+4; z"},
	{Name: "InfixIfElse", Front: "smol", Src: "let x = 0; x if: 1+2 else: 0"},
}

func main() {
	out := flag.String("o", "internal/vm/golden_test.go", "generated test file path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recs, err := recordAll(ctx)
	if err != nil {
		log.Fatalln(err)
	}

	var body bytes.Buffer
	if err := goldenTmpl.Execute(&body, recs); err != nil {
		log.Fatalln(err)
	}

	formatted, err := gofmt(ctx, body.Bytes())
	if err != nil {
		log.Fatalln(err)
	}

	if err := os.WriteFile(*out, formatted, 0o644); err != nil {
		log.Fatalln(err)
	}
}

// recording is a scenario plus what actually came off the stack, ready for
// the template to render as a Go string literal.
type recording struct {
	scenario
	Want string
}

// recordAll runs every scenario against a fresh Engine concurrently --
// distinct scenarios share no state, so errgroup fans them out and returns
// the first failure, mirroring Engine.Collect's own root-set fan-out.
func recordAll(ctx context.Context) ([]recording, error) {
	recs := make([]recording, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			want, err := run(sc)
			if err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			recs[i] = recording{scenario: sc, Want: want}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}

// run compiles and executes a scenario's Defs then Src against a fresh
// engine and renders the final top-of-stack value the same way cmd/tails
// does.
func run(sc scenario) (string, error) {
	engine := vm.New()

	var compile func(string, []value.Value) (*word.Word, error)
	switch sc.Front {
	case "postfix":
		p := postfix.New(engine.Vocab, engine.Heap)
		compile = p.CompileLine
	case "smol":
		p := pratt.New(engine.Vocab, engine.Heap)
		compile = p.CompileDef
	default:
		return "", fmt.Errorf("unknown front end %q", sc.Front)
	}

	lines := append(append([]string{}, sc.Defs...), sc.Src)
	for _, line := range lines {
		w, err := compile(line, engine.Stack)
		if err != nil {
			return "", err
		}
		if err := engine.Run(w); err != nil {
			return "", err
		}
	}

	if len(engine.Stack) == 0 {
		return "", fmt.Errorf("empty stack after %q", sc.Src)
	}
	return describe(engine, engine.Stack[len(engine.Stack)-1]), nil
}

func describe(engine *vm.Engine, v value.Value) string {
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

func gofmt(ctx context.Context, src []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gofmt")
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("gofmt: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

var goldenTmpl = template.Must(template.New("golden").Parse(`// Code generated by scripts/gen_golden.go; DO NOT EDIT.

package vm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tails-lang/tails/internal/parser/postfix"
	"github.com/tails-lang/tails/internal/parser/pratt"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vm"
)

func goldenTopOfStack(engine *vm.Engine, v value.Value) string {
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
{{range .}}
func TestGolden{{.Name}}(t *testing.T) {
	engine := vm.New()
	{{if eq .Front "postfix"}}p := postfix.New(engine.Vocab, engine.Heap){{else}}p := pratt.New(engine.Vocab, engine.Heap){{end}}

	lines := []string{ {{range .Defs}}{{printf "%q" .}}, {{end}}{{printf "%q" .Src}} }
	for _, line := range lines {
		{{if eq .Front "postfix"}}w, err := p.CompileLine(line, engine.Stack){{else}}w, err := p.CompileDef(line, engine.Stack){{end}}
		require.NoError(t, err)
		require.NoError(t, engine.Run(w))
	}

	require.NotEmpty(t, engine.Stack)
	top := engine.Stack[len(engine.Stack)-1]
	require.Equal(t, {{printf "%q" .Want}}, goldenTopOfStack(engine, top))
}
{{end}}
`))
