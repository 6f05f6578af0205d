// Command tails is a line-oriented REPL and script runner for the Tails
// language: it compiles each line of source with either the postfix
// front end (internal/parser/postfix) or, with -smol, the infix front end
// (internal/parser/pratt), executes it against a persistent internal/vm.Engine,
// printing the resulting data stack and running the garbage collector after
// every line. Input is read through internal/fileinput so every reported
// error carries a source name and line number, and each line's execution is
// isolated with internal/panicerr so one bad line can't take down the REPL.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tails-lang/tails/internal/compiler"
	"github.com/tails-lang/tails/internal/fileinput"
	"github.com/tails-lang/tails/internal/flushio"
	"github.com/tails-lang/tails/internal/logio"
	"github.com/tails-lang/tails/internal/panicerr"
	"github.com/tails-lang/tails/internal/parser/postfix"
	"github.com/tails-lang/tails/internal/parser/pratt"
	"github.com/tails-lang/tails/internal/runeio"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vm"
	"github.com/tails-lang/tails/internal/word"
)

// lineParser is implemented by both front ends: compile one line/chunk of
// source text into a fresh anonymous word, seeded with the engine's
// current data stack so a line can consume values an earlier one left
// behind (spec.md's original repl.cc setInputStack()).
type lineParser interface {
	compile(src string, stack []value.Value) (*word.Word, error)
}

type postfixParser struct{ *postfix.Parser }

func (p postfixParser) compile(src string, stack []value.Value) (*word.Word, error) {
	return p.CompileLine(src, stack)
}

type prattParser struct{ *pratt.Parser }

func (p prattParser) compile(src string, stack []value.Value) (*word.Word, error) {
	return p.CompileDef(src, stack)
}

func main() {
	trace := flag.Bool("trace", false, "log each executed instruction to stderr")
	dump := flag.Bool("dump", false, "disassemble each compiled line before running it")
	smol := flag.Bool("smol", false, "parse source with the infix (Smol) front end instead of postfix")
	flag.Parse()

	log := new(logio.Logger)
	log.SetOutput(nopCloser{os.Stderr})

	out := flushio.NewWriteFlusher(os.Stdout)
	engine := vm.New(vm.WithOutput(out))
	if *trace {
		engine = vm.New(vm.WithOutput(out), vm.WithLogger(log))
	}

	var parser lineParser
	if *smol {
		parser = prattParser{pratt.New(engine.Vocab, engine.Heap)}
	} else {
		parser = postfixParser{postfix.New(engine.Vocab, engine.Heap)}
	}

	var reader io.Reader = os.Stdin
	if args := flag.Args(); len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(log.ExitCode())
		}
		defer f.Close()
		reader = f
	}
	in := &fileinput.Input{Queue: []io.Reader{reader}}

	code := run(parser, engine, log, in, out, *dump)
	os.Exit(code)
}

// run drives the input one line at a time through in, a fileinput.Input that
// tracks source name and line number across the whole stream (useful once a
// script spans multiple files or stdin gets redirected from one); each line's
// compile-and-run is wrapped in panicerr.Recover so that one bad line can
// never take the whole REPL down with it.
func run(parser lineParser, engine *vm.Engine, log *logio.Logger, in *fileinput.Input, out flushio.WriteFlusher, dump bool) int {
	lastLine := 0
	flush := func() {
		if in.Last.Line == lastLine {
			return
		}
		lastLine = in.Last.Line
		// Input.ReadRune flushes Scan into Last on every source-exhaustion
		// transition, including the final one at true EOF, which leaves a
		// trailing NUL in the buffer even when nothing followed the last
		// newline; trim it so a cleanly-terminated script's last flush reads
		// as the empty line it actually is, rather than a bogus source chunk.
		text := strings.TrimRight(in.Last.Buffer.String(), "\x00")
		runLine(parser, engine, log, in.Last.Location, text, out, dump)
	}

	for {
		r, _, err := in.ReadRune()
		if r == '\n' {
			flush()
			continue
		}
		if err != nil {
			if err != io.EOF {
				log.Errorf("%v", err)
			}
			break
		}
	}
	flush()

	return log.ExitCode()
}

func runLine(parser lineParser, engine *vm.Engine, log *logio.Logger, loc fileinput.Location, line string, out flushio.WriteFlusher, dump bool) {
	if line == "" {
		engine.Stack = nil
		return
	}

	w, err := parser.compile(line, engine.Stack)
	if err != nil {
		reportError(log, loc, err)
		return
	}
	if dump {
		fmt.Fprint(out, compiler.Disassemble(w))
	}

	runErr := panicerr.Recover(loc.String(), func() error { return engine.Run(w) })
	if runErr != nil {
		reportError(log, loc, runErr)
		return
	}

	printStack(engine, out)
	engine.Collect()
	out.Flush()
}

func printStack(engine *vm.Engine, out flushio.WriteFlusher) {
	for i := len(engine.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(out, "%s ", describe(engine, engine.Stack[i]))
	}
	fmt.Fprintln(out)
}

func describe(engine *vm.Engine, v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindNumber:
		f, _ := v.Number()
		return fmt.Sprintf("%g", f)
	case value.KindString:
		return fmt.Sprintf(`"%s"`, caretQuote(engine.Heap.StringOf(v)))
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// caretQuote renders s the way the REPL wants strings echoed on the stack
// line: printable runes pass through untouched, control runes show up in
// their ^-escaped caret form instead of Go's \x hex escapes.
func caretQuote(s string) string {
	var buf strings.Builder
	for _, r := range s {
		if caret := runeio.CaretForm(r); caret != "" {
			buf.WriteString(caret)
			continue
		}
		buf.WriteRune(r)
	}
	return buf.String()
}

func reportError(log *logio.Logger, loc fileinput.Location, err error) {
	log.Errorf("%v: %v", loc, err)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
