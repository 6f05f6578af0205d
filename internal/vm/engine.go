// Package vm implements Tails' direct-threaded execution engine: the
// tail-dispatch interpreter loop, its primitive opcode handlers, and the
// mark-sweep collector invoked between top-level definitions (spec.md
// §3-4, §4.3).
package vm

import (
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tails-lang/tails/internal/logio"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vocabulary"
	"github.com/tails-lang/tails/internal/word"
)

// Engine holds everything one REPL/script run of the interpreter needs:
// the value stack, the heap, the vocabulary stack, and wiring for I/O and
// diagnostics.
type Engine struct {
	Heap  *value.Heap
	Stack []value.Value
	Vocab *vocabulary.Stack

	out io.Writer
	log *logio.Logger

	memLimit int // live heap object limit set by WithMemLimit; not consulted by Run or Collect

	// callStack holds the chain of words currently executing, innermost
	// last, scanned as GC roots alongside the vocabulary (spec.md §4.3).
	callStack []frame

	// frameBase is the index into Stack where the currently executing
	// word's declared inputs begin, used to resolve _GETARG/_SETARG
	// offsets (spec.md §3).
	frameBase int

	// markMu serializes concurrent Heap.Mark calls during Collect's
	// fan-out over independent root sets: Object.marked is a plain bool,
	// not safe for unsynchronized concurrent writes.
	markMu sync.Mutex
}

type frame struct {
	w *word.Word
}

// Option configures an Engine at construction, following the functional
// options idiom used throughout this codebase's ambient packages.
type Option func(*Engine)

// WithOutput sets the stream PRINT/NL/etc. write to.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithVocabulary seeds the engine's vocabulary stack with base (normally
// the built-in words installed by Builtins()).
func WithVocabulary(base *vocabulary.Vocabulary) Option {
	return func(e *Engine) { e.Vocab = vocabulary.NewStack(base) }
}

// WithLogger wires a logio.Logger for trace/diagnostic output.
func WithLogger(l *logio.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMemLimit records n as the engine's live heap object limit. The
// engine stores the value but never collects on its own: Collect runs
// only when the caller invokes it, e.g. once per REPL line.
func WithMemLimit(n int) Option {
	return func(e *Engine) { e.memLimit = n }
}

// New creates an Engine with its own heap and an empty value stack.
func New(opts ...Option) *Engine {
	e := &Engine{Heap: value.NewHeap()}
	for _, opt := range opts {
		opt(e)
	}
	if e.Vocab == nil {
		e.Vocab = vocabulary.NewStack(Builtins())
	}
	return e
}

// Push/Pop/Peek manipulate the top-level data stack a front end or REPL
// drives directly, before/after Run.
func (e *Engine) Push(v value.Value) { e.Stack = append(e.Stack, v) }

func (e *Engine) Pop() (value.Value, bool) {
	n := len(e.Stack)
	if n == 0 {
		return value.Null, false
	}
	v := e.Stack[n-1]
	e.Stack = e.Stack[:n-1]
	return v, true
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Printf("TRACE", format, args...)
	}
}

// Collect runs a full mark-sweep pass over two independent root sets -- the
// live data stack, and the call stack plus active vocabulary -- marked
// concurrently via errgroup.Group, then sweeps (spec.md §4.3). It returns
// the number of objects freed.
func (e *Engine) Collect() int {
	var g errgroup.Group

	g.Go(func() error {
		for _, v := range e.Stack {
			e.markValue(v)
		}
		return nil
	})

	g.Go(func() error {
		for _, fr := range e.callStack {
			e.markCode(fr.w)
		}
		for _, w := range e.Vocab.AllWords() {
			e.markCode(w)
		}
		return nil
	})

	g.Wait() // both root-set scans are infallible; error is always nil
	return e.Heap.Sweep()
}

// markValue marks v, serialized against the concurrent vocabulary/call
// stack scan via markMu.
func (e *Engine) markValue(v value.Value) {
	e.markMu.Lock()
	defer e.markMu.Unlock()
	e.Heap.Mark(v, e.markWord)
}

// markWord marks the literal Values embedded in a quote's referenced
// word's compiled body -- the recursive step value.Heap.Mark delegates to
// for KindQuote objects.
func (e *Engine) markWord(ref value.QuoteRef) {
	w, ok := ref.(*word.Word)
	if !ok {
		return
	}
	e.markCode(w)
}

func (e *Engine) markCode(w *word.Word) {
	if w == nil || w.Flags.Native {
		return
	}
	for _, lit := range literalsOf(w) {
		e.markValue(lit)
	}
}
