package vocabulary

import (
	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/word"
)

// SymbolKind distinguishes what a Pratt-parser symbol name is bound to.
type SymbolKind uint8

const (
	SymbolWord SymbolKind = iota
	SymbolParam
	SymbolLocal
)

// Symbol is an entry in the Pratt parser's symbol table: a bound word
// (built-in or user-defined), or a local binding introduced by a function
// signature's input name or by `let`.
type Symbol struct {
	Name string
	Kind SymbolKind

	// Offset is the _GETARG/_SETARG offset for SymbolParam/SymbolLocal
	// bindings (spec.md §3's "non-positive offsets refer to inputs ...
	// positive offsets refer to locals").
	Offset int
	Type   effect.TypeSet

	// Word is the bound word a SymbolWord symbol calls by default when no
	// Prefix/Infix/Postfix callback overrides it (spec.md §4.8: "defaults
	// call a bound word").
	Word *word.Word

	Prefix  func(p Pratt) (Parsed, error)
	Infix   func(p Pratt, left Parsed) (Parsed, error)
	Postfix func(p Pratt, left Parsed) (Parsed, error)

	PrefixPriority  int
	InfixPriority   int
	PostfixPriority int
}

// Parsed is an opaque parse-result handle threaded through Pratt's
// callbacks; internal/parser/pratt defines the concrete type and casts.
type Parsed interface{}

// Pratt is the subset of the Pratt parser's interface a Symbol's parsing
// callback needs, kept abstract here to avoid an import cycle between
// vocabulary and parser/pratt.
type Pratt interface {
	ParseExpr(minPriority int) (Parsed, error)
}

// SymbolTable is a linked chain of scopes: lookup consults the current
// frame, falling back to its parent (spec.md §4.9).
type SymbolTable struct {
	parent  *SymbolTable
	symbols map[string]*Symbol
}

// NewSymbolTable creates a root (parent-less) table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

// Push creates a child scope.
func (t *SymbolTable) Push() *SymbolTable {
	return &SymbolTable{parent: t, symbols: make(map[string]*Symbol)}
}

// Parent returns the enclosing scope, or nil at the root.
func (t *SymbolTable) Parent() *SymbolTable { return t.parent }

// Define binds sym in this scope.
func (t *SymbolTable) Define(sym *Symbol) {
	t.symbols[sym.Name] = sym
}

// Lookup searches this scope, then its ancestors.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for s := t; s != nil; s = s.parent {
		if sym, ok := s.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LocalNames reports the names bound directly in this scope (not
// ancestors), used to detect duplicate local declarations.
func (t *SymbolTable) LocalNames() map[string]*Symbol {
	return t.symbols
}
