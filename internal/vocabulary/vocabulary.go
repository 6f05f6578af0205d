// Package vocabulary implements the name-to-word dictionary and its
// stack of scopes (spec.md §4.9), plus the linked-scope symbol table used
// by the Pratt parser.
package vocabulary

import (
	"strings"

	"github.com/tails-lang/tails/internal/word"
)

// Vocabulary is a case-insensitive name -> word dictionary.
type Vocabulary struct {
	words map[string]*word.Word
}

// New creates an empty Vocabulary.
func New() *Vocabulary {
	return &Vocabulary{words: make(map[string]*word.Word)}
}

// Define installs w under its (already upper-cased) Name.
func (v *Vocabulary) Define(w *word.Word) {
	v.words[w.Name] = w
}

// Lookup finds a word by name, case-insensitively.
func (v *Vocabulary) Lookup(name string) (*word.Word, bool) {
	w, ok := v.words[strings.ToUpper(name)]
	return w, ok
}

// Names returns every defined name, for dumping/diagnostics.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.words))
	for n := range v.words {
		names = append(names, n)
	}
	return names
}

// Stack is a stack of Vocabularies searched innermost (top) to outermost
// (bottom, normally the built-ins); new definitions go into the
// distinguished "current" vocabulary at the top.
type Stack struct {
	scopes []*Vocabulary
}

// NewStack creates a Stack with a single base (built-ins) scope.
func NewStack(base *Vocabulary) *Stack {
	return &Stack{scopes: []*Vocabulary{base}}
}

// Push introduces a new innermost scope, returning it.
func (s *Stack) Push() *Vocabulary {
	v := New()
	s.scopes = append(s.scopes, v)
	return v
}

// Pop discards the innermost scope.
func (s *Stack) Pop() {
	if n := len(s.scopes); n > 1 {
		s.scopes = s.scopes[:n-1]
	}
}

// Current returns the innermost (definition target) scope.
func (s *Stack) Current() *Vocabulary {
	return s.scopes[len(s.scopes)-1]
}

// Lookup searches from innermost to outermost scope.
func (s *Stack) Lookup(name string) (*word.Word, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if w, ok := s.scopes[i].Lookup(name); ok {
			return w, true
		}
	}
	return nil, false
}

// Scopes exposes every scope, outermost first, for GC root scanning
// (spec.md §4.3: "every word in the active vocabulary stack").
func (s *Stack) Scopes() []*Vocabulary {
	return s.scopes
}

// AllWords returns every word reachable from any scope, for GC root
// scanning.
func (s *Stack) AllWords() []*word.Word {
	var out []*word.Word
	for _, scope := range s.scopes {
		for _, w := range scope.words {
			out = append(out, w)
		}
	}
	return out
}
