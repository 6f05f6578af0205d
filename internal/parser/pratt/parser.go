package pratt

import (
	"fmt"
	"strings"

	"github.com/tails-lang/tails/internal/compiler"
	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/opcode"
	"github.com/tails-lang/tails/internal/parser/effectsyntax"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vocabulary"
	"github.com/tails-lang/tails/internal/word"
)

const unaryPriority = 70

// node is the concrete type behind vocabulary.Parsed in this front end: it
// tracks only whether the parsed expression left a value on the stack,
// which is all the surrounding grammar (sequencing, if:/else: symmetry,
// assignment) needs to know at parse time.
type node struct{ hasValue bool }

// Parser drives a compiler.Compiler from Smol (infix) source text,
// implementing vocabulary.Pratt so symbol callbacks can recurse into it.
type Parser struct {
	VocabStack *vocabulary.Stack
	Heap       *value.Heap

	baseSyms *vocabulary.SymbolTable

	tz   *tokenizer
	cur  token
	c    *compiler.Compiler
	syms *vocabulary.SymbolTable

	anonCount int
}

// New creates a Parser sharing vocab and heap with the engine that will
// run its output.
func New(vocab *vocabulary.Stack, heap *value.Heap) *Parser {
	p := &Parser{VocabStack: vocab, Heap: heap}
	p.baseSyms = newBaseSymbols(vocab)
	return p
}

func newBaseSymbols(vocab *vocabulary.Stack) *vocabulary.SymbolTable {
	t := vocabulary.NewSymbolTable()
	bind := func(sym, wordName string, prio int) {
		w, ok := vocab.Lookup(wordName)
		if !ok {
			return
		}
		t.Define(&vocabulary.Symbol{Name: sym, Kind: vocabulary.SymbolWord, Word: w, InfixPriority: prio})
	}
	// spec.md §4.8: "Arithmetic/relational symbols with priorities 60
	// (x,/), 50 (+,-), 40 (<,<=,>,>=), 30 (==,!=)".
	bind("*", "MULT", 60)
	bind("/", "DIV", 60)
	bind("+", "PLUS", 50)
	bind("-", "MINUS", 50)
	bind("<", "LT", 40)
	bind("<=", "LE", 40)
	bind(">", "GT", 40)
	bind(">=", "GE", 40)
	bind("==", "EQ", 30)
	bind("!=", "NE", 30)
	t.Define(&vocabulary.Symbol{Name: "IF:", Kind: vocabulary.SymbolWord, Infix: ifInfix, InfixPriority: 10})
	return t
}

// CompileDef compiles one top-level definition: an optional leading
// "(inputs -- outputs)" signature, followed by a ';'-separated sequence
// of expressions/statements, into a fresh anonymous word. stack is the
// engine's current data stack (possibly nil or empty) at the start
// of this compile; its types seed the checker (spec.md's original
// repl.cc setInputStack()) so a definition can consume values an earlier
// line left behind without a spurious underflow error.
func (p *Parser) CompileDef(src string, stack []value.Value) (*word.Word, error) {
	p.anonCount++
	p.tz = newTokenizer(src)
	p.c = compiler.New(fmt.Sprintf("<expr %d>", p.anonCount))
	p.c.SeedStack(stackTypes(stack))
	p.syms = p.baseSyms.Push()

	if txt, ok, err := p.tz.maybeReadEffect(); err != nil {
		return nil, err
	} else if ok {
		if err := p.bindLeadingEffect(txt); err != nil {
			return nil, err
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	leaves, err := p.parseBody(func(t token) bool { return t.kind == tokEOF })
	if err != nil {
		return nil, err
	}
	if !p.c.CtrlEmpty() {
		return nil, fmt.Errorf("unbalanced control structure")
	}

	p.emitDropArgs(leaves)

	w := word.New(p.c.Name)
	if err := p.c.Finalize(w, p.Heap); err != nil {
		return nil, err
	}
	return w, nil
}

// stackTypes converts the engine's actual stack contents into the typed
// slots Compiler.SeedStack wants, bottom to top. A nil/empty stack still
// yields a non-nil (possibly zero-length) slice, so the checker seeds in
// "confirmed empty" mode rather than falling back to open inference.
func stackTypes(stack []value.Value) []effect.TypeSet {
	types := make([]effect.TypeSet, len(stack))
	for i, v := range stack {
		types[i] = effect.Of(v)
	}
	return types
}

func (p *Parser) bindLeadingEffect(txt string) error {
	eff, inNames, _, err := effectsyntax.Parse(txt)
	if err != nil {
		return err
	}
	p.c.DeclareEffect(eff)
	for i, nm := range inNames {
		if nm == "" {
			continue
		}
		p.syms.Define(&vocabulary.Symbol{
			Name:   strings.ToUpper(nm),
			Kind:   vocabulary.SymbolParam,
			Offset: i - len(eff.Inputs) + 1,
			Type:   eff.Inputs[i],
		})
	}
	return nil
}

// emitDropArgs emits the implicit frame-unwind spec.md §4.8 requires at
// the end of every compiled function: "_DROPARGS parameters, results".
func (p *Parser) emitDropArgs(leavesValue bool) {
	declaredIn := 0
	if eff := p.c.DeclaredEffect(); eff != nil {
		declaredIn = len(eff.Inputs)
	}
	results := uint8(0)
	if leavesValue {
		results = 1
	}
	p.c.AddDropArgs(uint8(declaredIn+p.c.LocalsCount()), results, 0)
}

func (p *Parser) advance() error {
	tok, err := p.tz.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) expectPunct(s string) error {
	if p.cur.kind != tokPunct || p.cur.text != s {
		return &compiler.CompileError{Source: p.cur.offset, Msg: fmt.Sprintf("expected %q, found %q", s, p.cur.text)}
	}
	return p.advance()
}

// parseBody consumes ';'-separated statements until stop(p.cur) holds
// (without consuming the stopping token), returning whether the final
// statement left a value, per spec.md §4.8's "; sequences expressions;
// all but the last expression's outputs are dropped".
func (p *Parser) parseBody(stop func(token) bool) (bool, error) {
	leavesValue := false
	for {
		if stop(p.cur) {
			return leavesValue, nil
		}
		n, err := p.ParseExpr(0)
		if err != nil {
			return false, err
		}
		leavesValue = n.(*node).hasValue

		if stop(p.cur) || p.cur.kind == tokEOF {
			return leavesValue, nil
		}
		if p.cur.kind == tokPunct && p.cur.text == ";" {
			if leavesValue {
				p.c.AddNative(opcode.OpDrop, p.cur.offset)
			}
			if err := p.advance(); err != nil {
				return false, err
			}
			leavesValue = false
			continue
		}
		return false, &compiler.CompileError{Source: p.cur.offset, Msg: fmt.Sprintf("unexpected token %q", p.cur.text)}
	}
}

// ParseExpr implements vocabulary.Pratt: parse a prefix term, then fold in
// infix/postfix operators whose priority meets minPriority (spec.md
// §4.8's precedence-climbing loop).
func (p *Parser) ParseExpr(minPriority int) (vocabulary.Parsed, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		sym, ok := p.peekSymbol()
		if !ok {
			break
		}
		switch {
		case sym.Infix != nil && sym.InfixPriority >= minPriority:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if left, err = sym.Infix(p, left); err != nil {
				return nil, err
			}
		case sym.Infix == nil && sym.Word != nil && sym.InfixPriority >= minPriority:
			offset := p.cur.offset
			if err := p.advance(); err != nil {
				return nil, err
			}
			if left, err = p.defaultInfix(sym, left.(*node), offset); err != nil {
				return nil, err
			}
		case sym.Postfix != nil && sym.PostfixPriority >= minPriority:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if left, err = sym.Postfix(p, left); err != nil {
				return nil, err
			}
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *Parser) peekSymbol() (*vocabulary.Symbol, bool) {
	if p.cur.kind != tokPunct && p.cur.kind != tokIdent {
		return nil, false
	}
	return p.syms.Lookup(p.cur.text)
}

func (p *Parser) defaultInfix(sym *vocabulary.Symbol, left *node, offset int) (vocabulary.Parsed, error) {
	if !left.hasValue {
		return nil, &compiler.CompileError{Source: offset, Msg: fmt.Sprintf("%s: left operand has no value", sym.Name)}
	}
	rhs, err := p.ParseExpr(sym.InfixPriority + 1)
	if err != nil {
		return nil, err
	}
	if !rhs.(*node).hasValue {
		return nil, &compiler.CompileError{Source: offset, Msg: fmt.Sprintf("%s: right operand has no value", sym.Name)}
	}
	p.c.Add(sym.Word, offset)
	return &node{hasValue: true}, nil
}

func (p *Parser) parsePrefix() (vocabulary.Parsed, error) {
	tok := p.cur
	switch {
	case tok.kind == tokNumber:
		p.c.AddLiteral(value.Number(tok.num), tok.offset)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &node{hasValue: true}, nil

	case tok.kind == tokString:
		p.c.AddLiteral(p.Heap.NewString(tok.text), tok.offset)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &node{hasValue: true}, nil

	case tok.kind == tokPunct && tok.text == "(":
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.ParseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return n, nil

	case tok.kind == tokPunct && tok.text == "{":
		w, err := p.compileQuoteBody()
		if err != nil {
			return nil, err
		}
		p.c.AddLiteral(p.Heap.NewQuote(w), tok.offset)
		return &node{hasValue: true}, nil

	case tok.kind == tokPunct && tok.text == "-":
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.ParseExpr(unaryPriority)
		if err != nil {
			return nil, err
		}
		if !operand.(*node).hasValue {
			return nil, &compiler.CompileError{Source: tok.offset, Msg: "unary -: operand has no value"}
		}
		p.c.AddLiteral(value.Number(-1), tok.offset)
		p.c.AddNative(opcode.OpMult, tok.offset)
		return &node{hasValue: true}, nil

	case tok.kind == tokIdent && tok.text == "LET":
		return p.parseLet(tok.offset)

	case tok.kind == tokIdent && tok.text == "RECURSE":
		return p.parseRecurse(tok.offset)

	case tok.kind == tokIdent:
		return p.parseIdent(tok)

	default:
		return nil, &compiler.CompileError{Source: tok.offset, Msg: fmt.Sprintf("unexpected token %q", tok.text)}
	}
}

func (p *Parser) parseIdent(tok token) (vocabulary.Parsed, error) {
	if sym, ok := p.syms.Lookup(tok.text); ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch sym.Kind {
		case vocabulary.SymbolParam, vocabulary.SymbolLocal:
			if p.cur.kind == tokPunct && p.cur.text == ":=" {
				if err := p.advance(); err != nil {
					return nil, err
				}
				rhs, err := p.ParseExpr(0)
				if err != nil {
					return nil, err
				}
				if !rhs.(*node).hasValue {
					return nil, &compiler.CompileError{Source: tok.offset, Msg: ":=: right-hand side has no value"}
				}
				p.c.AddSetArg(int8(sym.Offset), tok.offset)
				return &node{hasValue: false}, nil
			}
			if p.cur.kind == tokPunct && p.cur.text == "(" {
				return p.parseCall(sym, tok.offset)
			}
			p.c.AddGetArg(int8(sym.Offset), tok.offset)
			return &node{hasValue: true}, nil

		default:
			if sym.Prefix != nil {
				return sym.Prefix(p)
			}
			if sym.Word != nil {
				p.c.Add(sym.Word, tok.offset)
				return &node{hasValue: len(sym.Word.Effect.Outputs) > 0}, nil
			}
			return nil, &compiler.CompileError{Source: tok.offset, Msg: fmt.Sprintf("%s is not usable as a value", tok.text)}
		}
	}

	w, ok := p.VocabStack.Lookup(tok.text)
	if !ok {
		return nil, &compiler.CompileError{Source: tok.offset, Msg: fmt.Sprintf("undefined name %q", tok.text)}
	}
	if w.Flags.Magic {
		return nil, &compiler.CompileError{Source: tok.offset, Msg: fmt.Sprintf("%q is a compiler-internal opcode", tok.text)}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if w.Flags.Inline {
		if _, err := p.c.AddInline(w, tok.offset); err != nil {
			return nil, err
		}
	} else {
		p.c.Add(w, tok.offset)
	}
	return &node{hasValue: len(w.Effect.Outputs) > 0}, nil
}

// parseCall implements spec.md §4.8's "postfix ( is a function call
// against a Quote value": args are pushed first, then the quote itself,
// so CALL finds it on top with its own inputs already beneath it.
func (p *Parser) parseCall(sym *vocabulary.Symbol, offset int) (vocabulary.Parsed, error) {
	if err := p.advance(); err != nil { // consume "("
		return nil, err
	}
	if !(p.cur.kind == tokPunct && p.cur.text == ")") {
		for {
			if _, err := p.ParseExpr(0); err != nil {
				return nil, err
			}
			if p.cur.kind == tokPunct && p.cur.text == "," {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	p.c.AddGetArg(int8(sym.Offset), offset)
	p.c.AddNative(opcode.OpCall, offset)
	return &node{hasValue: true}, nil
}

// parseLet implements "let name = expr": reserves a local slot, stores
// the right-hand side into it, and binds name for subsequent lookups.
// The statement itself leaves no value.
func (p *Parser) parseLet(offset int) (vocabulary.Parsed, error) {
	if err := p.advance(); err != nil { // consume LET
		return nil, err
	}
	if p.cur.kind != tokIdent {
		return nil, &compiler.CompileError{Source: p.cur.offset, Msg: "let: expected a name"}
	}
	name := p.cur.text
	namePos := p.cur.offset
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	rhs, err := p.ParseExpr(0)
	if err != nil {
		return nil, err
	}
	if !rhs.(*node).hasValue {
		return nil, &compiler.CompileError{Source: namePos, Msg: "let: right-hand side has no value"}
	}
	slot := p.c.ReserveLocal()
	p.c.AddSetArg(int8(slot), offset)
	p.syms.Define(&vocabulary.Symbol{Name: name, Kind: vocabulary.SymbolLocal, Offset: slot})
	return &node{hasValue: false}, nil
}

// parseRecurse implements "RECURSE(args)": args are pushed left to right,
// then a self-call is emitted against the word's own declared effect.
func (p *Parser) parseRecurse(offset int) (vocabulary.Parsed, error) {
	if err := p.advance(); err != nil { // consume RECURSE
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if !(p.cur.kind == tokPunct && p.cur.text == ")") {
		for {
			if _, err := p.ParseExpr(0); err != nil {
				return nil, err
			}
			if p.cur.kind == tokPunct && p.cur.text == "," {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	eff := p.c.DeclaredEffect()
	if eff == nil {
		return nil, &compiler.CompileError{Source: offset, Msg: "RECURSE requires an explicit stack-effect declaration"}
	}
	p.c.AddRecurse(eff, offset)
	return &node{hasValue: len(eff.Outputs) > 0}, nil
}

// compileQuoteBody compiles a "{ (effect)? ... }" literal into its own
// word, in a fresh child scope of the base symbols (a quote is its own
// frame: it does not see the enclosing function's params/locals, only
// whatever its own leading signature names -- spec.md §4.7/§4.8).
func (p *Parser) compileQuoteBody() (*word.Word, error) {
	p.anonCount++

	outerC, outerSyms := p.c, p.syms
	p.c = compiler.New(fmt.Sprintf("<quote %d>", p.anonCount))
	p.syms = p.baseSyms.Push()
	restore := func() { p.c, p.syms = outerC, outerSyms }

	if txt, ok, err := p.tz.maybeReadEffect(); err != nil {
		restore()
		return nil, err
	} else if ok {
		if err := p.bindLeadingEffect(txt); err != nil {
			restore()
			return nil, err
		}
	}
	if err := p.advance(); err != nil {
		restore()
		return nil, err
	}

	leaves, err := p.parseBody(func(t token) bool { return t.kind == tokPunct && t.text == "}" })
	if err != nil {
		restore()
		return nil, err
	}
	if !p.c.CtrlEmpty() {
		restore()
		return nil, fmt.Errorf("%s: unbalanced control structure", p.c.Name)
	}
	if err := p.expectPunct("}"); err != nil {
		restore()
		return nil, err
	}

	p.emitDropArgs(leaves)
	w := word.New(p.c.Name)
	finalizeErr := p.c.Finalize(w, p.Heap)
	restore()
	if finalizeErr != nil {
		return nil, finalizeErr
	}
	return w, nil
}

// ifInfix implements "cond if: then else: else" as inline branches in the
// enclosing word's own instruction stream (not as separate quote calls),
// so a then/else arm can still see the enclosing function's locals --
// spec.md §4.8.
func ifInfix(pr vocabulary.Pratt, left vocabulary.Parsed) (vocabulary.Parsed, error) {
	p, ok := pr.(*Parser)
	if !ok {
		return nil, fmt.Errorf("if: used outside the infix parser")
	}
	if !left.(*node).hasValue {
		return nil, fmt.Errorf("if: condition has no value")
	}

	zpos := p.c.AddZBranch(p.cur.offset)
	thenV, err := p.ParseExpr(11)
	if err != nil {
		return nil, err
	}
	thenLeaves := thenV.(*node).hasValue

	if p.cur.kind == tokIdent && p.cur.text == "ELSE:" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		branch := p.c.AddBranch(p.cur.offset)
		p.c.FixBranch(zpos)
		elseV, err := p.ParseExpr(11)
		if err != nil {
			return nil, err
		}
		elseLeaves := elseV.(*node).hasValue
		if thenLeaves != elseLeaves {
			return nil, fmt.Errorf("if:/else: branches must both leave a value or neither")
		}
		p.c.FixBranch(branch)
		return &node{hasValue: thenLeaves}, nil
	}

	p.c.FixBranch(zpos)
	if thenLeaves {
		return nil, fmt.Errorf("if: without else: cannot leave a value")
	}
	return &node{hasValue: false}, nil
}
