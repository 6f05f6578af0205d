package postfix

import (
	"fmt"

	"github.com/tails-lang/tails/internal/compiler"
	"github.com/tails-lang/tails/internal/effect"
	"github.com/tails-lang/tails/internal/parser/effectsyntax"
	"github.com/tails-lang/tails/internal/value"
	"github.com/tails-lang/tails/internal/vocabulary"
	"github.com/tails-lang/tails/internal/word"
)

// Parser drives a compiler.Compiler from postfix source text, resolving
// words against a vocabulary.Stack and allocating literal strings, arrays,
// and quotations on a value.Heap (spec.md §4.7).
type Parser struct {
	Vocab *vocabulary.Stack
	Heap  *value.Heap

	anonCount int
}

// New creates a Parser sharing vocab and heap with the engine that will
// run its output.
func New(vocab *vocabulary.Stack, heap *value.Heap) *Parser {
	return &Parser{Vocab: vocab, Heap: heap}
}

// CompileLine compiles one chunk of postfix source into a fresh anonymous
// word, suitable for one REPL line or a whole loaded file. stack is the
// engine's current data stack (possibly nil or empty) at the start
// of this compile; its types seed the checker (spec.md's original
// repl.cc setInputStack()) so a line can consume values an earlier line
// left behind without a spurious underflow error.
func (p *Parser) CompileLine(src string, stack []value.Value) (*word.Word, error) {
	p.anonCount++
	c := compiler.New(fmt.Sprintf("<line %d>", p.anonCount))
	c.SeedStack(stackTypes(stack))
	tz := newTokenizer(src)
	if err := p.parseInto(c, tz, true); err != nil {
		return nil, err
	}
	if !c.CtrlEmpty() {
		return nil, fmt.Errorf("unbalanced control structure")
	}
	w := word.New(c.Name)
	if err := c.Finalize(w, p.Heap); err != nil {
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

// parseInto consumes tokens from tz into c until EOF (top is true, used
// for whole-line compiles) or a closing '}' (nested quotation body).
func (p *Parser) parseInto(c *compiler.Compiler, tz *tokenizer, top bool) error {
	firstEffectSeen := false
	for {
		tok, err := tz.next()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokEOF:
			if top {
				return nil
			}
			return fmt.Errorf("@%d: unterminated quotation", tok.offset)
		case tokQuoteClose:
			if top {
				return fmt.Errorf("@%d: unexpected '}'", tok.offset)
			}
			return nil
		case tokEffect:
			eff, _, _, perr := effectsyntax.Parse(tok.text)
			if perr != nil {
				return fmt.Errorf("@%d: %v", tok.offset, perr)
			}
			if !firstEffectSeen {
				c.DeclareEffect(eff)
				firstEffectSeen = true
			}
		case tokNumber:
			c.AddLiteral(value.Number(tok.num), tok.offset)
		case tokString:
			c.AddLiteral(p.Heap.NewString(tok.text), tok.offset)
		case tokArrayOpen:
			v, err := p.parseArray(tz)
			if err != nil {
				return err
			}
			c.AddLiteral(v, tok.offset)
		case tokArrayClose:
			return fmt.Errorf("@%d: unexpected ']'", tok.offset)
		case tokQuoteOpen:
			qw, err := p.compileQuote(tz)
			if err != nil {
				return err
			}
			c.AddLiteral(p.Heap.NewQuote(qw), tok.offset)
		case tokWord:
			if err := p.compileWord(c, tok); err != nil {
				return err
			}
		}
	}
}

// compileQuote recursively compiles a nested "{ ... }" body into its own
// anonymous word.
func (p *Parser) compileQuote(tz *tokenizer) (*word.Word, error) {
	p.anonCount++
	c := compiler.New(fmt.Sprintf("<quote %d>", p.anonCount))
	if err := p.parseInto(c, tz, false); err != nil {
		return nil, err
	}
	if !c.CtrlEmpty() {
		return nil, fmt.Errorf("%s: unbalanced control structure", c.Name)
	}
	w := word.New(c.Name)
	if err := c.Finalize(w, p.Heap); err != nil {
		return nil, err
	}
	return w, nil
}

// parseArray collects a literal-only "[ ... ]" array: numbers, strings,
// nested arrays, and quotations, up to the matching ']'. Words and control
// structures inside array literals are not supported by this front end.
func (p *Parser) parseArray(tz *tokenizer) (value.Value, error) {
	var elems []value.Value
	for {
		tok, err := tz.next()
		if err != nil {
			return value.Null, err
		}
		switch tok.kind {
		case tokArrayClose:
			return p.Heap.NewArray(elems), nil
		case tokEOF:
			return value.Null, fmt.Errorf("@%d: unterminated array literal", tok.offset)
		case tokNumber:
			elems = append(elems, value.Number(tok.num))
		case tokString:
			elems = append(elems, p.Heap.NewString(tok.text))
		case tokArrayOpen:
			v, err := p.parseArray(tz)
			if err != nil {
				return value.Null, err
			}
			elems = append(elems, v)
		case tokQuoteOpen:
			qw, err := p.compileQuote(tz)
			if err != nil {
				return value.Null, err
			}
			elems = append(elems, p.Heap.NewQuote(qw))
		default:
			return value.Null, fmt.Errorf("@%d: array literals may only contain literals", tok.offset)
		}
	}
}

// controlWords are the Forth-style control vocabulary handled directly by
// the parser rather than looked up in the vocabulary (spec.md §4.7); they
// are syntax, not words, so they are never themselves Magic-rejected --
// there is simply no vocabulary entry for them to find.
func (p *Parser) compileWord(c *compiler.Compiler, tok token) error {
	switch tok.text {
	case "IF":
		pos := c.AddZBranch(tok.offset)
		c.PushCtrl(compiler.CtrlIf, pos)
		return nil
	case "ELSE":
		_, ifPos, err := c.PopCtrl(tok.offset, compiler.CtrlIf)
		if err != nil {
			return err
		}
		elseBranch := c.AddBranch(tok.offset)
		c.FixBranch(ifPos)
		c.PushCtrl(compiler.CtrlElse, elseBranch)
		return nil
	case "THEN":
		kind, pos, err := c.PopCtrl(tok.offset, compiler.CtrlIf, compiler.CtrlElse)
		if err != nil {
			return err
		}
		_ = kind
		c.FixBranch(pos)
		return nil
	case "BEGIN":
		c.PushCtrl(compiler.CtrlBegin, c.End())
		return nil
	case "WHILE":
		pos := c.AddZBranch(tok.offset)
		c.PushCtrl(compiler.CtrlWhile, pos)
		return nil
	case "REPEAT":
		_, wpos, err := c.PopCtrl(tok.offset, compiler.CtrlWhile)
		if err != nil {
			return err
		}
		_, beginPos, err := c.PopCtrl(tok.offset, compiler.CtrlBegin)
		if err != nil {
			return err
		}
		c.AddBranchBackTo(beginPos, tok.offset)
		c.FixBranch(wpos)
		return nil
	case "RECURSE":
		c.AddRecurse(c.DeclaredEffect(), tok.offset)
		return nil
	}

	w, ok := p.Vocab.Lookup(tok.text)
	if !ok {
		return fmt.Errorf("@%d: undefined word %q", tok.offset, tok.text)
	}
	if w.Flags.Magic {
		return fmt.Errorf("@%d: %q is a compiler-internal opcode and cannot be referenced from source", tok.offset, tok.text)
	}
	if w.Flags.Inline {
		_, err := c.AddInline(w, tok.offset)
		return err
	}
	c.Add(w, tok.offset)
	return nil
}
