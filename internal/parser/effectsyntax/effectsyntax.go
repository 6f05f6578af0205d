// Package effectsyntax parses stack-effect literal syntax, e.g.
// "(a# b -- c$ a)", into an effect.StackEffect (spec.md §4.4/§6). Both
// front ends share it: the postfix parser for a word's leading
// declaration, and the Pratt parser for a function signature.
package effectsyntax

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tails-lang/tails/internal/effect"
)

// ParseError reports a malformed stack-effect literal.
type ParseError struct{ Msg string }

func (e *ParseError) Error() string { return "stack effect: " + e.Msg }

// Parse reads "(name-sigil* -- name-sigil*)" (the surrounding parens
// optional) and returns the StackEffect it denotes, plus the ordered input
// and output names for a caller (e.g. the Pratt parser) that needs to bind
// them as locals.
func Parse(src string) (eff effect.StackEffect, inputNames, outputNames []string, err error) {
	s := strings.TrimSpace(src)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	parts := strings.SplitN(s, "--", 2)
	if len(parts) != 2 {
		return effect.StackEffect{}, nil, nil, &ParseError{"missing -- separator"}
	}

	inNames, inTypes, err := parseSide(parts[0])
	if err != nil {
		return effect.StackEffect{}, nil, nil, err
	}
	outNames, outTypes, err := parseSide(parts[1])
	if err != nil {
		return effect.StackEffect{}, nil, nil, err
	}

	eff.Inputs = inTypes
	eff.Outputs = outTypes
	eff.OutputMatch = make([]int, len(outNames))
	for i, on := range outNames {
		eff.OutputMatch[i] = -1
		if on == "" {
			continue
		}
		for j, in := range inNames {
			if in == on {
				eff.OutputMatch[i] = j
				break
			}
		}
	}
	return eff, inNames, outNames, nil
}

// parseSide tokenizes one half (before or after "--") into names and
// their sigil-derived TypeSets.
func parseSide(s string) ([]string, []effect.TypeSet, error) {
	fields := strings.Fields(s)
	names := make([]string, 0, len(fields))
	types := make([]effect.TypeSet, 0, len(fields))
	for _, f := range fields {
		name, sigils := splitNameSigils(f)
		t, err := sigilsToTypeSet(sigils)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		types = append(types, t)
	}
	return names, types, nil
}

// splitNameSigils splits a token like "a#" or "count$" into its
// identifier prefix and trailing type-sigil characters.
func splitNameSigils(tok string) (name, sigils string) {
	i := len(tok)
	for i > 0 {
		r := rune(tok[i-1])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			break
		}
		i--
	}
	return tok[:i], tok[i:]
}

// sigilsToTypeSet maps the type sigils of spec.md §4.4 (# $ [] {} ?) to a
// TypeSet; no sigil at all means Any.
func sigilsToTypeSet(sigils string) (effect.TypeSet, error) {
	if sigils == "" {
		return effect.Any, nil
	}
	var t effect.TypeSet
	for i := 0; i < len(sigils); i++ {
		switch sigils[i] {
		case '#':
			t |= effect.Number
		case '$':
			t |= effect.String
		case '?':
			t |= effect.Null
		case '[':
			if i+1 < len(sigils) && sigils[i+1] == ']' {
				t |= effect.Array
				i++
			} else {
				return 0, &ParseError{fmt.Sprintf("malformed array sigil in %q", sigils)}
			}
		case '{':
			if i+1 < len(sigils) && sigils[i+1] == '}' {
				t |= effect.Quote
				i++
			} else {
				return 0, &ParseError{fmt.Sprintf("malformed quote sigil in %q", sigils)}
			}
		default:
			return 0, &ParseError{fmt.Sprintf("unknown type sigil %q", sigils[i])}
		}
	}
	return t, nil
}
