package parse

import (
	"errors"
	"strconv"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// ParseVariable parses the contents of a variable tag: a dotted path
// followed by a filter chain, e.g. user.name|default:"anonymous"|upper.
func ParseVariable(pos errortypes.Pos, text string) (*token.VarRef, error) {
	if text == "" {
		return nil, errortypes.Syntaxf(pos, "{{ }}", "empty variable tag")
	}
	var pieces = Split(text, '|', '"', '\\', 0)
	path, err := parsePath(pos, pieces[0])
	if err != nil {
		return nil, err
	}
	var ref = &token.VarRef{Path: path}
	for _, piece := range pieces[1:] {
		spec, err := parseFilter(pos, piece)
		if err != nil {
			return nil, err
		}
		ref.Filters = append(ref.Filters, spec)
	}
	return ref, nil
}

// parsePath splits a dotted path and validates each segment.  Segments after
// the first may be numeric, to index lists.
func parsePath(pos errortypes.Pos, text string) ([]string, error) {
	var path = strings.Split(strings.TrimSpace(text), ".")
	for i, seg := range path {
		if isIdentifier(seg) || (i > 0 && isIndex(seg)) {
			continue
		}
		return nil, errortypes.Syntaxf(pos, text, "invalid variable name")
	}
	return path, nil
}

// isIdentifier reports whether s matches [a-zA-Z][a-zA-Z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" || !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isAlpha(s[i]) && !isDigit(s[i]) && s[i] != '_' {
			return false
		}
	}
	return true
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// parseFilter parses name:arg:arg.
func parseFilter(pos errortypes.Pos, text string) (token.FilterSpec, error) {
	var pieces = Split(strings.TrimSpace(text), ':', '"', '\\', 0)
	var spec = token.FilterSpec{Name: strings.TrimSpace(pieces[0])}
	if !isIdentifier(spec.Name) {
		return spec, errortypes.Syntaxf(pos, text, "invalid filter name")
	}
	for _, piece := range pieces[1:] {
		arg, err := parseArg(pos, strings.TrimSpace(piece))
		if err != nil {
			return spec, err
		}
		spec.Args = append(spec.Args, arg)
	}
	return spec, nil
}

// parseArg classifies a filter argument as a quoted string, an integer, a
// float, a boolean, or a variable reference.
func parseArg(pos errortypes.Pos, text string) (token.FilterArg, error) {
	if literal, ok, err := parseLiteral(text); ok {
		if err != nil {
			return token.FilterArg{}, errortypes.Syntaxf(pos, text, "bad string literal: %v", err)
		}
		return token.FilterArg{Literal: literal}, nil
	}
	if text != "" && isAlpha(text[0]) {
		path, err := parsePath(pos, text)
		if err != nil {
			return token.FilterArg{}, err
		}
		return token.FilterArg{Var: &token.VarRef{Path: path}}, nil
	}
	return token.FilterArg{}, errortypes.Syntaxf(pos, text, "invalid filter argument")
}

// parseLiteral parses a native literal.  ok reports whether text has the
// form of one.
func parseLiteral(text string) (v data.Value, ok bool, err error) {
	switch {
	case text == "true":
		return data.Bool(true), true, nil
	case text == "false":
		return data.Bool(false), true, nil
	case strings.HasPrefix(text, `"`):
		s, err := unquoteString(text)
		return data.String(s), true, err
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil && isNumber(text) {
		return data.Int(i), true, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && isNumber(text) {
		return data.Float(f), true, nil
	}
	return nil, false, nil
}

// isNumber reports whether s is an optionally signed decimal number, so that
// ParseFloat's other syntaxes (Inf, 0x1p-2, 1e3) are not taken as literals.
func isNumber(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	var digits, dots = 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// Literal parses a native literal: a quoted string, a number, true, false or
// null.
func Literal(text string) (data.Value, error) {
	text = strings.TrimSpace(text)
	if text == "null" {
		return data.Null{}, nil
	}
	v, ok, err := parseLiteral(text)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("not a literal: " + text)
	}
	return v, nil
}
