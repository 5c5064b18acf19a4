package parse

import (
	"strconv"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// operators are the multi-character operator candidates, longest first so
// that the first match is the greedy one.
var operators = []string{"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "<", ">", "=", "!"}

// exprScanner turns the text of a conditional into expression tokens.
type exprScanner struct {
	p      *Parser
	loc    errortypes.Pos
	text   string
	pos    int
	depth  int // open groups
	tokens []token.ExprToken
}

// CompileExpression compiles the condition of an if or elseif tag.
//
// The scan checks that every token may legally follow the one before it, then
// rewrites the exists, empty and in keywords into calls of the expression
// builtins.
func (p *Parser) CompileExpression(origin, text string) (*ast.Expr, error) {
	var s = &exprScanner{
		p:    p,
		loc:  p.Pos(),
		text: strings.TrimSpace(text),
	}
	s.loc.Origin = origin
	if s.text == "" {
		return nil, errortypes.Syntaxf(s.loc, p.tok.Raw, "empty expression")
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	tokens, err := s.desugar()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{
		Pos:    ast.Pos{Origin: s.loc.Origin, Line: s.loc.Line, Col: s.loc.Col},
		Tokens: tokens,
		Text:   token.Join(tokens),
	}, nil
}

func (s *exprScanner) errorf(fragment, format string, args ...interface{}) error {
	return errortypes.Syntaxf(s.loc, fragment, format+" in %q", append(args, s.text)...)
}

// prev returns the kind of the last token scanned.
func (s *exprScanner) prev() token.ExprKind {
	if len(s.tokens) == 0 {
		return token.ExprNone
	}
	return s.tokens[len(s.tokens)-1].Kind
}

// closesValue reports whether the previous token ends a value.
func (s *exprScanner) closesValue() bool {
	var prev = s.prev()
	return prev.IsOperand() || prev == token.ExprGroupClose
}

func (s *exprScanner) scan() error {
	for s.pos < len(s.text) {
		var c = s.text[s.pos]
		var err error
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case isDigit(c),
			c == '.' && s.digitAt(s.pos+1) && !s.closesValue(),
			c == '-' && s.digitAt(s.pos+1) && s.signAllowed():
			err = s.scanNumber()
		case c == '"':
			err = s.scanString()
		case isAlpha(c):
			err = s.scanWord()
		case c == '(':
			if s.closesValue() {
				return s.errorf("(", "( cannot follow %s", s.prev())
			}
			s.depth++
			err = s.add(token.ExprToken{Kind: token.ExprGroupOpen, Text: "("})
		case c == ')':
			if !s.closesValue() {
				return s.errorf(")", ") cannot follow %s", s.prev())
			}
			if s.depth == 0 {
				return s.errorf(")", "unbalanced parentheses")
			}
			s.depth--
			err = s.add(token.ExprToken{Kind: token.ExprGroupClose, Text: ")"})
		case c == '.':
			err = s.add(token.ExprToken{Kind: token.ExprConcat, Text: "."})
		case strings.IndexByte("+-*/%", c) >= 0:
			err = s.add(token.ExprToken{Kind: token.ExprOperator, Text: string(c)})
		default:
			err = s.scanOperator()
		}
		if err != nil {
			return err
		}
	}
	if s.depth > 0 {
		return s.errorf(s.text, "unbalanced parentheses")
	}
	if !s.closesValue() {
		var last = s.tokens[len(s.tokens)-1]
		return s.errorf(last.Text, "expression ends with %s", last.Kind)
	}
	return nil
}

func (s *exprScanner) digitAt(i int) bool {
	return i < len(s.text) && isDigit(s.text[i])
}

// signAllowed reports whether a '-' at this point is the sign of a number
// rather than a subtraction.
func (s *exprScanner) signAllowed() bool {
	switch s.prev() {
	case token.ExprNone, token.ExprOperator, token.ExprComparator, token.ExprJoiner, token.ExprGroupOpen:
		return true
	}
	return false
}

// add appends a token after checking that it may follow the previous one.
// Single-character tokens advance the scan position here.
func (s *exprScanner) add(tok token.ExprToken) error {
	switch {
	case tok.Kind.IsBinary():
		if !s.closesValue() {
			return s.errorf(tok.Text, "%s %s cannot follow %s", tok.Kind, tok.Text, s.prev())
		}
	case tok.Kind.IsOperand(), tok.Kind == token.ExprInvert:
		if s.closesValue() {
			return s.errorf(tok.Text, "%s %s cannot follow %s", tok.Kind, tok.Text, s.prev())
		}
	}
	if tok.Kind == token.ExprGroupOpen || tok.Kind == token.ExprGroupClose ||
		tok.Kind == token.ExprConcat || tok.Kind == token.ExprOperator {
		s.pos++
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *exprScanner) scanNumber() error {
	var start = s.pos
	if s.text[s.pos] == '-' {
		s.pos++
	}
	var dot = false
	for s.pos < len(s.text) {
		var c = s.text[s.pos]
		if c == '.' && !dot && s.digitAt(s.pos+1) {
			dot = true
		} else if !isDigit(c) {
			break
		}
		s.pos++
	}
	var text = s.text[start:s.pos]
	var value data.Value
	if dot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return s.errorf(text, "bad number")
		}
		value = data.Float(f)
	} else {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return s.errorf(text, "bad number")
		}
		value = data.Int(i)
	}
	return s.add(token.ExprToken{Kind: token.ExprNumber, Text: text, Value: value})
}

func (s *exprScanner) scanString() error {
	var start = s.pos
	s.pos++
	for s.pos < len(s.text) && s.text[s.pos] != '"' {
		if s.text[s.pos] == '\\' {
			s.pos++
		}
		s.pos++
	}
	if s.pos >= len(s.text) {
		return s.errorf(s.text[start:], "unterminated string")
	}
	s.pos++
	var text = s.text[start:s.pos]
	str, err := unquoteString(text)
	if err != nil {
		return s.errorf(text, "bad string: %v", err)
	}
	return s.add(token.ExprToken{Kind: token.ExprString, Text: text, Value: data.String(str)})
}

// scanWord scans a keyword or a variable with its filter chain.  Filter
// arguments may be quoted strings or negative numbers.
func (s *exprScanner) scanWord() error {
	var start = s.pos
	var inQuote = false
loop:
	for s.pos < len(s.text) {
		var c = s.text[s.pos]
		if inQuote {
			switch c {
			case '\\':
				s.pos++
			case '"':
				inQuote = false
			}
			s.pos++
			continue
		}
		var afterColon = s.pos > start && s.text[s.pos-1] == ':'
		switch {
		case isAlpha(c), isDigit(c), c == '_', c == '.', c == ':':
		case c == '|' && !(s.pos+1 < len(s.text) && s.text[s.pos+1] == '|'):
		case c == '"' && afterColon:
			inQuote = true
		case c == '-' && afterColon:
		default:
			break loop
		}
		s.pos++
	}
	var word = s.text[start:s.pos]

	switch word {
	case "and":
		return s.add(token.ExprToken{Kind: token.ExprJoiner, Text: "&&"})
	case "or":
		return s.add(token.ExprToken{Kind: token.ExprJoiner, Text: "||"})
	case "not":
		return s.add(token.ExprToken{Kind: token.ExprInvert, Text: "!"})
	case "true":
		return s.add(token.ExprToken{Kind: token.ExprConst, Text: word, Value: data.Bool(true)})
	case "false":
		return s.add(token.ExprToken{Kind: token.ExprConst, Text: word, Value: data.Bool(false)})
	case "null":
		return s.add(token.ExprToken{Kind: token.ExprConst, Text: word, Value: data.Null{}})
	case "in":
		if !s.prev().IsOperand() {
			return s.errorf(word, "in cannot follow %s", s.prev())
		}
		return s.add(token.ExprToken{Kind: token.ExprFunction, Text: word})
	case "empty", "exists":
		if s.closesValue() {
			return s.errorf(word, "%s cannot follow %s", word, s.prev())
		}
		return s.add(token.ExprToken{Kind: token.ExprFunction, Text: word})
	}

	ref, err := ParseVariable(s.loc, word)
	if err != nil {
		return err
	}
	if err := s.p.checkFilters(ref.Filters, s.loc); err != nil {
		return err
	}
	return s.add(token.ExprToken{Kind: token.ExprVariable, Text: ref.String(), Var: ref})
}

func (s *exprScanner) scanOperator() error {
	for _, op := range operators {
		if !strings.HasPrefix(s.text[s.pos:], op) {
			continue
		}
		s.pos += len(op)
		switch op {
		case "!":
			return s.add(token.ExprToken{Kind: token.ExprInvert, Text: op})
		case "=":
			return s.add(token.ExprToken{Kind: token.ExprComparator, Text: "=="})
		case "&&", "||":
			return s.add(token.ExprToken{Kind: token.ExprJoiner, Text: op})
		}
		return s.add(token.ExprToken{Kind: token.ExprComparator, Text: op})
	}
	return s.errorf(s.text[s.pos:s.pos+1], "unexpected character %q", s.text[s.pos])
}

// Fixed tokens used by the desugared forms.
var (
	open     = token.ExprToken{Kind: token.ExprGroupOpen, Text: "("}
	closing  = token.ExprToken{Kind: token.ExprGroupClose, Text: ")"}
	not      = token.ExprToken{Kind: token.ExprInvert, Text: "!"}
	and      = token.ExprToken{Kind: token.ExprJoiner, Text: "&&"}
	or       = token.ExprToken{Kind: token.ExprJoiner, Text: "||"}
	notIdent = token.ExprToken{Kind: token.ExprComparator, Text: "!=="}
	ident    = token.ExprToken{Kind: token.ExprComparator, Text: "==="}
	blank    = token.ExprToken{Kind: token.ExprString, Text: `""`, Value: data.String("")}
	zero     = token.ExprToken{Kind: token.ExprNumber, Text: "0", Value: data.Int(0)}
)

// desugar replaces the keyword functions with their expanded forms:
//
//	exists v  =>  ! is_null(v)
//	empty v   =>  ( ! is_null(v) && v !== "" && ( ! is_array(v) || count(v) === 0 ) )
//	a in b    =>  ( ( ! is_array(b) && contains(b,a) ) || ( is_array(b) && in_array(a,b) ) )
func (s *exprScanner) desugar() ([]token.ExprToken, error) {
	var out = make([]token.ExprToken, 0, len(s.tokens))
	for i := 0; i < len(s.tokens); i++ {
		var tok = s.tokens[i]
		if tok.Kind != token.ExprFunction {
			out = append(out, tok)
			continue
		}
		if i+1 == len(s.tokens) || !s.tokens[i+1].Kind.IsOperand() {
			return nil, s.errorf(tok.Text, "%s expects an operand", tok.Text)
		}
		var arg = s.tokens[i+1]
		i++

		switch tok.Text {
		case "exists":
			if arg.Kind != token.ExprVariable {
				return nil, s.errorf(arg.Text, "exists expects a variable")
			}
			out = append(out, not, token.NewCall("is_null", arg))
		case "empty":
			if arg.Kind != token.ExprVariable {
				return nil, s.errorf(arg.Text, "empty expects a variable")
			}
			out = append(out,
				open, not, token.NewCall("is_null", arg), and, arg, notIdent, blank, and,
				open, not, token.NewCall("is_array", arg), or, token.NewCall("count", arg), ident, zero, closing,
				closing)
		case "in":
			var needle = out[len(out)-1]
			out = out[:len(out)-1]
			out = append(out,
				open, open, not, token.NewCall("is_array", arg), and, token.NewCall("contains", arg, needle), closing,
				or, open, token.NewCall("is_array", arg), and, token.NewCall("in_array", needle, arg), closing,
				closing)
		}
	}
	return out, nil
}
