package token

import (
	"fmt"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/data"
)

// ExprKind identifies the type of an expression token.
type ExprKind int

const (
	ExprNone       ExprKind = iota // start of expression
	ExprOperator                   // + - * / %
	ExprComparator                 // == != === !== < <= > >=
	ExprJoiner                     // && ||
	ExprNumber                     // 42, -1.5
	ExprString                     // "text"
	ExprConst                      // true, false, null
	ExprVariable                   // user.name|lower
	ExprGroupOpen                  // (
	ExprGroupClose                 // )
	ExprInvert                     // !
	ExprConcat                     // .
	ExprFunction                   // in, empty, exists
	ExprCall                       // is_null(v) and friends, produced by desugaring
)

var exprKindNames = map[ExprKind]string{
	ExprNone:       "start",
	ExprOperator:   "operator",
	ExprComparator: "comparator",
	ExprJoiner:     "joiner",
	ExprNumber:     "number",
	ExprString:     "string",
	ExprConst:      "constant",
	ExprVariable:   "variable",
	ExprGroupOpen:  "group open",
	ExprGroupClose: "group close",
	ExprInvert:     "invert",
	ExprConcat:     "concatenation",
	ExprFunction:   "function",
	ExprCall:       "call",
}

func (k ExprKind) String() string {
	if name, ok := exprKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("exprkind(%d)", int(k))
}

// IsOperand returns true for tokens that produce a value on their own.
func (k ExprKind) IsOperand() bool {
	switch k {
	case ExprNumber, ExprString, ExprConst, ExprVariable, ExprCall:
		return true
	}
	return false
}

// IsBinary returns true for tokens that combine two operands.
func (k ExprKind) IsBinary() bool {
	switch k {
	case ExprOperator, ExprComparator, ExprJoiner, ExprConcat:
		return true
	}
	return false
}

// ExprToken is a unit of a compiled conditional expression.
type ExprToken struct {
	Kind  ExprKind
	Text  string      // executable text of the token
	Value data.Value  // literal value of Number, String and Const tokens
	Var   *VarRef     // Variable tokens
	Name  string      // Call tokens: builtin name
	Args  []ExprToken // Call tokens: operands
}

func (t ExprToken) String() string {
	return t.Text
}

// NewCall builds a Call token applying the named builtin to the operands.
func NewCall(name string, args ...ExprToken) ExprToken {
	var texts = make([]string, len(args))
	for i, arg := range args {
		texts[i] = arg.Text
	}
	return ExprToken{
		Kind: ExprCall,
		Text: name + "(" + strings.Join(texts, ",") + ")",
		Name: name,
		Args: args,
	}
}

// Join concatenates the executable text of the tokens with single spaces.
func Join(tokens []ExprToken) string {
	var texts = make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	return strings.Join(texts, " ")
}
