package bytecode

import (
	"fmt"
	"math"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
	"github.com/shopspring/decimal"
)

// ExprCode is the operation of an ExprOp.
type ExprCode uint8

const (
	PushLiteral ExprCode = iota // push Value
	PushVar                     // push the value of Var, null if missing
	CallBuiltin                 // pop N operands, push Name(operands)
	Not                         // pop one operand, push its negation
	Binary                      // pop two operands, push Name applied to them
)

// ExprOp is one step of a postfix expression.
type ExprOp struct {
	Code  ExprCode
	Value data.Value
	Var   *Var
	Name  string
	N     int
}

// precedence of the binary operators; higher binds tighter.  Negation binds
// tighter than all of them.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "===": 3, "!==": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5, ".": 5,
	"*": 6, "/": 6, "%": 6,
}

// compileExpr converts infix expression tokens to postfix order.
func (e *Emitter) compileExpr(tokens []token.ExprToken, pos errortypes.Pos, text string) ([]ExprOp, error) {
	var (
		out   []ExprOp
		stack []token.ExprToken
	)
	var popOperator = func() {
		var top = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Kind == token.ExprInvert {
			out = append(out, ExprOp{Code: Not, Name: "!"})
		} else {
			out = append(out, ExprOp{Code: Binary, Name: top.Text})
		}
	}

	for _, tok := range tokens {
		switch {
		case tok.Kind.IsOperand():
			ops, err := e.operand(tok, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		case tok.Kind == token.ExprInvert, tok.Kind == token.ExprGroupOpen:
			stack = append(stack, tok)
		case tok.Kind == token.ExprGroupClose:
			for len(stack) > 0 && stack[len(stack)-1].Kind != token.ExprGroupOpen {
				popOperator()
			}
			if len(stack) == 0 {
				return nil, errortypes.Syntaxf(pos, text, "unbalanced parentheses")
			}
			stack = stack[:len(stack)-1]
		case tok.Kind.IsBinary():
			var prec, ok = precedence[tok.Text]
			if !ok {
				return nil, errortypes.Syntaxf(pos, text, "unknown operator %q", tok.Text)
			}
			for len(stack) > 0 {
				var top = stack[len(stack)-1]
				if top.Kind == token.ExprGroupOpen {
					break
				}
				if top.Kind != token.ExprInvert && precedence[top.Text] < prec {
					break
				}
				popOperator()
			}
			stack = append(stack, tok)
		default:
			return nil, errortypes.Syntaxf(pos, text, "unexpected %s %q", tok.Kind, tok.Text)
		}
	}
	for len(stack) > 0 {
		if stack[len(stack)-1].Kind == token.ExprGroupOpen {
			return nil, errortypes.Syntaxf(pos, text, "unbalanced parentheses")
		}
		popOperator()
	}
	return out, nil
}

func (e *Emitter) operand(tok token.ExprToken, pos errortypes.Pos) ([]ExprOp, error) {
	switch tok.Kind {
	case token.ExprVariable:
		var v = e.convertVar(tok.Var, pos, false)
		return []ExprOp{{Code: PushVar, Var: &v}}, nil
	case token.ExprCall:
		if _, ok := builtins[tok.Name]; !ok {
			return nil, errortypes.Syntaxf(pos, tok.Text, "unknown function %s", tok.Name)
		}
		var ops []ExprOp
		for _, arg := range tok.Args {
			argOps, err := e.operand(arg, pos)
			if err != nil {
				return nil, err
			}
			ops = append(ops, argOps...)
		}
		return append(ops, ExprOp{Code: CallBuiltin, Name: tok.Name, N: len(tok.Args)}), nil
	}
	var value = tok.Value
	if value == nil {
		value = data.Null{}
	}
	return []ExprOp{{Code: PushLiteral, Value: value}}, nil
}

// evalExpr evaluates a postfix expression.
func (s *state) evalExpr(expr *Expr) (data.Value, error) {
	var stack = make([]data.Value, 0, len(expr.Code))
	for _, op := range expr.Code {
		switch op.Code {
		case PushLiteral:
			stack = append(stack, op.Value)
		case PushVar:
			v, err := s.resolve(op.Var)
			if err != nil {
				return nil, err
			}
			if data.IsUndefined(v) {
				v = data.Null{}
			}
			stack = append(stack, v)
		case CallBuiltin:
			var args = stack[len(stack)-op.N:]
			var result = builtins[op.Name](args)
			stack = append(stack[:len(stack)-op.N], result)
		case Not:
			stack[len(stack)-1] = data.Bool(!stack[len(stack)-1].Truthy())
		case Binary:
			var a, b = stack[len(stack)-2], stack[len(stack)-1]
			result, err := binary(op.Name, a, b)
			if err != nil {
				return nil, errortypes.Wrap(errortypes.Render, expr.Pos,
					fmt.Errorf("evaluating %q: %w", expr.Text, err))
			}
			stack = append(stack[:len(stack)-2], result)
		}
	}
	if len(stack) != 1 {
		return nil, errortypes.Errorf(errortypes.Render, expr.Pos, "malformed expression %q", expr.Text)
	}
	return stack[0], nil
}

var builtins = map[string]func(args []data.Value) data.Value{
	"is_null": func(args []data.Value) data.Value {
		return data.Bool(data.IsNull(args[0]))
	},
	"is_array": func(args []data.Value) data.Value {
		_, ok := data.Len(args[0])
		return data.Bool(ok)
	},
	"count": func(args []data.Value) data.Value {
		if n, ok := data.Len(args[0]); ok {
			return data.Int(n)
		}
		if data.IsNull(args[0]) {
			return data.Int(0)
		}
		return data.Int(1)
	},
	"contains": func(args []data.Value) data.Value {
		return data.Bool(strings.Contains(args[0].String(), args[1].String()))
	},
	"in_array": func(args []data.Value) data.Value {
		var needle = args[0]
		switch haystack := args[1].(type) {
		case data.List:
			for _, item := range haystack {
				if looseEquals(needle, item) {
					return data.Bool(true)
				}
			}
		case data.Map:
			for _, item := range haystack {
				if looseEquals(needle, item) {
					return data.Bool(true)
				}
			}
		}
		return data.Bool(false)
	},
}

func binary(op string, a, b data.Value) (data.Value, error) {
	switch op {
	case "&&":
		return data.Bool(a.Truthy() && b.Truthy()), nil
	case "||":
		return data.Bool(a.Truthy() || b.Truthy()), nil
	case ".":
		return data.String(a.String() + b.String()), nil
	case "==":
		return data.Bool(looseEquals(a, b)), nil
	case "!=":
		return data.Bool(!looseEquals(a, b)), nil
	case "===":
		return data.Bool(strictEquals(a, b)), nil
	case "!==":
		return data.Bool(!strictEquals(a, b)), nil
	case "<":
		return data.Bool(compare(a, b) < 0), nil
	case "<=":
		return data.Bool(compare(a, b) <= 0), nil
	case ">":
		return data.Bool(compare(a, b) > 0), nil
	case ">=":
		return data.Bool(compare(a, b) >= 0), nil
	}
	return arithmetic(op, a, b)
}

func arithmetic(op string, a, b data.Value) (data.Value, error) {
	x, ok := toDecimal(a)
	if !ok {
		return nil, fmt.Errorf("%q is not a number", a)
	}
	y, ok := toDecimal(b)
	if !ok {
		return nil, fmt.Errorf("%q is not a number", b)
	}

	var r decimal.Decimal
	switch op {
	case "+":
		r = x.Add(y)
	case "-":
		r = x.Sub(y)
	case "*":
		r = x.Mul(y)
	case "/":
		if y.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		r = x.Div(y)
	case "%":
		if y.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		r = x.Mod(y)
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}

	if isIntegral(a) && isIntegral(b) && r.Equal(r.Truncate(0)) {
		return data.Int(r.IntPart()), nil
	}
	return data.Float(r.InexactFloat64()), nil
}

func isIntegral(v data.Value) bool {
	switch v.(type) {
	case data.Int, data.Bool, data.Null, data.Undefined:
		return true
	case data.String:
		d, ok := toDecimal(v)
		return ok && d.Exponent() >= 0
	}
	return false
}

// toDecimal converts scalars to a number: null and false are 0, true is 1,
// and strings must hold a number.
func toDecimal(v data.Value) (decimal.Decimal, bool) {
	switch v := v.(type) {
	case data.Int:
		return decimal.NewFromInt(int64(v)), true
	case data.Float:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(float64(v)), true
	case data.Bool:
		if v {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case nil, data.Null, data.Undefined:
		return decimal.Zero, true
	case data.String:
		d, err := decimal.NewFromString(strings.TrimSpace(string(v)))
		return d, err == nil
	}
	return decimal.Zero, false
}

// number returns the numeric value of Int, Float and numeric String values.
func number(v data.Value) (decimal.Decimal, bool) {
	switch v.(type) {
	case data.Int, data.Float, data.String:
		return toDecimal(v)
	}
	return decimal.Zero, false
}

// looseEquals compares with type juggling: booleans compare by truthiness,
// null equals any falsy value, and numbers and numeric strings compare by
// value.
func looseEquals(a, b data.Value) bool {
	_, aBool := a.(data.Bool)
	_, bBool := b.(data.Bool)
	switch {
	case aBool || bBool:
		return a.Truthy() == b.Truthy()
	case data.IsNull(a):
		return !b.Truthy()
	case data.IsNull(b):
		return !a.Truthy()
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x.Equal(y)
		}
	}
	return deepEquals(a, b, looseEquals)
}

// strictEquals requires the same type and value.
func strictEquals(a, b data.Value) bool {
	if data.IsNull(a) || data.IsNull(b) {
		return data.IsNull(a) && data.IsNull(b)
	}
	switch a := a.(type) {
	case data.Int:
		b, ok := b.(data.Int)
		return ok && a == b
	case data.Float:
		b, ok := b.(data.Float)
		return ok && a == b
	case data.String:
		b, ok := b.(data.String)
		return ok && a == b
	case data.Bool:
		b, ok := b.(data.Bool)
		return ok && a == b
	}
	return deepEquals(a, b, strictEquals)
}

// deepEquals compares lists and maps element-wise with eq, and other values
// by their string form.
func deepEquals(a, b data.Value, eq func(a, b data.Value) bool) bool {
	switch a := a.(type) {
	case data.List:
		b, ok := b.(data.List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !eq(a[i], b[i]) {
				return false
			}
		}
		return true
	case data.Map:
		b, ok := b.(data.Map)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, v := range a {
			w, ok := b[k]
			if !ok || !eq(v, w) {
				return false
			}
		}
		return true
	}
	switch b.(type) {
	case data.List, data.Map:
		return false
	}
	return a.String() == b.String()
}

// compare orders numbers and numeric strings by value and everything else by
// string form.
func compare(a, b data.Value) int {
	if x, ok := toDecimal(a); ok {
		if y, ok := toDecimal(b); ok {
			return x.Cmp(y)
		}
	}
	return strings.Compare(a.String(), b.String())
}
