package bytecode

import (
	"fmt"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// Program is a compiled template: a preamble of declarations followed by
// the instruction stream, plus the operand tables the instructions index.
// A Program is immutable once returned by Emitter.Output and may be executed
// concurrently.
type Program struct {
	Name      string
	Context   []Declaration // context variables loaded at start, sorted by name
	Private   []Declaration // scratch slots, sorted by name
	Functions []Function    // sorted by name
	Instr     []Instr

	Texts  []string
	Vars   []Var
	Exprs  []Expr
	Sets   []Assign
	Loops  []Loop
	Chains []Chain
	URLs   []URL
}

// Declaration is a named member of the preamble.
type Declaration struct {
	Name, Value string
}

// Function is a named sub-program, such as an included template.
type Function struct {
	Name string
	Body *Program
}

// Var is a variable reference with its filter chain, resolved at render time.
type Var struct {
	Pos     errortypes.Pos
	Path    []string
	Filters Chain
	Escape  bool
}

func (v *Var) String() string {
	var s = strings.Join(v.Path, ".")
	if len(v.Filters) > 0 {
		s += "|" + v.Filters.String()
	}
	return s
}

// Filter is a filter call.
type Filter struct {
	Name string
	Args []Arg
}

// Chain is a sequence of filters applied left to right.
type Chain []Filter

func (c Chain) String() string {
	var parts = make([]string, len(c))
	for i, f := range c {
		parts[i] = f.Name
		for _, arg := range f.Args {
			parts[i] += ":" + arg.String()
		}
	}
	return strings.Join(parts, "|")
}

// Arg is a literal value or a variable reference.
type Arg struct {
	Literal data.Value
	Var     *Var
}

func (a Arg) String() string {
	if a.Var != nil {
		return a.Var.String()
	}
	return token.Literal(a.Literal)
}

// Expr is a compiled conditional expression in postfix order.
type Expr struct {
	Pos  errortypes.Pos
	Text string // source form, tokens joined by single spaces
	Code []ExprOp
}

// Assign binds a variable.  An assignment with neither a literal nor a
// variable takes the captured output of a block.
type Assign struct {
	Name  string
	Value Arg
}

// Loop describes a for loop.
type Loop struct {
	Pos        errortypes.Pos
	Key, Value string // Key is empty when only values are bound
	Array      Var
	Slot       string // private declaration holding the iteration state
}

// URL is a url built from path segments and query parameters.
type URL struct {
	Segments []Arg
	Query    []Param
}

// Param is a query parameter.
type Param struct {
	Key   string
	Value Arg
}

// String returns a deterministic listing of the program.
func (p *Program) String() string {
	var b strings.Builder
	p.list(&b, "")
	return b.String()
}

func (p *Program) list(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%sprogram %s\n", indent, p.Name)
	for _, d := range p.Context {
		fmt.Fprintf(b, "%scontext %s = %s\n", indent, d.Name, d.Value)
	}
	for _, d := range p.Private {
		fmt.Fprintf(b, "%sprivate %s = %s\n", indent, d.Name, d.Value)
	}
	for _, f := range p.Functions {
		fmt.Fprintf(b, "%sfunction %s\n", indent, f.Name)
		f.Body.list(b, indent+"    ")
	}
	for pc, in := range p.Instr {
		fmt.Fprintf(b, "%s%04d %s\n", indent, pc, p.describe(in))
	}
}

func (p *Program) describe(in Instr) string {
	switch in.Op {
	case RawText:
		return fmt.Sprintf("text %q", p.Texts[in.A])
	case Print:
		var v = &p.Vars[in.A]
		if v.Escape {
			return "print " + v.String() + " escape"
		}
		return "print " + v.String()
	case PrintExpr:
		var s = "printexpr " + p.Exprs[in.A].Text
		if in.B == 1 {
			s += " escape"
		}
		return s
	case JumpIfFalse:
		return fmt.Sprintf("jmpf %04d if not %s", in.B, p.Exprs[in.A].Text)
	case Jump:
		return fmt.Sprintf("jmp %04d", in.A)
	case Set, EndCapture:
		var a = p.Sets[in.A]
		if in.Op == EndCapture {
			return "endcapture " + a.Name
		}
		return "set " + a.Name + " = " + a.Value.String()
	case EndFilter:
		return "endfilter " + p.Chains[in.A].String()
	case ForBegin, ForNext:
		var l = p.Loops[in.A]
		var vars = l.Value
		if l.Key != "" {
			vars = l.Key + ", " + l.Value
		}
		return fmt.Sprintf("%s %04d %s in %s (%s)", in.Op, in.B, vars, l.Array.String(), l.Slot)
	case Call:
		return "call " + p.Functions[in.A].Name
	case Include:
		return "include " + p.Vars[in.A].String()
	case BuildURL:
		var u = p.URLs[in.A]
		var parts []string
		for _, seg := range u.Segments {
			parts = append(parts, seg.String())
		}
		for _, q := range u.Query {
			parts = append(parts, q.Key+"="+q.Value.String())
		}
		return "url " + strings.Join(parts, " ")
	}
	return in.Op.String()
}
