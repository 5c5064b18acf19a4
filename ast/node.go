// Package ast contains definitions for the in-memory representation of a
// template.  Each node renders itself into a bytecode.Emitter.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/bytecode"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// Node represents any singular piece of a template.  For example, a sequence
// of raw text or a variable tag.
type Node interface {
	String() string // String returns the source representation of this node.
	Position() Pos  // position of the start of the node
	Render(e *bytecode.Emitter) error
}

// ParentNode is any Node that has descendent nodes.
type ParentNode interface {
	Node
	Children() []Node
}

// Pos locates a node in its template.
type Pos struct {
	Origin    string // template name
	Line, Col int
}

// Position returns this position.  It is implemented as a method so that Nodes
// may embed a Pos and fulfill this part of the Node interface for free.
func (p Pos) Position() Pos {
	return p
}

// Loc converts the position for error reporting.
func (p Pos) Loc() errortypes.Pos {
	return errortypes.Pos{Origin: p.Origin, Line: p.Line, Col: p.Col}
}

// PosOf returns the position of a token.
func PosOf(tok token.Token) Pos {
	return Pos{tok.Origin, tok.Line, tok.Col}
}

// ListNode holds a sequence of nodes.
type ListNode struct {
	Pos
	Nodes []Node // The element nodes in lexical order.
}

func (l *ListNode) String() string {
	b := new(bytes.Buffer)
	for _, n := range l.Nodes {
		fmt.Fprint(b, n)
	}
	return b.String()
}

func (l *ListNode) Children() []Node {
	return l.Nodes
}

func (l *ListNode) Render(e *bytecode.Emitter) error {
	for _, n := range l.Nodes {
		if err := n.Render(e); err != nil {
			return err
		}
	}
	return nil
}

// Append adds a node to the list.
func (l *ListNode) Append(n Node) {
	l.Nodes = append(l.Nodes, n)
}

// TextNode is literal template text.
type TextNode struct {
	Pos
	Text string // The text; may span newlines.
}

func (t *TextNode) String() string {
	return t.Text
}

func (t *TextNode) Render(e *bytecode.Emitter) error {
	e.AddText(t.Text)
	return nil
}

// VariableNode prints a variable, e.g. {{ user.name|upper }}.
type VariableNode struct {
	Pos
	Var    *token.VarRef
	Escape bool // HTML-escape the output unless a filter cancels it
}

func (n *VariableNode) String() string {
	return "{{ " + n.Var.String() + " }}"
}

func (n *VariableNode) Render(e *bytecode.Emitter) error {
	e.AddPageContent(bytecode.Instr{Op: bytecode.Print, A: e.AddVar(n.Var, n.Loc(), n.Escape)})
	return nil
}

// Expr is a compiled conditional expression.
type Expr struct {
	Pos
	Tokens []token.ExprToken
	Text   string // executable text, the tokens joined by single spaces
}

func (x *Expr) String() string {
	return x.Text
}

func (x *Expr) add(e *bytecode.Emitter) (int, error) {
	return e.AddExpr(x.Tokens, x.Text, x.Loc())
}

// RawCodeNode prints an inline expression, <?= expr ?>.
type RawCodeNode struct {
	Pos
	Expr *Expr
}

func (n *RawCodeNode) String() string {
	return "<?= " + n.Expr.Text + " ?>"
}

func (n *RawCodeNode) Render(e *bytecode.Emitter) error {
	idx, err := n.Expr.add(e)
	if err != nil {
		return err
	}
	e.AddPageContent(bytecode.Instr{Op: bytecode.PrintExpr, A: idx, B: 1})
	return nil
}

// IfNode renders the body of the first condition that holds.
type IfNode struct {
	Pos
	Conds []*IfCond
}

// IfCond is one branch of an IfNode.  A nil Cond always holds.
type IfCond struct {
	Pos
	Cond *Expr
	Body *ListNode
}

func (n *IfNode) String() string {
	var b bytes.Buffer
	for i, cond := range n.Conds {
		switch {
		case i == 0:
			fmt.Fprintf(&b, "{%% if %s %%}", cond.Cond)
		case cond.Cond != nil:
			fmt.Fprintf(&b, "{%% elseif %s %%}", cond.Cond)
		default:
			b.WriteString("{% else %}")
		}
		b.WriteString(cond.Body.String())
	}
	b.WriteString("{% endif %}")
	return b.String()
}

func (n *IfNode) Children() []Node {
	var nodes = make([]Node, len(n.Conds))
	for i, cond := range n.Conds {
		nodes[i] = cond.Body
	}
	return nodes
}

func (n *IfNode) Render(e *bytecode.Emitter) error {
	var ends []int
	for _, cond := range n.Conds {
		if cond.Cond == nil {
			if err := cond.Body.Render(e); err != nil {
				return err
			}
			break
		}
		idx, err := cond.Cond.add(e)
		if err != nil {
			return err
		}
		var jmpf = e.AddPageContent(bytecode.Instr{Op: bytecode.JumpIfFalse, A: idx})
		if err := cond.Body.Render(e); err != nil {
			return err
		}
		ends = append(ends, e.AddPageContent(bytecode.Instr{Op: bytecode.Jump}))
		e.Patch(jmpf)
	}
	for _, pc := range ends {
		e.Patch(pc)
	}
	return nil
}

// ForNode iterates a list or map.
type ForNode struct {
	Pos
	Key, Value string // Key is empty when only values are bound
	Array      *token.VarRef
	Body       *ListNode
	Empty      *ListNode // rendered when there is nothing to iterate; may be nil
}

func (n *ForNode) String() string {
	var vars = n.Value
	if n.Key != "" {
		vars = n.Key + ", " + n.Value
	}
	var s = "{% for " + vars + " in " + n.Array.String() + " %}" + n.Body.String()
	if n.Empty != nil {
		s += "{% empty %}" + n.Empty.String()
	}
	return s + "{% endfor %}"
}

func (n *ForNode) Children() []Node {
	if n.Empty == nil {
		return []Node{n.Body}
	}
	return []Node{n.Body, n.Empty}
}

func (n *ForNode) Render(e *bytecode.Emitter) error {
	idx, err := e.AddLoop(n.Key, n.Value, n.Array, n.Loc())
	if err != nil {
		return err
	}
	var begin = e.AddPageContent(bytecode.Instr{Op: bytecode.ForBegin, A: idx})
	var next = e.AddPageContent(bytecode.Instr{Op: bytecode.ForNext, A: idx})
	if err := n.Body.Render(e); err != nil {
		return err
	}
	e.AddPageContent(bytecode.Instr{Op: bytecode.Jump, A: next})
	e.Patch(begin)
	if n.Empty != nil {
		if err := n.Empty.Render(e); err != nil {
			return err
		}
	}
	e.Patch(next)
	return nil
}

// SetNode assigns a variable from a value or, when Body is set, from the
// trimmed output of the body.
type SetNode struct {
	Pos
	Name  string
	Value token.FilterArg
	Body  *ListNode
}

func (n *SetNode) String() string {
	if n.Body != nil {
		return "{% set " + n.Name + " %}" + n.Body.String() + "{% endset %}"
	}
	return "{% set " + n.Name + " = " + n.Value.String() + " %}"
}

func (n *SetNode) Render(e *bytecode.Emitter) error {
	if n.Body == nil {
		e.AddPageContent(bytecode.Instr{Op: bytecode.Set, A: e.AddAssign(n.Name, n.Value, n.Loc())})
		return nil
	}
	e.AddPageContent(bytecode.Instr{Op: bytecode.BeginCapture})
	if err := n.Body.Render(e); err != nil {
		return err
	}
	e.AddPageContent(bytecode.Instr{Op: bytecode.EndCapture, A: e.AddAssign(n.Name, token.FilterArg{}, n.Loc())})
	return nil
}

// FilterNode applies a filter chain to the output of its body.
type FilterNode struct {
	Pos
	Chain []token.FilterSpec
	Body  *ListNode
}

func (n *FilterNode) String() string {
	var names = make([]string, len(n.Chain))
	for i, f := range n.Chain {
		names[i] = f.String()
	}
	return "{% filter " + strings.Join(names, "|") + " %}" + n.Body.String() + "{% endfilter %}"
}

func (n *FilterNode) Children() []Node {
	return []Node{n.Body}
}

func (n *FilterNode) Render(e *bytecode.Emitter) error {
	e.AddPageContent(bytecode.Instr{Op: bytecode.BeginFilter})
	if err := n.Body.Render(e); err != nil {
		return err
	}
	e.AddPageContent(bytecode.Instr{Op: bytecode.EndFilter, A: e.AddChain(n.Chain, n.Loc())})
	return nil
}

// BlockSlot holds the current content of a named block.  A template that
// defines a block again replaces the slot's content, so every BlockNode
// pointing at the slot renders the most derived definition.
type BlockSlot struct {
	Name  string
	Nodes *ListNode
}

// SetNodes replaces the content of the slot.
func (s *BlockSlot) SetNodes(nodes *ListNode) {
	s.Nodes = nodes
}

// BlockNode renders the content of a block slot.
type BlockNode struct {
	Pos
	Name string
	Slot *BlockSlot
}

func (n *BlockNode) String() string {
	return "{% block " + n.Name + " %}" + n.Slot.Nodes.String() + "{% endblock %}"
}

func (n *BlockNode) Children() []Node {
	return []Node{n.Slot.Nodes}
}

func (n *BlockNode) Render(e *bytecode.Emitter) error {
	return n.Slot.Nodes.Render(e)
}

// ParentBlockNode renders the content a block had before the enclosing
// definition replaced it.
type ParentBlockNode struct {
	Pos
	Name  string
	Nodes *ListNode
}

func (n *ParentBlockNode) String() string {
	return "{% parentblock %}"
}

func (n *ParentBlockNode) Children() []Node {
	return []Node{n.Nodes}
}

func (n *ParentBlockNode) Render(e *bytecode.Emitter) error {
	return n.Nodes.Render(e)
}

// IncludeNode renders another template in place.  A literal Name is compiled
// along with the including template; a Var is resolved and compiled at
// render time.
type IncludeNode struct {
	Pos
	Name string
	Var  *token.VarRef
}

func (n *IncludeNode) String() string {
	if n.Var != nil {
		return "{% include " + n.Var.String() + " %}"
	}
	return "{% include " + strconv.Quote(n.Name) + " %}"
}

func (n *IncludeNode) Render(e *bytecode.Emitter) error {
	if n.Var != nil {
		e.AddPageContent(bytecode.Instr{Op: bytecode.Include, A: e.AddVar(n.Var, n.Loc(), false)})
		return nil
	}
	if e.Includer == nil {
		return errortypes.Errorf(errortypes.Syntax, n.Loc(), "cannot include %q: no template loader", n.Name)
	}
	body, err := e.Includer.Include(n.Name)
	if err != nil {
		return err
	}
	idx, err := e.AddFunctionDeclaration("include:"+n.Name, body, false)
	if err != nil {
		return errortypes.Wrap(errortypes.MemberAlreadyExists, n.Loc(), err)
	}
	e.AddPageContent(bytecode.Instr{Op: bytecode.Call, A: idx})
	return nil
}

// URLNode builds a url from path segments and query parameters.
type URLNode struct {
	Pos
	Segments []token.FilterArg
	Query    []bytecode.QueryArg
}

func (n *URLNode) String() string {
	var parts []string
	for _, seg := range n.Segments {
		parts = append(parts, seg.String())
	}
	for _, q := range n.Query {
		parts = append(parts, q.Key+"="+q.Value.String())
	}
	return "{% url " + strings.Join(parts, " ") + " %}"
}

func (n *URLNode) Render(e *bytecode.Emitter) error {
	e.AddPageContent(bytecode.Instr{Op: bytecode.BuildURL, A: e.AddURL(n.Segments, n.Query, n.Loc())})
	return nil
}

// TemplateTagNode outputs one of the syntax characters of the template
// language, e.g. {% templatetag openblock %}.
type TemplateTagNode struct {
	Pos
	Name string
	Text string
}

func (n *TemplateTagNode) String() string {
	return "{% templatetag " + n.Name + " %}"
}

func (n *TemplateTagNode) Render(e *bytecode.Emitter) error {
	e.AddText(n.Text)
	return nil
}
