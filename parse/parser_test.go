package parse

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

var errNoView = errors.New("no such view")

type mapLoader map[string]string

func (m mapLoader) Load(name string) (string, error) {
	src, ok := m[name]
	if !ok {
		return "", errNoView
	}
	return src, nil
}

type firstTag struct{}

func (firstTag) Node(command, args string, p *Parser, origin string) (ast.Node, error) {
	return nil, nil
}

func (firstTag) MustBeFirst() bool {
	return true
}

// testTags is a small tag set exercising the parser.
var testTags = Tags{
	"first": firstTag{},
	"wrap": TagFunc(func(command, args string, p *Parser, origin string) (ast.Node, error) {
		body, err := p.Parse("endwrap")
		if err != nil {
			return nil, err
		}
		p.End()
		return body, nil
	}),
	"noescape": TagFunc(func(command, args string, p *Parser, origin string) (ast.Node, error) {
		p.Push("autoescape", false)
		body, err := p.Parse("endnoescape")
		p.Pop("autoescape")
		if err != nil {
			return nil, err
		}
		p.End()
		return body, nil
	}),
	"leak": TagFunc(func(command, args string, p *Parser, origin string) (ast.Node, error) {
		p.Push("leak", 1)
		return nil, nil
	}),
	"prepend": TagFunc(func(command, args string, p *Parser, origin string) (ast.Node, error) {
		return nil, p.PrependPage(args)
	}),
	"append": TagFunc(func(command, args string, p *Parser, origin string) (ast.Node, error) {
		return nil, p.AppendPage(args)
	}),
}

func newParser(t *testing.T, templates map[string]string) *Parser {
	return newParserOpts(t, templates, Options{})
}

func newParserOpts(t *testing.T, templates map[string]string, opts Options) *Parser {
	var loader = mapLoader{"test.html": ""}
	for name, src := range templates {
		loader[name] = src
	}
	if opts.Tags == nil {
		opts.Tags = testTags
	}
	p, err := New("test.html", loader, opts)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func parseString(src string, opts Options) (*ast.ListNode, error) {
	if opts.Tags == nil {
		opts.Tags = testTags
	}
	p, err := New("test.html", mapLoader{"test.html": src, "other.html": "[other]"}, opts)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

func TestParse(t *testing.T) {
	var tests = []struct {
		input    string
		expected string
		nodes    int
	}{
		{"", "", 0},
		{"plain", "plain", 1},
		{"a{# comment #}b", "ab", 2},
		{"a{% wrap %}b{{ x }}{% endwrap %}c", "ab{{ x }}c", 3},
		{"{% wrap %}{% wrap %}x{% endwrap %}{% endwrap %}", "x", 1},
		{"{% first %}a", "a", 1},
		{"{# c #}{% first %}a", "a", 1},
		{"a{% prepend other.html %}b", "a[other]b", 3},
		{"a{% append other.html %}b", "ab[other]", 3},
	}
	for _, test := range tests {
		list, err := parseString(test.input, Options{})
		if err != nil {
			t.Errorf("%q: %v", test.input, err)
			continue
		}
		if list.String() != test.expected {
			t.Errorf("%q: got %q, expected %q", test.input, list.String(), test.expected)
		}
		if len(list.Nodes) != test.nodes {
			t.Errorf("%q: got %d nodes, expected %d", test.input, len(list.Nodes), test.nodes)
		}
	}
}

func TestParseErrors(t *testing.T) {
	var tests = []struct {
		input string
		kind  errortypes.Kind
		msg   string
	}{
		{"{% wrap %}x", errortypes.BlockNotFound, "endwrap"},
		{"{% nosuch %}", errortypes.MissingTag, "nosuch"},
		{"x{% first %}", errortypes.Syntax, "first"},
		{"{{ x }}{% first %}", errortypes.Syntax, "first"},
		{"{% first %}{% first %}", errortypes.Syntax, "first"},
		{"{% leak %}", errortypes.Syntax, "unbalanced"},
		{"{{ x|nosuch }}", errortypes.MissingFilter, "nosuch"},
		{"{{ x|default:y|nosuch }}", errortypes.MissingFilter, "nosuch"},
		{"{{ x|default:y.z|nosuch:1 }}", errortypes.MissingFilter, "nosuch"},
		{"{{ x|upper:1 }}", errortypes.Syntax, "upper"},
		{"{% prepend missing.html %}", errortypes.Load, "no such view"},
		{"a <?= x ?>", errortypes.Syntax, "raw code"},
		{"a <?php echo 1; ?>", errortypes.Syntax, "raw code"},
	}
	for _, test := range tests {
		_, err := parseString(test.input, Options{})
		if err == nil {
			t.Errorf("%q: expected error", test.input)
			continue
		}
		if !errortypes.Is(err, test.kind) {
			t.Errorf("%q: expected %v, got %v", test.input, test.kind, err)
		}
		if !strings.Contains(err.Error(), test.msg) {
			t.Errorf("%q: expected %q in %v", test.input, test.msg, err)
		}
		if pos := errortypes.ToErrFilePos(err); pos == nil || pos.File() != "test.html" {
			t.Errorf("%q: error does not name the template: %v", test.input, err)
		}
	}
}

func TestLoadError(t *testing.T) {
	_, err := New("nosuch.html", mapLoader{}, Options{})
	if !errortypes.Is(err, errortypes.Load) {
		t.Errorf("expected load error, got %v", err)
	}
	if !errors.Is(err, errNoView) {
		t.Errorf("expected the loader's error to be wrapped, got %v", err)
	}
}

func TestPageDepth(t *testing.T) {
	var p = newParserOpts(t, map[string]string{
		"test.html": "{% prepend p1 %}",
		"p1":        "{% prepend p2 %}",
		"p2":        "{% prepend p3 %}",
		"p3":        "{% prepend p4 %}",
		"p4":        "",
	}, Options{MaxDepth: 4})
	_, err := p.Parse()
	if !errortypes.Is(err, errortypes.Recursion) {
		t.Errorf("expected recursion error, got %v", err)
	}
}

func TestPrependCycle(t *testing.T) {
	var tests = []map[string]string{
		{"test.html": "{% prepend test.html %}"},
		{"test.html": "{% first %}{% prepend a %}", "a": "{% first %}{% prepend test.html %}"},
		{"test.html": "{% prepend a %}", "a": "{% prepend b %}", "b": "{% prepend a %}"},
	}
	for _, templates := range tests {
		_, err := newParser(t, templates).Parse()
		if !errortypes.Is(err, errortypes.Recursion) {
			t.Errorf("%v: expected recursion error, got %v", templates, err)
		}
	}

	list, err := newParser(t, map[string]string{
		"test.html": "{% prepend a %}x{% append b %}{% append b %}",
		"a":         "{% prepend b %}a",
		"b":         "b",
	}).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if list.String() != "baxbb" {
		t.Errorf("got %q", list.String())
	}
}

func TestAutoescapeStack(t *testing.T) {
	for _, on := range []bool{true, false} {
		list, err := parseString("{{ a }}{% noescape %}{{ b }}{% endnoescape %}{{ c }}", Options{Autoescape: on})
		if err != nil {
			t.Fatal(err)
		}
		var a = list.Nodes[0].(*ast.VariableNode)
		var b = list.Nodes[1].(*ast.ListNode).Nodes[0].(*ast.VariableNode)
		var c = list.Nodes[2].(*ast.VariableNode)
		if a.Escape != on || b.Escape || c.Escape != on {
			t.Errorf("autoescape %v: got %v %v %v", on, a.Escape, b.Escape, c.Escape)
		}
	}
}

func TestRawCode(t *testing.T) {
	list, err := parseString("a<?= x + 1 ?>b<?=y?>", Options{AllowRawCode: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d: %v", len(list.Nodes), list)
	}
	if expr := list.Nodes[1].(*ast.RawCodeNode).Expr; expr.Text != "x + 1" {
		t.Errorf("got expression %q", expr.Text)
	}
	if list.String() != "a<?= x + 1 ?>b<?= y ?>" {
		t.Errorf("got %q", list.String())
	}

	for _, bad := range []string{"<?php echo 1; ?>", "<?= x", "<?= 1 + ?>"} {
		if _, err := parseString(bad, Options{AllowRawCode: true}); !errortypes.Is(err, errortypes.Syntax) {
			t.Errorf("%q: expected syntax error, got %v", bad, err)
		}
	}
}

func TestStacks(t *testing.T) {
	var p = newParser(t, nil)
	if p.Peek("s") != nil || p.Pop("s") != nil {
		t.Error("expected empty stack")
	}
	p.Push("s", 1)
	p.Push("s", 2)
	p.Push("other", 3)
	if d := cmp.Diff([]interface{}{1, 2}, p.Stack("s")); d != "" {
		t.Errorf("(-expected +got)\n%s", d)
	}
	if p.Peek("s") != 2 || p.Pop("s") != 2 || p.Pop("s") != 1 || p.Pop("s") != nil {
		t.Error("expected LIFO order")
	}
	if p.Peek("other") != 3 {
		t.Error("stacks should be independent")
	}
}

func TestParseArg(t *testing.T) {
	var tests = []struct {
		text     string
		expected token.FilterArg
	}{
		{`"a b"`, token.FilterArg{Literal: data.String("a b")}},
		{"-2", token.FilterArg{Literal: data.Int(-2)}},
		{"x.y", token.FilterArg{Var: &token.VarRef{Path: []string{"x", "y"}}}},
		{" x|upper ", token.FilterArg{Var: &token.VarRef{
			Path:    []string{"x"},
			Filters: []token.FilterSpec{{Name: "upper"}},
		}}},
		{`x|default:"none"|upper`, token.FilterArg{Var: &token.VarRef{
			Path: []string{"x"},
			Filters: []token.FilterSpec{
				{Name: "default", Args: []token.FilterArg{{Literal: data.String("none")}}},
				{Name: "upper"},
			},
		}}},
	}
	var p = newParser(t, nil)
	for _, test := range tests {
		arg, err := p.ParseArg(test.text)
		if err != nil {
			t.Errorf("%s: %v", test.text, err)
			continue
		}
		if d := cmp.Diff(test.expected, arg); d != "" {
			t.Errorf("%s: (-expected +got)\n%s", test.text, d)
		}
	}

	var bad = []struct {
		text string
		kind errortypes.Kind
	}{
		{"", errortypes.Syntax},
		{"|upper", errortypes.Syntax},
		{"x|nosuch", errortypes.MissingFilter},
		{"x|upper:1", errortypes.Syntax},
		{`"open`, errortypes.Syntax},
	}
	for _, test := range bad {
		if _, err := p.ParseArg(test.text); !errortypes.Is(err, test.kind) {
			t.Errorf("%q: expected %v, got %v", test.text, test.kind, err)
		}
	}
}
