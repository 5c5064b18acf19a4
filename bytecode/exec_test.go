package bytecode

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/filters"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// Expression token shorthands.
func num(v data.Value) token.ExprToken {
	return token.ExprToken{Kind: token.ExprNumber, Text: v.String(), Value: v}
}
func str(s string) token.ExprToken {
	return token.ExprToken{Kind: token.ExprString, Text: token.Literal(data.String(s)), Value: data.String(s)}
}
func variable(path string) token.ExprToken {
	return token.ExprToken{Kind: token.ExprVariable, Text: path, Var: ref(path)}
}
func op(text string) token.ExprToken {
	var kind = token.ExprOperator
	switch text {
	case "&&", "||":
		kind = token.ExprJoiner
	case "==", "!=", "===", "!==", "<", "<=", ">", ">=":
		kind = token.ExprComparator
	case ".":
		kind = token.ExprConcat
	case "!":
		kind = token.ExprInvert
	case "(":
		kind = token.ExprGroupOpen
	case ")":
		kind = token.ExprGroupClose
	}
	return token.ExprToken{Kind: kind, Text: text}
}

var null = token.ExprToken{Kind: token.ExprConst, Text: "null", Value: data.Null{}}

func evalTokens(t *testing.T, ctx data.Map, tokens ...token.ExprToken) (data.Value, error) {
	t.Helper()
	var e = NewEmitter("test.html")
	idx, err := e.AddExpr(tokens, token.Join(tokens), pos)
	if err != nil {
		return nil, err
	}
	e.AddPageContent(Instr{Op: PrintExpr, A: idx})
	prog, err := e.Output()
	if err != nil {
		return nil, err
	}
	var s = newState(prog, new(strings.Builder), ctx, &Env{}, 0)
	return s.evalExpr(&prog.Exprs[0])
}

func TestEvalExpr(t *testing.T) {
	var ctx = data.Map{
		"a":     data.Int(3),
		"b":     data.Int(4),
		"f":     data.Float(0.1),
		"s":     data.String("10"),
		"name":  data.String("bob"),
		"empty": data.String(""),
		"list":  data.List{data.Int(1), data.String("x")},
	}
	var tests = []struct {
		tokens   []token.ExprToken
		expected data.Value
	}{
		{[]token.ExprToken{num(data.Int(1)), op("+"), num(data.Int(2)), op("*"), num(data.Int(3))}, data.Int(7)},
		{[]token.ExprToken{op("("), num(data.Int(1)), op("+"), num(data.Int(2)), op(")"), op("*"), num(data.Int(3))}, data.Int(9)},
		{[]token.ExprToken{num(data.Int(7)), op("/"), num(data.Int(2))}, data.Float(3.5)},
		{[]token.ExprToken{num(data.Int(8)), op("/"), num(data.Int(2))}, data.Int(4)},
		{[]token.ExprToken{num(data.Int(7)), op("%"), num(data.Int(4))}, data.Int(3)},
		{[]token.ExprToken{num(data.Int(10)), op("-"), num(data.Int(4)), op("-"), num(data.Int(3))}, data.Int(3)},
		{[]token.ExprToken{variable("f"), op("+"), num(data.Float(0.2)), op("=="), num(data.Float(0.3))}, data.Bool(true)},
		{[]token.ExprToken{variable("s"), op("+"), variable("a")}, data.Int(13)},
		{[]token.ExprToken{variable("a"), op("<"), variable("b"), op("&&"), variable("b"), op("<"), num(data.Int(5))}, data.Bool(true)},
		{[]token.ExprToken{variable("a"), op(">"), variable("b"), op("||"), variable("name"), op("=="), str("bob")}, data.Bool(true)},
		{[]token.ExprToken{op("!"), variable("a"), op("=="), num(data.Int(3))}, data.Bool(false)},
		{[]token.ExprToken{op("!"), op("("), variable("a"), op("=="), num(data.Int(4)), op(")")}, data.Bool(true)},
		{[]token.ExprToken{variable("s"), op("=="), num(data.Int(10))}, data.Bool(true)},
		{[]token.ExprToken{variable("s"), op("==="), num(data.Int(10))}, data.Bool(false)},
		{[]token.ExprToken{variable("s"), op("!=="), num(data.Int(10))}, data.Bool(true)},
		{[]token.ExprToken{variable("missing"), op("=="), null}, data.Bool(true)},
		{[]token.ExprToken{variable("missing"), op("==="), null}, data.Bool(true)},
		{[]token.ExprToken{variable("empty"), op("=="), null}, data.Bool(true)},
		{[]token.ExprToken{variable("empty"), op("==="), null}, data.Bool(false)},
		{[]token.ExprToken{variable("name"), op("."), str("!"), op("."), variable("a")}, data.String("bob!3")},
		{[]token.ExprToken{str("abc"), op("<"), str("abd")}, data.Bool(true)},
		{[]token.ExprToken{num(data.Int(9)), op("<"), str("10")}, data.Bool(true)},
		{[]token.ExprToken{op("!"), token.NewCall("is_null", variable("missing"))}, data.Bool(false)},
		{[]token.ExprToken{token.NewCall("is_array", variable("list"))}, data.Bool(true)},
		{[]token.ExprToken{token.NewCall("count", variable("list"))}, data.Int(2)},
		{[]token.ExprToken{token.NewCall("in_array", str("x"), variable("list"))}, data.Bool(true)},
		{[]token.ExprToken{token.NewCall("in_array", num(data.Int(2)), variable("list"))}, data.Bool(false)},
		{[]token.ExprToken{token.NewCall("contains", variable("name"), str("ob"))}, data.Bool(true)},
	}

	for _, test := range tests {
		var text = token.Join(test.tokens)
		got, err := evalTokens(t, ctx, test.tokens...)
		if err != nil {
			t.Errorf("%s: %v", text, err)
			continue
		}
		if d := cmp.Diff(test.expected, got); d != "" {
			t.Errorf("%s: (-expected +got)\n%s", text, d)
		}
	}
}

func TestEvalExprErrors(t *testing.T) {
	var tests = []struct {
		tokens []token.ExprToken
		kind   errortypes.Kind
	}{
		{[]token.ExprToken{op("("), num(data.Int(1))}, errortypes.Syntax},
		{[]token.ExprToken{num(data.Int(1)), op(")")}, errortypes.Syntax},
		{[]token.ExprToken{num(data.Int(1)), op("/"), num(data.Int(0))}, errortypes.Render},
		{[]token.ExprToken{str("abc"), op("*"), num(data.Int(2))}, errortypes.Render},
		{[]token.ExprToken{token.NewCall("system", str("ls"))}, errortypes.Syntax},
	}
	for _, test := range tests {
		_, err := evalTokens(t, nil, test.tokens...)
		if !errortypes.Is(err, test.kind) {
			t.Errorf("%s: expected %v, got %v", token.Join(test.tokens), test.kind, err)
		}
	}
}

type execTest struct {
	name     string
	build    func(e *Emitter)
	ctx      data.Map
	expected string
}

func emitPrint(e *Emitter, path string, filters ...token.FilterSpec) {
	e.AddPageContent(Instr{Op: Print, A: e.AddVar(ref(path, filters...), pos, true)})
}

// loop emits a for loop over array, with an optional empty branch.
func loop(e *Emitter, key, value, array string, body, empty func()) {
	idx, _ := e.AddLoop(key, value, ref(array), pos)
	var begin = e.AddPageContent(Instr{Op: ForBegin, A: idx})
	var next = e.AddPageContent(Instr{Op: ForNext, A: idx})
	body()
	e.AddPageContent(Instr{Op: Jump, A: next})
	e.Patch(begin)
	if empty != nil {
		empty()
	}
	e.Patch(next)
}

func TestExec(t *testing.T) {
	var tests = []execTest{
		{
			name: "escaping",
			build: func(e *Emitter) {
				emitPrint(e, "html")
				emitPrint(e, "html", token.FilterSpec{Name: "safe"})
				emitPrint(e, "html", token.FilterSpec{Name: "upper"})
			},
			ctx:      data.Map{"html": data.String("<b>")},
			expected: "&lt;b&gt;<b>&lt;B&gt;",
		},
		{
			name: "record and list access",
			build: func(e *Emitter) {
				emitPrint(e, "list.1")
				emitPrint(e, "map.key")
			},
			ctx:      data.Map{"list": data.List{data.String("a"), data.String("b")}, "map": data.Map{"key": data.Int(5)}},
			expected: "b5",
		},
		{
			name: "default accepts missing",
			build: func(e *Emitter) {
				emitPrint(e, "nope", token.FilterSpec{Name: "default", Args: []token.FilterArg{{Var: ref("fallback")}}})
			},
			ctx:      data.Map{"fallback": data.String("fb")},
			expected: "fb",
		},
		{
			name: "loop with forloop",
			build: func(e *Emitter) {
				loop(e, "i", "item", "items", func() {
					emitPrint(e, "forloop.counter")
					e.AddText(":")
					emitPrint(e, "i")
					e.AddText("=")
					emitPrint(e, "item")
					e.AddText(";")
				}, nil)
			},
			ctx:      data.Map{"items": data.List{data.String("a"), data.String("b")}},
			expected: "1:0=a;2:1=b;",
		},
		{
			name: "map iterates in key order",
			build: func(e *Emitter) {
				loop(e, "k", "v", "m", func() {
					emitPrint(e, "k")
					emitPrint(e, "v")
					emitPrint(e, "forloop.revcounter0")
				}, nil)
			},
			ctx:      data.Map{"m": data.Map{"b": data.Int(2), "a": data.Int(1), "c": data.Int(3)}},
			expected: "a12b21c30",
		},
		{
			name: "empty branch sees parent loop",
			build: func(e *Emitter) {
				loop(e, "", "row", "rows", func() {
					loop(e, "", "cell", "row", func() {
						emitPrint(e, "cell")
						emitPrint(e, "forloop.parentloop.counter")
					}, func() {
						e.AddText("empty")
						emitPrint(e, "forloop.counter")
					})
					e.AddText("|")
				}, nil)
			},
			ctx: data.Map{"rows": data.List{
				data.List{data.String("x")},
				data.List{},
			}},
			expected: "x1|empty2|",
		},
		{
			name: "absent iterable is empty",
			build: func(e *Emitter) {
				loop(e, "", "x", "nothing", func() { e.AddText("no") }, func() { e.AddText("none") })
			},
			expected: "none",
		},
		{
			name: "set assigns root unless bound in a loop",
			build: func(e *Emitter) {
				e.AddPageContent(Instr{Op: Set, A: e.AddAssign("total", token.FilterArg{Literal: data.Int(0)}, pos)})
				loop(e, "", "x", "xs", func() {
					e.AddPageContent(Instr{Op: Set, A: e.AddAssign("total", token.FilterArg{Var: ref("x")}, pos)})
					e.AddPageContent(Instr{Op: Set, A: e.AddAssign("x", token.FilterArg{Literal: data.String("shadow")}, pos)})
				}, nil)
				emitPrint(e, "total")
				emitPrint(e, "x")
			},
			ctx:      data.Map{"xs": data.List{data.Int(1), data.Int(2)}, "x": data.String("outer")},
			expected: "2outer",
		},
		{
			name: "capture is trimmed",
			build: func(e *Emitter) {
				e.AddPageContent(Instr{Op: BeginCapture})
				e.AddText("  captured \n")
				e.AddPageContent(Instr{Op: EndCapture, A: e.AddAssign("c", token.FilterArg{}, pos)})
				e.AddText("[")
				emitPrint(e, "c")
				e.AddText("]")
			},
			expected: "[captured]",
		},
		{
			name: "filter block",
			build: func(e *Emitter) {
				e.AddPageContent(Instr{Op: BeginFilter})
				e.AddText("hello ")
				emitPrint(e, "name")
				e.AddPageContent(Instr{Op: EndFilter, A: e.AddChain([]token.FilterSpec{{Name: "upper"}, {Name: "replace", Args: []token.FilterArg{
					{Literal: data.String(" ")}, {Literal: data.String("_")},
				}}}, pos)})
			},
			ctx:      data.Map{"name": data.String("ann")},
			expected: "HELLO_ANN",
		},
		{
			name: "url",
			build: func(e *Emitter) {
				e.AddPageContent(Instr{Op: BuildURL, A: e.AddURL(
					[]token.FilterArg{{Literal: data.String("blog")}, {Var: ref("slug")}},
					[]QueryArg{{"q", token.FilterArg{Var: ref("query")}}, {"page", token.FilterArg{Literal: data.Int(2)}}},
					pos)})
			},
			ctx:      data.Map{"slug": data.String("a b/c"), "query": data.String("x&y")},
			expected: "/blog/a%20b%2Fc?q=x%26y&page=2",
		},
	}

	for _, test := range tests {
		var e = NewEmitter("test.html")
		test.build(e)
		prog, err := e.Output()
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		var buf strings.Builder
		if err := prog.Execute(&buf, test.ctx, &Env{}); err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if d := cmp.Diff(test.expected, buf.String()); d != "" {
			t.Errorf("%s: (-expected +got)\n%s\n%s", test.name, d, prog)
		}
	}
}

func TestMissingVariable(t *testing.T) {
	var e = NewEmitter("test.html")
	e.AddText("Hi ")
	emitPrint(e, "user.name")
	prog, _ := e.Output()

	var buf strings.Builder
	err := prog.Execute(&buf, data.Map{}, &Env{})
	if !errortypes.Is(err, errortypes.MissingVariable) {
		t.Errorf("expected missing variable error, got %v", err)
	}

	buf.Reset()
	if err = prog.Execute(&buf, data.Map{}, &Env{PrintMissing: true}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Hi {?user.name?}" {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err = prog.Execute(&buf, data.Map{"user": data.Map{"name": data.Null{}}}, &Env{}); err != nil {
		t.Errorf("null is not missing: %v", err)
	}
}

func TestFilterResultIsNotMissing(t *testing.T) {
	var nothing = filters.Filter{
		Apply: func(_ *filters.Env, _ data.Value, _ []data.Value) (data.Value, error) {
			return data.Undefined{}, nil
		},
	}
	var env = &Env{Filters: filters.Builtins.With(filters.Registry{"nothing": nothing})}
	var tests = []struct {
		name   string
		filter string
		ctx    data.Map
	}{
		{"first of empty list", "first", data.Map{"xs": data.List{}}},
		{"last of empty list", "last", data.Map{"xs": data.List{}}},
		{"last of a number", "last", data.Map{"xs": data.Int(5)}},
		{"filter without result", "nothing", data.Map{"xs": data.Int(5)}},
	}
	for _, test := range tests {
		var e = NewEmitter("test.html")
		e.AddText("a")
		emitPrint(e, "xs", token.FilterSpec{Name: test.filter})
		e.AddText("b")
		prog, _ := e.Output()

		var buf strings.Builder
		if err := prog.Execute(&buf, test.ctx, env); err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if buf.String() != "ab" {
			t.Errorf("%s: got %q", test.name, buf.String())
		}
	}

	var e = NewEmitter("test.html")
	emitPrint(e, "nosuch", token.FilterSpec{Name: "first"})
	prog, _ := e.Output()
	if err := prog.Execute(new(strings.Builder), data.Map{}, env); !errortypes.Is(err, errortypes.MissingVariable) {
		t.Errorf("unresolved path: expected missing variable error, got %v", err)
	}
}

type recursiveIncluder struct{ calls int }

func (r *recursiveIncluder) Include(name string) (*Program, error) {
	r.calls++
	var e = NewEmitter(name)
	e.AddText(".")
	e.AddPageContent(Instr{Op: Include, A: e.AddVar(ref("next"), pos, false)})
	return e.Output()
}

func TestIncludeDepth(t *testing.T) {
	var includer = &recursiveIncluder{}
	prog, _ := includer.Include("loop.html")
	var buf strings.Builder
	err := prog.Execute(&buf, data.Map{"next": data.String("loop.html")}, &Env{Includer: includer, MaxDepth: 5})
	if !errortypes.Is(err, errortypes.Recursion) {
		t.Errorf("expected recursion error, got %v", err)
	}
	if buf.String() != strings.Repeat(".", 6) {
		t.Errorf("got %q", buf.String())
	}
	if includer.calls != 6 {
		t.Errorf("expected 6 compiles, got %d", includer.calls)
	}
}

func ExampleProgram_Execute() {
	var e = NewEmitter("hello.html")
	e.AddText("Hello, ")
	e.AddPageContent(Instr{Op: Print, A: e.AddVar(ref("name"), errortypes.Pos{}, true)})
	prog, _ := e.Output()

	var buf strings.Builder
	prog.Execute(&buf, data.Map{"name": data.String("<world>")}, nil)
	fmt.Println(buf.String())
	// Output: Hello, &lt;world&gt;
}
