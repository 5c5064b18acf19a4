package bytecode

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"text/template"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/filters"
)

// DefaultMaxDepth is the nesting limit used when Env.MaxDepth is zero.
const DefaultMaxDepth = 32

// Env is the environment a program is executed in.
type Env struct {
	Filters      filters.Registry // nil means filters.Builtins
	FilterEnv    filters.Env
	PrintMissing bool     // print {?path?} for missing variables instead of failing
	Includer     Includer // compiles templates included by a variable
	MaxDepth     int      // include nesting limit
	BaseURL      string   // prefix of urls built by the url tag
}

// Execute renders the program against ctx.
func (p *Program) Execute(wr io.Writer, ctx data.Map, env *Env) error {
	if env == nil {
		env = &Env{}
	}
	return newState(p, wr, ctx, env, 0).run()
}

// state represents the state of an execution.
type state struct {
	prog  *Program
	env   *Env
	ctx   data.Map
	wr    io.Writer
	bufs  []*bytes.Buffer // capture and filter buffers, innermost last
	scope scope
	slots map[string]*iteration
	loops []*iteration // active loops, innermost last
	depth int
}

// iteration is the state of a running for loop.
type iteration struct {
	keys    []data.Value
	items   []data.Value
	i       int
	forloop data.Map
}

func newState(p *Program, wr io.Writer, ctx data.Map, env *Env, depth int) *state {
	var root = make(data.Map, len(p.Context))
	for _, decl := range p.Context {
		if v, ok := ctx[decl.Name]; ok {
			root[decl.Name] = v
		}
	}
	return &state{
		prog:  p,
		env:   env,
		ctx:   ctx,
		wr:    wr,
		scope: scope{root},
		slots: make(map[string]*iteration),
		depth: depth,
	}
}

func (s *state) out() io.Writer {
	if n := len(s.bufs); n > 0 {
		return s.bufs[n-1]
	}
	return s.wr
}

func (s *state) popBuffer() string {
	var buf = s.bufs[len(s.bufs)-1]
	s.bufs = s.bufs[:len(s.bufs)-1]
	return buf.String()
}

func (s *state) write(str string) error {
	_, err := io.WriteString(s.out(), str)
	return err
}

func (s *state) run() error {
	var code = s.prog.Instr
	for ip := 0; ip < len(code); {
		var in = code[ip]
		ip++

		var err error
		switch in.Op {
		case Nop:

		// Output ----------
		case RawText:
			err = s.write(s.prog.Texts[in.A])
		case Print:
			err = s.print(&s.prog.Vars[in.A])
		case PrintExpr:
			var v data.Value
			if v, err = s.evalExpr(&s.prog.Exprs[in.A]); err == nil {
				var str = v.String()
				if in.B == 1 {
					str = template.HTMLEscapeString(str)
				}
				err = s.write(str)
			}
		case BuildURL:
			err = s.url(&s.prog.URLs[in.A])

		// Control flow ----------
		case JumpIfFalse:
			var v data.Value
			if v, err = s.evalExpr(&s.prog.Exprs[in.A]); err == nil && !v.Truthy() {
				ip = in.B
			}
		case Jump:
			ip = in.A
		case ForBegin:
			var ok bool
			if ok, err = s.beginLoop(&s.prog.Loops[in.A]); err == nil && !ok {
				ip = in.B
			}
		case ForNext:
			if !s.nextLoop(&s.prog.Loops[in.A]) {
				ip = in.B
			}

		// Variables ----------
		case Set:
			var a = s.prog.Sets[in.A]
			var v data.Value
			if v, err = s.arg(a.Value); err == nil {
				s.scope.assign(a.Name, v)
			}
		case BeginCapture, BeginFilter:
			s.bufs = append(s.bufs, new(bytes.Buffer))
		case EndCapture:
			var captured = strings.TrimSpace(s.popBuffer())
			s.scope.assign(s.prog.Sets[in.A].Name, data.String(captured))
		case EndFilter:
			var v data.Value
			if v, _, err = s.applyChain(data.String(s.popBuffer()), s.prog.Chains[in.A], errortypes.Pos{Origin: s.prog.Name}); err == nil {
				err = s.write(v.String())
			}

		// Sub-programs ----------
		case Call:
			err = s.include(s.prog.Functions[in.A].Body, errortypes.Pos{Origin: s.prog.Name})
		case Include:
			err = s.includeVar(&s.prog.Vars[in.A])

		case Return:
			return nil
		default:
			return errortypes.Errorf(errortypes.Render, errortypes.Pos{Origin: s.prog.Name}, "unknown op: %s", in.Op)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// value resolves a variable and applies its filters.  ok is false, and no
// filter runs, when the path does not resolve and the first filter does not
// accept missing values.  safe reports whether a filter cancelled escaping.
func (s *state) value(v *Var) (val data.Value, safe, ok bool, err error) {
	val = data.Resolve(s.scope.lookup(v.Path[0]), v.Path[1:])
	if data.IsUndefined(val) {
		if len(v.Filters) == 0 {
			return val, false, false, nil
		}
		if f, found := s.filters().Lookup(v.Filters[0].Name); !found || !f.AcceptsMissing {
			return val, false, false, nil
		}
	}
	val, safe, err = s.applyChain(val, v.Filters, v.Pos)
	return val, safe, true, err
}

// resolve is value for contexts that have no use for the escaping flag.
// Unresolved paths are Undefined.
func (s *state) resolve(v *Var) (data.Value, error) {
	val, _, _, err := s.value(v)
	return val, err
}

func (s *state) filters() filters.Registry {
	if s.env.Filters == nil {
		return filters.Builtins
	}
	return s.env.Filters
}

func (s *state) applyChain(val data.Value, chain Chain, pos errortypes.Pos) (data.Value, bool, error) {
	var safe = false
	for _, f := range chain {
		filter, ok := s.filters().Lookup(f.Name)
		if !ok {
			return nil, false, errortypes.Errorf(errortypes.MissingFilter, pos, "no filter named %q", f.Name)
		}
		var args = make([]data.Value, len(f.Args))
		for i, arg := range f.Args {
			var err error
			if args[i], err = s.arg(arg); err != nil {
				return nil, false, err
			}
		}
		var err error
		if val, err = s.filters().Apply(&s.env.FilterEnv, f.Name, val, args); err != nil {
			return nil, false, errortypes.Wrap(errortypes.Render, pos, err)
		}
		if data.IsUndefined(val) {
			val = data.Null{}
		}
		safe = safe || filter.CancelAutoescape
	}
	return val, safe, nil
}

// arg evaluates a filter argument or assigned value.  Missing variables are
// null.
func (s *state) arg(a Arg) (data.Value, error) {
	if a.Var == nil {
		if a.Literal == nil {
			return data.Null{}, nil
		}
		return a.Literal, nil
	}
	v, err := s.resolve(a.Var)
	if err != nil {
		return nil, err
	}
	if data.IsUndefined(v) {
		return data.Null{}, nil
	}
	return v, nil
}

func (s *state) print(v *Var) error {
	val, safe, ok, err := s.value(v)
	if err != nil {
		return err
	}
	if !ok {
		str, err := s.missing(v)
		if err != nil {
			return err
		}
		return s.write(str)
	}
	var str = val.String()
	if v.Escape && !safe {
		str = template.HTMLEscapeString(str)
	}
	return s.write(str)
}

// missing applies the missing-variable policy.
func (s *state) missing(v *Var) (string, error) {
	var path = strings.Join(v.Path, ".")
	if s.env.PrintMissing {
		return "{?" + path + "?}", nil
	}
	return "", errortypes.Errorf(errortypes.MissingVariable, v.Pos, "variable %s is not defined", path)
}

func (s *state) beginLoop(l *Loop) (bool, error) {
	array, err := s.resolve(&l.Array)
	if err != nil {
		return false, err
	}
	var it = &iteration{}
	switch array := array.(type) {
	case data.List:
		for i, item := range array {
			it.keys = append(it.keys, data.Int(i))
			it.items = append(it.items, item)
		}
	case data.Map:
		for _, k := range array.Keys() {
			it.keys = append(it.keys, data.String(k))
			it.items = append(it.items, array[k])
		}
	}
	if len(it.items) == 0 {
		return false, nil
	}
	s.slots[l.Slot] = it
	s.loops = append(s.loops, it)
	s.scope.push()
	return true, nil
}

func (s *state) nextLoop(l *Loop) bool {
	var it = s.slots[l.Slot]
	if it.i >= len(it.items) {
		s.scope.pop()
		s.loops = s.loops[:len(s.loops)-1]
		delete(s.slots, l.Slot)
		return false
	}

	var parent data.Value = data.Null{}
	if n := len(s.loops); n > 1 {
		parent = s.loops[n-2].forloop
	}
	var n = len(it.items)
	it.forloop = data.Map{
		"counter":     data.Int(it.i + 1),
		"counter0":    data.Int(it.i),
		"revcounter":  data.Int(n - it.i),
		"revcounter0": data.Int(n - it.i - 1),
		"first":       data.Bool(it.i == 0),
		"last":        data.Bool(it.i == n-1),
		"parentloop":  parent,
	}
	if l.Key != "" {
		s.scope.bind(l.Key, it.keys[it.i])
	}
	s.scope.bind(l.Value, it.items[it.i])
	s.scope.bind("forloop", it.forloop)
	it.i++
	return true
}

func (s *state) maxDepth() int {
	if s.env.MaxDepth > 0 {
		return s.env.MaxDepth
	}
	return DefaultMaxDepth
}

// include executes prog with the current variables.
func (s *state) include(prog *Program, pos errortypes.Pos) error {
	if s.depth+1 > s.maxDepth() {
		return errortypes.Errorf(errortypes.Recursion, pos,
			"including %s: nesting exceeds %d levels", prog.Name, s.maxDepth())
	}
	var ctx = make(data.Map, len(s.ctx))
	for k, v := range s.ctx {
		ctx[k] = v
	}
	for k, v := range s.scope.flatten() {
		ctx[k] = v
	}
	return newState(prog, s.out(), ctx, s.env, s.depth+1).run()
}

func (s *state) includeVar(v *Var) error {
	val, _, ok, err := s.value(v)
	if err != nil {
		return err
	}
	if !ok {
		str, err := s.missing(v)
		if err != nil {
			return err
		}
		return s.write(str)
	}
	if data.IsNull(val) {
		return nil
	}
	if s.env.Includer == nil {
		return errortypes.Errorf(errortypes.Render, v.Pos, "cannot include %q: no template loader", val.String())
	}
	if s.depth+1 > s.maxDepth() {
		return errortypes.Errorf(errortypes.Recursion, v.Pos,
			"including %s: nesting exceeds %d levels", val.String(), s.maxDepth())
	}
	prog, err := s.env.Includer.Include(val.String())
	if err != nil {
		return err
	}
	return s.include(prog, v.Pos)
}

func (s *state) url(u *URL) error {
	var b strings.Builder
	b.WriteString(strings.TrimRight(s.env.BaseURL, "/"))
	for _, seg := range u.Segments {
		b.WriteByte('/')
		if seg.Var == nil {
			b.WriteString(strings.Trim(seg.Literal.String(), "/"))
			continue
		}
		v, err := s.arg(seg)
		if err != nil {
			return err
		}
		b.WriteString(url.PathEscape(v.String()))
	}
	if len(u.Segments) == 0 {
		b.WriteByte('/')
	}
	for i, q := range u.Query {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		v, err := s.arg(q.Value)
		if err != nil {
			return err
		}
		b.WriteString(url.QueryEscape(q.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v.String()))
	}
	return s.write(b.String())
}
