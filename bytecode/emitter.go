package bytecode

import (
	"sort"
	"strconv"

	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// Includer compiles the named template.
type Includer interface {
	Include(name string) (*Program, error)
}

// Emitter accumulates the instructions and declarations of a program as the
// node tree renders itself into it.
type Emitter struct {
	Name     string   // template the program is compiled from
	Includer Includer // compiles literal includes; nil forbids them

	code      []Instr
	tables    Program
	context   map[string]string
	private   map[string]string
	funcs     map[string]int
	functions []Function
	counter   int
}

// NewEmitter returns an empty emitter for the named template.
func NewEmitter(name string) *Emitter {
	return &Emitter{
		Name:    name,
		context: make(map[string]string),
		private: make(map[string]string),
		funcs:   make(map[string]int),
	}
}

// PC returns the index of the next instruction.
func (e *Emitter) PC() int {
	return len(e.code)
}

// AddPageContent appends instructions to the page and returns the index of
// the first one.
func (e *Emitter) AddPageContent(instrs ...Instr) int {
	var pc = len(e.code)
	e.code = append(e.code, instrs...)
	return pc
}

// Patch points the jump at pc to the next instruction.
func (e *Emitter) Patch(pc int) {
	e.PatchTo(pc, len(e.code))
}

// PatchTo points the jump at pc to target.
func (e *Emitter) PatchTo(pc, target int) {
	*e.code[pc].target() = target
}

// AddText appends raw text to the page.
func (e *Emitter) AddText(text string) {
	e.AddPageContent(Instr{Op: RawText, A: len(e.tables.Texts)})
	e.tables.Texts = append(e.tables.Texts, text)
}

// AddContextDeclaration declares a variable loaded from the render context.
func (e *Emitter) AddContextDeclaration(name, value string, allowOverride bool) error {
	return declare(e.context, "context variable", name, value, allowOverride)
}

// AddPrivateDeclaration declares a scratch slot.
func (e *Emitter) AddPrivateDeclaration(name, value string, allowOverride bool) error {
	return declare(e.private, "private member", name, value, allowOverride)
}

func declare(m map[string]string, what, name, value string, allowOverride bool) error {
	if prev, ok := m[name]; ok && prev != value && !allowOverride {
		return errortypes.Errorf(errortypes.MemberAlreadyExists, errortypes.Pos{},
			"%s %s is already declared as %q", what, name, prev)
	}
	m[name] = value
	return nil
}

// Unique returns a fresh private name starting with prefix.
func (e *Emitter) Unique(prefix string) string {
	e.counter++
	return prefix + strconv.Itoa(e.counter)
}

// AddFunctionDeclaration declares a named sub-program and returns its index
// for use by a Call instruction.  Declaring the same name again is allowed
// when the body is identical.
func (e *Emitter) AddFunctionDeclaration(name string, body *Program, allowOverride bool) (int, error) {
	if i, ok := e.funcs[name]; ok {
		if e.functions[i].Body.String() != body.String() {
			if !allowOverride {
				return 0, errortypes.Errorf(errortypes.MemberAlreadyExists, errortypes.Pos{Origin: e.Name},
					"function %s is already declared with a different body", name)
			}
			e.functions[i].Body = body
		}
		return i, nil
	}
	e.funcs[name] = len(e.functions)
	e.functions = append(e.functions, Function{name, body})
	return len(e.functions) - 1, nil
}

// convertVar translates a variable reference and declares the context
// variables it reads.
func (e *Emitter) convertVar(ref *token.VarRef, pos errortypes.Pos, escape bool) Var {
	// Reads of a name all declare the same value, so this cannot conflict.
	_ = e.AddContextDeclaration(ref.Root(), "context", true)
	return Var{
		Pos:     pos,
		Path:    ref.Path,
		Filters: e.convertChain(ref.Filters, pos),
		Escape:  escape,
	}
}

func (e *Emitter) convertChain(specs []token.FilterSpec, pos errortypes.Pos) Chain {
	if len(specs) == 0 {
		return nil
	}
	var chain = make(Chain, len(specs))
	for i, spec := range specs {
		chain[i].Name = spec.Name
		for _, arg := range spec.Args {
			chain[i].Args = append(chain[i].Args, e.convertArg(arg, pos))
		}
	}
	return chain
}

func (e *Emitter) convertArg(arg token.FilterArg, pos errortypes.Pos) Arg {
	if arg.Var != nil {
		var v = e.convertVar(arg.Var, pos, false)
		return Arg{Var: &v}
	}
	return Arg{Literal: arg.Literal}
}

// AddVar adds a variable to the operand table and returns its index.
func (e *Emitter) AddVar(ref *token.VarRef, pos errortypes.Pos, escape bool) int {
	e.tables.Vars = append(e.tables.Vars, e.convertVar(ref, pos, escape))
	return len(e.tables.Vars) - 1
}

// AddExpr compiles an expression and returns its index.
func (e *Emitter) AddExpr(tokens []token.ExprToken, text string, pos errortypes.Pos) (int, error) {
	code, err := e.compileExpr(tokens, pos, text)
	if err != nil {
		return 0, err
	}
	e.tables.Exprs = append(e.tables.Exprs, Expr{pos, text, code})
	return len(e.tables.Exprs) - 1, nil
}

// AddAssign adds an assignment of arg to name and returns its index.  A zero
// arg assigns captured output.
func (e *Emitter) AddAssign(name string, arg token.FilterArg, pos errortypes.Pos) int {
	var a = Assign{Name: name}
	if arg.Var != nil || arg.Literal != nil {
		a.Value = e.convertArg(arg, pos)
	}
	e.tables.Sets = append(e.tables.Sets, a)
	return len(e.tables.Sets) - 1
}

// AddLoop declares the iteration state of a for loop and returns its index.
func (e *Emitter) AddLoop(key, value string, array *token.VarRef, pos errortypes.Pos) (int, error) {
	var slot = e.Unique("loop")
	if err := e.AddPrivateDeclaration(slot, "loop "+array.String(), false); err != nil {
		return 0, err
	}
	e.tables.Loops = append(e.tables.Loops, Loop{
		Pos:   pos,
		Key:   key,
		Value: value,
		Array: e.convertVar(array, pos, false),
		Slot:  slot,
	})
	return len(e.tables.Loops) - 1, nil
}

// AddChain adds a filter chain and returns its index.
func (e *Emitter) AddChain(specs []token.FilterSpec, pos errortypes.Pos) int {
	e.tables.Chains = append(e.tables.Chains, e.convertChain(specs, pos))
	return len(e.tables.Chains) - 1
}

// QueryArg is a url query parameter before compilation.
type QueryArg struct {
	Key   string
	Value token.FilterArg
}

// AddURL adds a url and returns its index.
func (e *Emitter) AddURL(segments []token.FilterArg, query []QueryArg, pos errortypes.Pos) int {
	var u URL
	for _, seg := range segments {
		u.Segments = append(u.Segments, e.convertArg(seg, pos))
	}
	for _, q := range query {
		u.Query = append(u.Query, Param{q.Key, e.convertArg(q.Value, pos)})
	}
	e.tables.URLs = append(e.tables.URLs, u)
	return len(e.tables.URLs) - 1
}

// Output assembles the program.  Adjacent raw text is merged, empty raw text
// is dropped, and jumps are relocated accordingly.
func (e *Emitter) Output() (*Program, error) {
	var isTarget = make(map[int]bool)
	for i := range e.code {
		if t := e.code[i].target(); t != nil {
			isTarget[*t] = true
		}
	}

	var (
		prog  = e.tables
		texts []string
		code  []Instr
		moved = make([]int, len(e.code)+1)
	)
	prog.Name = e.Name
	for pc, in := range e.code {
		moved[pc] = len(code)
		if in.Op == RawText {
			var text = e.tables.Texts[in.A]
			if text == "" {
				if isTarget[pc] {
					isTarget[pc+1] = true
				}
				continue
			}
			if n := len(code); n > 0 && code[n-1].Op == RawText && !isTarget[pc] {
				texts[code[n-1].A] += text
				continue
			}
			in.A = len(texts)
			texts = append(texts, text)
		}
		code = append(code, in)
	}
	moved[len(e.code)] = len(code)
	for i := range code {
		if t := code[i].target(); t != nil {
			*t = moved[*t]
		}
	}
	prog.Texts = texts
	prog.Instr = append(code, Instr{Op: Return})

	prog.Context = sortedDeclarations(e.context)
	prog.Private = sortedDeclarations(e.private)

	// Functions are listed by name; calls are renumbered to match.
	var order = make([]int, len(e.functions))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return e.functions[order[i]].Name < e.functions[order[j]].Name
	})
	var renumber = make([]int, len(e.functions))
	prog.Functions = make([]Function, len(e.functions))
	for newIdx, oldIdx := range order {
		renumber[oldIdx] = newIdx
		prog.Functions[newIdx] = e.functions[oldIdx]
	}
	for i := range prog.Instr {
		if prog.Instr[i].Op == Call {
			prog.Instr[i].A = renumber[prog.Instr[i].A]
		}
	}
	return &prog, nil
}

func sortedDeclarations(m map[string]string) []Declaration {
	var decls = make([]Declaration, 0, len(m))
	for name, value := range m {
		decls = append(decls, Declaration{name, value})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}
