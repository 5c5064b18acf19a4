// Package parse converts a template into its in-memory representation (AST).
//
// Tokenize splits the source into tokens, and a Parser turns the token queue
// into a node tree, dispatching block tags to the registered Tag
// implementations.  Templates composed through extends and append share one
// Parser and one token queue.
package parse

import (
	"strings"

	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/filters"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// DefaultMaxDepth is the page composition limit used when Options.MaxDepth is
// zero.
const DefaultMaxDepth = 32

// Loader provides template sources by name.
type Loader interface {
	Load(name string) (string, error)
}

// Options control how templates are parsed.
type Options struct {
	Autoescape   bool             // escape variables unless an autoescape tag says otherwise
	AllowRawCode bool             // accept <?= expr ?> in template text
	MaxDepth     int              // limit on pages composed into one program
	Filters      filters.Registry // nil means the builtin filters
	Tags         Tags             // block tag implementations
}

// Parser holds the state of a single compile.
type Parser struct {
	name    string
	loader  Loader
	opts    Options
	queue   []token.Token
	pages   int
	tok     token.Token // tag being processed
	stacks  map[string][]interface{}
	blocks  map[string]*ast.BlockSlot
	emitted map[string]bool // origins that have produced a node
	chain   map[string]bool // the template and the pages prepended to it
}

// New loads and tokenizes the named template.
func New(name string, loader Loader, opts Options) (*Parser, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Filters == nil {
		opts.Filters = filters.Builtins
	}
	var p = &Parser{
		name:    name,
		loader:  loader,
		opts:    opts,
		stacks:  make(map[string][]interface{}),
		blocks:  make(map[string]*ast.BlockSlot),
		emitted: make(map[string]bool),
		chain:   map[string]bool{name: true},
	}
	p.tok.Origin = name
	tokens, err := p.load(name)
	if err != nil {
		return nil, err
	}
	p.queue = tokens
	return p, nil
}

// Name returns the name of the template being compiled.
func (p *Parser) Name() string {
	return p.name
}

// Options returns the options the parser was created with.
func (p *Parser) Options() Options {
	return p.opts
}

// Pos returns the position of the tag being processed.
func (p *Parser) Pos() errortypes.Pos {
	return errortypes.Pos{Origin: p.tok.Origin, Line: p.tok.Line, Col: p.tok.Col}
}

// Syntaxf returns a syntax error citing the tag being processed.
func (p *Parser) Syntaxf(format string, args ...interface{}) error {
	return errortypes.Syntaxf(p.Pos(), p.tok.String(), format, args...)
}

// Parse consumes tokens until the queue is exhausted or a block tag whose
// command is one of stop is reached.  The stop tag is left in the queue for
// the caller to read with Next.  If stop commands are given and none is
// found, Parse fails with a BlockNotFound error.
func (p *Parser) Parse(stop ...string) (*ast.ListNode, error) {
	var list = &ast.ListNode{Pos: ast.PosOf(p.tok)}
	for {
		tok, ok := p.Next()
		if !ok {
			break
		}
		if tok.Kind == token.Block && isOneOf(tok.Command, stop) {
			p.Backup(tok)
			return list, nil
		}
		nodes, err := p.nodes(tok)
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			list.Append(node)
		}
	}
	if len(stop) > 0 {
		return nil, errortypes.Errorf(errortypes.BlockNotFound, p.Pos(),
			"expected one of [%s]", strings.Join(stop, ", "))
	}
	return list, nil
}

func isOneOf(command string, list []string) bool {
	for _, c := range list {
		if c == command {
			return true
		}
	}
	return false
}

// nodes builds the nodes for one token.
func (p *Parser) nodes(tok token.Token) ([]ast.Node, error) {
	switch tok.Kind {
	case token.Comment:
		return nil, nil
	case token.Text:
		p.emitted[tok.Origin] = true
		return p.text(tok)
	case token.Variable:
		p.emitted[tok.Origin] = true
		node, err := p.variable(tok)
		if err != nil {
			return nil, err
		}
		return []ast.Node{node}, nil
	}

	var outer = p.tok
	p.tok = tok
	defer func() { p.tok = outer }()

	tag, ok := p.opts.Tags[tok.Command]
	if !ok {
		return nil, errortypes.Errorf(errortypes.MissingTag, p.Pos(), "unknown tag %q", tok.Command)
	}
	if tag.MustBeFirst() && p.emitted[tok.Origin] {
		return nil, p.Syntaxf("%s must be the first tag in %s", tok.Command, tok.Origin)
	}
	p.emitted[tok.Origin] = true

	var depth = p.stackDepth()
	node, err := tag.Node(tok.Command, tok.Args, p, tok.Origin)
	if err != nil {
		return nil, err
	}
	if p.stackDepth() != depth {
		return nil, p.Syntaxf("tag %s left its parser stacks unbalanced", tok.Command)
	}
	if node == nil {
		return nil, nil
	}
	return []ast.Node{node}, nil
}

// text builds a text node, compiling any <?= expr ?> regions when raw code is
// allowed.
func (p *Parser) text(tok token.Token) ([]ast.Node, error) {
	const (
		openExpr  = "<?="
		openCode  = "<?php"
		closeCode = "?>"
	)
	var text = tok.Raw
	if !strings.Contains(text, openExpr) && !strings.Contains(text, openCode) {
		return []ast.Node{&ast.TextNode{Pos: ast.PosOf(tok), Text: text}}, nil
	}
	var pos = errortypes.Pos{Origin: tok.Origin, Line: tok.Line, Col: tok.Col}
	if !p.opts.AllowRawCode {
		return nil, errortypes.Syntaxf(pos, excerpt(text), "raw code is not allowed in template %s", tok.Origin)
	}
	if i := strings.Index(text, openCode); i >= 0 {
		return nil, errortypes.Syntaxf(pos, excerpt(text[i:]), "only <?= expression ?> raw code is supported")
	}

	var outer = p.tok
	p.tok = tok
	defer func() { p.tok = outer }()

	var nodes []ast.Node
	for {
		var i = strings.Index(text, openExpr)
		if i < 0 {
			break
		}
		if i > 0 {
			nodes = append(nodes, &ast.TextNode{Pos: ast.PosOf(tok), Text: text[:i]})
		}
		var end = strings.Index(text[i:], closeCode)
		if end < 0 {
			return nil, errortypes.Syntaxf(pos, excerpt(text[i:]), "unclosed %s", openExpr)
		}
		expr, err := p.CompileExpression(tok.Origin, text[i+len(openExpr):i+end])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &ast.RawCodeNode{Pos: ast.PosOf(tok), Expr: expr})
		text = text[i+end+len(closeCode):]
	}
	if text != "" {
		nodes = append(nodes, &ast.TextNode{Pos: ast.PosOf(tok), Text: text})
	}
	return nodes, nil
}

func excerpt(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}

func (p *Parser) variable(tok token.Token) (ast.Node, error) {
	var pos = errortypes.Pos{Origin: tok.Origin, Line: tok.Line, Col: tok.Col}
	if err := p.checkFilters(tok.Filters, pos); err != nil {
		return nil, err
	}
	return &ast.VariableNode{
		Pos:    ast.PosOf(tok),
		Var:    &token.VarRef{Path: tok.Path, Filters: tok.Filters},
		Escape: p.Autoescape(),
	}, nil
}

// CheckFilters verifies that every filter of a chain, including those applied
// to variable arguments, exists and accepts its arguments.
func (p *Parser) CheckFilters(chain []token.FilterSpec) error {
	return p.checkFilters(chain, p.Pos())
}

func (p *Parser) checkFilters(chain []token.FilterSpec, pos errortypes.Pos) error {
	for _, spec := range chain {
		f, ok := p.opts.Filters.Lookup(spec.Name)
		if !ok {
			return errortypes.Errorf(errortypes.MissingFilter, pos, "unknown filter %q", spec.Name)
		}
		if !f.CheckArgs(len(spec.Args)) {
			return errortypes.Syntaxf(pos, spec.String(), "filter %s called with %d args, expects %v",
				spec.Name, len(spec.Args), f.ValidArgLengths)
		}
		for _, arg := range spec.Args {
			if arg.Var == nil {
				continue
			}
			if err := p.checkFilters(arg.Var.Filters, pos); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseVariable parses a variable reference found in tag arguments, checking
// its filters.
func (p *Parser) ParseVariable(text string) (*token.VarRef, error) {
	ref, err := ParseVariable(p.Pos(), strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	if err := p.checkFilters(ref.Filters, p.Pos()); err != nil {
		return nil, err
	}
	return ref, nil
}

// ParseArg parses a tag argument: a native literal, or a variable with an
// optional filter chain.
func (p *Parser) ParseArg(text string) (token.FilterArg, error) {
	text = strings.TrimSpace(text)
	if literal, ok, err := parseLiteral(text); ok {
		if err != nil {
			return token.FilterArg{}, errortypes.Syntaxf(p.Pos(), text, "bad string literal: %v", err)
		}
		return token.FilterArg{Literal: literal}, nil
	}
	if text == "" || !isAlpha(text[0]) {
		return token.FilterArg{}, errortypes.Syntaxf(p.Pos(), text, "expected a literal or a variable")
	}
	ref, err := p.ParseVariable(text)
	if err != nil {
		return token.FilterArg{}, err
	}
	return token.FilterArg{Var: ref}, nil
}

// ParseFilterChain parses name:arg|name:arg, as found in the filter tag.
func (p *Parser) ParseFilterChain(text string) ([]token.FilterSpec, error) {
	var chain []token.FilterSpec
	for _, piece := range Split(strings.TrimSpace(text), '|', '"', '\\', 0) {
		spec, err := parseFilter(p.Pos(), piece)
		if err != nil {
			return nil, err
		}
		chain = append(chain, spec)
	}
	if err := p.checkFilters(chain, p.Pos()); err != nil {
		return nil, err
	}
	return chain, nil
}

// Next removes and returns the next token of the queue.
func (p *Parser) Next() (token.Token, bool) {
	if len(p.queue) == 0 {
		return token.Token{}, false
	}
	var tok = p.queue[0]
	p.queue = p.queue[1:]
	return tok, true
}

// Backup returns a token to the front of the queue.
func (p *Parser) Backup(tok token.Token) {
	p.queue = append([]token.Token{tok}, p.queue...)
}

// End consumes the stop tag left by Parse and returns it.
func (p *Parser) End() token.Token {
	var tok, _ = p.Next()
	p.tok = tok
	return tok
}

// load reads and tokenizes a page, counting it against MaxDepth.
func (p *Parser) load(name string) ([]token.Token, error) {
	p.pages++
	if p.pages > p.opts.MaxDepth {
		return nil, errortypes.Errorf(errortypes.Recursion, p.Pos(),
			"loading %q: more than %d pages composed", name, p.opts.MaxDepth)
	}
	if p.loader == nil {
		return nil, errortypes.Errorf(errortypes.Load, p.Pos(), "no loader for %q", name)
	}
	source, err := p.loader.Load(name)
	if err != nil {
		return nil, errortypes.Wrap(errortypes.Load, p.Pos(), err)
	}
	return Tokenize(name, source)
}

// PrependPage loads a template and queues its tokens before the remaining
// ones, so that they are parsed next.
func (p *Parser) PrependPage(name string) error {
	if p.chain[name] {
		return errortypes.Errorf(errortypes.Recursion, p.Pos(),
			"%s is already part of the chain of pages composing %s", name, p.name)
	}
	p.chain[name] = true
	tokens, err := p.load(name)
	if err != nil {
		return err
	}
	p.queue = append(tokens, p.queue...)
	return nil
}

// AppendPage loads a template and queues its tokens after the remaining ones.
func (p *Parser) AppendPage(name string) error {
	tokens, err := p.load(name)
	if err != nil {
		return err
	}
	p.queue = append(p.queue, tokens...)
	return nil
}

// Push pushes a value onto the named stack.
func (p *Parser) Push(stack string, v interface{}) {
	p.stacks[stack] = append(p.stacks[stack], v)
}

// Pop removes the top of the named stack.  It returns nil if the stack is
// empty.
func (p *Parser) Pop(stack string) interface{} {
	var s = p.stacks[stack]
	if len(s) == 0 {
		return nil
	}
	var v = s[len(s)-1]
	p.stacks[stack] = s[:len(s)-1]
	return v
}

// Peek returns the top of the named stack, or nil.
func (p *Parser) Peek(stack string) interface{} {
	var s = p.stacks[stack]
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Stack returns the contents of the named stack, bottom first.
func (p *Parser) Stack(stack string) []interface{} {
	return append([]interface{}(nil), p.stacks[stack]...)
}

func (p *Parser) stackDepth() int {
	var n = 0
	for _, s := range p.stacks {
		n += len(s)
	}
	return n
}

// Autoescape returns the escaping policy in effect: the innermost autoescape
// tag, or the configured default.
func (p *Parser) Autoescape() bool {
	if on, ok := p.Peek("autoescape").(bool); ok {
		return on
	}
	return p.opts.Autoescape
}

// RegisterBlock records the slot holding the named block.
func (p *Parser) RegisterBlock(name string, slot *ast.BlockSlot) {
	p.blocks[name] = slot
}

// Block returns the slot registered for the named block.
func (p *Parser) Block(name string) (*ast.BlockSlot, bool) {
	slot, ok := p.blocks[name]
	return slot, ok
}
