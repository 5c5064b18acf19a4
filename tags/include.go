package tags

import (
	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// parseInclude renders another template in place.  A quoted name is compiled
// along with this template; a variable is resolved when rendering.
//
//	{% include "<name>" %}
//	{% include <variable> %}
func parseInclude(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	if args == "" {
		return nil, p.Syntaxf("include requires a template name")
	}
	arg, err := p.ParseArg(args)
	if err != nil {
		return nil, err
	}
	if arg.Var != nil {
		return &ast.IncludeNode{Pos: at(p), Var: arg.Var}, nil
	}
	name, ok := arg.Literal.(data.String)
	if !ok || name == "" {
		return nil, p.Syntaxf("include requires a template name, not %s", arg)
	}
	return &ast.IncludeNode{Pos: at(p), Name: string(name)}, nil
}

// parseAppend queues another template after the rest of this one.  Blocks it
// defines override those already registered.
//
//	{% append "<name>" %}
func parseAppend(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	name, err := templateName(p, command, args)
	if err != nil {
		return nil, err
	}
	return nil, p.AppendPage(name)
}
