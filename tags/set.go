package tags

import (
	"strings"

	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// parseSet parses an assignment from a value or from rendered output.
//
//	{% set <name> = <literal or variable> %}
//	{% set <name> %}...{% endset %}
func parseSet(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	var target, value = args, ""
	var assign = false
	if i := strings.IndexByte(args, '='); i >= 0 {
		target, value, assign = strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:]), true
	}
	if target == "" {
		return nil, p.Syntaxf("set requires a variable name")
	}
	var node = &ast.SetNode{Pos: at(p)}
	var err error
	if node.Name, err = name(p, target, "set target"); err != nil {
		return nil, err
	}
	for _, v := range p.Stack(forStack) {
		if loop := v.(*ast.ForNode); loop.Value == node.Name || loop.Key == node.Name {
			return nil, p.Syntaxf("cannot assign to loop variable %s", node.Name)
		}
	}

	if assign {
		if value == "" {
			return nil, p.Syntaxf("set %s requires a value", node.Name)
		}
		if node.Value, err = p.ParseArg(value); err != nil {
			return nil, err
		}
		return node, nil
	}

	if node.Body, err = p.Parse("endset"); err != nil {
		return nil, err
	}
	p.End()
	return node, nil
}
