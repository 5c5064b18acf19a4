package tags

import (
	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// parseIf parses a conditional and its branches.
//
//	{% if <expr> %}
//	{% elseif <expr> %}
//	{% else %}
//	{% endif %}
func parseIf(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	if args == "" {
		return nil, p.Syntaxf("if requires a condition")
	}
	var node = &ast.IfNode{Pos: at(p)}
	cond, err := p.CompileExpression(origin, args)
	if err != nil {
		return nil, err
	}
	var pos = node.Pos
	var seenElse = false
	for {
		body, err := p.Parse("elseif", "else", "endif")
		if err != nil {
			return nil, err
		}
		node.Conds = append(node.Conds, &ast.IfCond{Pos: pos, Cond: cond, Body: body})

		var end = p.End()
		pos = at(p)
		switch end.Command {
		case "endif":
			return node, nil
		case "else":
			if seenElse {
				return nil, p.Syntaxf("if has more than one else")
			}
			if end.HasArgs {
				return nil, p.Syntaxf("else takes no condition; use elseif")
			}
			seenElse = true
			cond = nil
		case "elseif":
			if seenElse {
				return nil, p.Syntaxf("elseif after else")
			}
			if end.Args == "" {
				return nil, p.Syntaxf("elseif requires a condition")
			}
			if cond, err = p.CompileExpression(end.Origin, end.Args); err != nil {
				return nil, err
			}
		}
	}
}
