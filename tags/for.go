package tags

import (
	"strings"

	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// parseFor parses a loop over a list or map.
//
//	{% for <value> in <path> %}
//	{% for <key>, <value> in <path> %}
//	{% empty %}
//	{% endfor %}
func parseFor(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	var i = strings.Index(args, " in ")
	if i < 0 {
		return nil, p.Syntaxf("expected for <value> in <variable>")
	}
	var node = &ast.ForNode{Pos: at(p)}

	var vars = strings.Split(args[:i], ",")
	if len(vars) > 2 {
		return nil, p.Syntaxf("for binds at most a key and a value")
	}
	var err error
	if node.Value, err = name(p, strings.TrimSpace(vars[len(vars)-1]), "loop variable"); err != nil {
		return nil, err
	}
	if len(vars) == 2 {
		if node.Key, err = name(p, strings.TrimSpace(vars[0]), "loop variable"); err != nil {
			return nil, err
		}
		if node.Key == node.Value {
			return nil, p.Syntaxf("loop key and value are both named %s", node.Key)
		}
	}
	if node.Array, err = p.ParseVariable(args[i+len(" in "):]); err != nil {
		return nil, err
	}

	p.Push(forStack, node)
	defer p.Pop(forStack)

	if node.Body, err = p.Parse("empty", "endfor"); err != nil {
		return nil, err
	}
	if p.End().Command == "empty" {
		if node.Empty, err = p.Parse("endfor"); err != nil {
			return nil, err
		}
		p.End()
	}
	return node, nil
}
