package tags

import (
	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// parseBlock parses a named, overridable block.  The first definition of a
// name registers a slot and renders it in place; later definitions, which
// come from templates extending the first one, replace the slot's content.
//
//	{% block <name> %}
//	{% endblock [<name>] %}
func parseBlock(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	if args == "" {
		return nil, p.Syntaxf("block requires a name")
	}
	var pos = at(p)
	p.Push(blockStack, args)
	defer p.Pop(blockStack)

	body, err := p.Parse("endblock")
	if err != nil {
		return nil, err
	}
	if end := p.End(); end.Args != "" && end.Args != args {
		return nil, p.Syntaxf("endblock %s does not close block %s", end.Args, args)
	}

	if slot, ok := p.Block(args); ok {
		slot.SetNodes(body)
		return nil, nil
	}
	var slot = &ast.BlockSlot{Name: args, Nodes: body}
	p.RegisterBlock(args, slot)
	return &ast.BlockNode{Pos: pos, Name: args, Slot: slot}, nil
}

// parseParentBlock splices in the content the enclosing block had before this
// definition overrides it.
//
//	{% parentblock %}
func parseParentBlock(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	name, ok := p.Peek(blockStack).(string)
	if !ok {
		return nil, p.Syntaxf("parentblock outside of a block")
	}
	slot, ok := p.Block(name)
	if !ok {
		return nil, p.Syntaxf("block %s has no parent definition", name)
	}
	var snapshot = &ast.ListNode{
		Pos:   slot.Nodes.Pos,
		Nodes: append([]ast.Node(nil), slot.Nodes.Nodes...),
	}
	return &ast.ParentBlockNode{Pos: at(p), Name: name, Nodes: snapshot}, nil
}

// extendsTag queues the parent template ahead of the rest of the child, so
// the parent's blocks register first and the child's definitions override
// them.
//
//	{% extends "<name>" %}
type extendsTag struct{}

func (extendsTag) Node(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	parent, err := templateName(p, command, args)
	if err != nil {
		return nil, err
	}
	return nil, p.PrependPage(parent)
}

func (extendsTag) MustBeFirst() bool {
	return true
}

// templateName parses the quoted template name argument of a tag.
func templateName(p *parse.Parser, command, args string) (string, error) {
	if args == "" {
		return "", p.Syntaxf("%s requires a template name", command)
	}
	arg, err := p.ParseArg(args)
	if err != nil {
		return "", err
	}
	name, ok := arg.Literal.(data.String)
	if !ok || name == "" {
		return "", p.Syntaxf("%s requires a quoted template name", command)
	}
	return string(name), nil
}
