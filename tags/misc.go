package tags

import (
	"strings"

	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/bytecode"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/parse"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// {% filter <name>[:<arg>]|... %}...{% endfilter %}
func parseFilter(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	if args == "" {
		return nil, p.Syntaxf("filter requires a filter name")
	}
	var node = &ast.FilterNode{Pos: at(p)}
	var err error
	if node.Chain, err = p.ParseFilterChain(args); err != nil {
		return nil, err
	}
	if node.Body, err = p.Parse("endfilter"); err != nil {
		return nil, err
	}
	p.End()
	return node, nil
}

// {% autoescape on|off %}...{% endautoescape %}
func parseAutoescape(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	var on bool
	switch args {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return nil, p.Syntaxf("autoescape expects on or off, not %q", args)
	}
	p.Push(autoescapeStack, on)
	defer p.Pop(autoescapeStack)

	body, err := p.Parse("endautoescape")
	if err != nil {
		return nil, err
	}
	p.End()
	return body, nil
}

// parseURL builds a url from path segments and query parameters.
//
//	{% url "users" user.id "edit" tab="profile" ref=source %}
func parseURL(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	var node = &ast.URLNode{Pos: at(p)}
	for _, piece := range parse.Split(args, ' ', '"', '\\', 0) {
		if piece = strings.TrimSpace(piece); piece == "" {
			continue
		}
		var kv = parse.Split(piece, '=', '"', '\\', 2)
		if len(kv) == 1 {
			seg, err := p.ParseArg(piece)
			if err != nil {
				return nil, err
			}
			node.Segments = append(node.Segments, seg)
			continue
		}
		if kv[0] == "" || kv[1] == "" {
			return nil, p.Syntaxf("malformed query parameter %q", piece)
		}
		value, err := p.ParseArg(kv[1])
		if err != nil {
			return nil, err
		}
		node.Query = append(node.Query, bytecode.QueryArg{Key: kv[0], Value: value})
	}
	if len(node.Segments) == 0 {
		return nil, p.Syntaxf("url requires at least one path segment")
	}
	return node, nil
}

var templateTags = map[string]string{
	"openblock":     "{%",
	"closeblock":    "%}",
	"openvariable":  "{{",
	"closevariable": "}}",
	"opencomment":   "{#",
	"closecomment":  "#}",
	"openbrace":     "{",
	"closebrace":    "}",
}

// {% templatetag openblock %}
func parseTemplateTag(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	text, ok := templateTags[args]
	if !ok {
		return nil, p.Syntaxf("unknown templatetag %q", args)
	}
	return &ast.TemplateTagNode{Pos: at(p), Name: args, Text: text}, nil
}

// parseComment discards everything up to the matching endcomment, without
// parsing it.
//
//	{% comment %}...{% endcomment %}
func parseComment(command, args string, p *parse.Parser, origin string) (ast.Node, error) {
	for {
		tok, ok := p.Next()
		if !ok {
			return nil, errortypes.Errorf(errortypes.BlockNotFound, p.Pos(), "expected one of [endcomment]")
		}
		if tok.Kind == token.Block && tok.Command == "endcomment" {
			return nil, nil
		}
	}
}
