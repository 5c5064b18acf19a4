// Package tags implements the builtin block tags: if, for, set, block,
// parentblock, extends, include, append, filter, autoescape, url,
// templatetag and comment.
//
// Custom tags are added by extending the registry returned by Builtins:
//
//	var all = tags.Builtins().With(parse.Tags{"now": parse.TagFunc(now)})
package tags

import (
	"github.com/hydrogen-tpl/hydrogen/ast"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// Parser stack names.
const (
	autoescapeStack = "autoescape"
	blockStack      = "block"
	forStack        = "for"
)

// Builtins returns a new registry holding the builtin tags.
func Builtins() parse.Tags {
	return parse.Tags{
		"if":          parse.TagFunc(parseIf),
		"for":         parse.TagFunc(parseFor),
		"set":         parse.TagFunc(parseSet),
		"block":       parse.TagFunc(parseBlock),
		"parentblock": parse.TagFunc(parseParentBlock),
		"extends":     extendsTag{},
		"include":     parse.TagFunc(parseInclude),
		"append":      parse.TagFunc(parseAppend),
		"filter":      parse.TagFunc(parseFilter),
		"autoescape":  parse.TagFunc(parseAutoescape),
		"url":         parse.TagFunc(parseURL),
		"templatetag": parse.TagFunc(parseTemplateTag),
		"comment":     parse.TagFunc(parseComment),
	}
}

// at returns the position of the tag being parsed.
func at(p *parse.Parser) ast.Pos {
	var pos = p.Pos()
	return ast.Pos{Origin: pos.Origin, Line: pos.Line, Col: pos.Col}
}

// name parses a bare identifier, such as a loop or set variable.  Filters are
// not allowed on the targets of an assignment.
func name(p *parse.Parser, text, what string) (string, error) {
	ref, err := parse.ParseVariable(p.Pos(), text)
	if err != nil {
		return "", err
	}
	if len(ref.Filters) > 0 {
		return "", p.Syntaxf("%s %s cannot have filters", what, ref.Path[0])
	}
	if len(ref.Path) > 1 {
		return "", p.Syntaxf("%s must be a plain name, not %s", what, ref)
	}
	return ref.Path[0], nil
}
