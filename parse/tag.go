package parse

import "github.com/hydrogen-tpl/hydrogen/ast"

// Tag builds the node for a block tag such as {% if %}.  Tags that need a
// body call p.Parse with their end commands and then p.End to consume the
// stop tag.
type Tag interface {
	// Node returns the node for the tag, or nil if the tag contributes no
	// node of its own.
	Node(command, args string, p *Parser, origin string) (ast.Node, error)

	// MustBeFirst reports whether the tag must precede every other node of
	// its template.
	MustBeFirst() bool
}

// TagFunc adapts a function to the Tag interface.
type TagFunc func(command, args string, p *Parser, origin string) (ast.Node, error)

func (f TagFunc) Node(command, args string, p *Parser, origin string) (ast.Node, error) {
	return f(command, args, p, origin)
}

func (f TagFunc) MustBeFirst() bool {
	return false
}

// Tags maps commands to their implementations.
type Tags map[string]Tag

// With returns a copy of the registry extended with the given tags.
func (t Tags) With(more Tags) Tags {
	var result = make(Tags, len(t)+len(more))
	for name, tag := range t {
		result[name] = tag
	}
	for name, tag := range more {
		result[name] = tag
	}
	return result
}
