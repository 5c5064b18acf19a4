// Package token defines the lexical units shared by the template lexer, the
// expression compiler, the parser and the code emitter.
package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/data"
)

// Kind identifies the type of a template token.
type Kind int

const (
	Text     Kind = iota // literal text between tags
	Variable             // {{ path|filter:arg }}
	Block                // {% command args %}
	Comment              // {# ... #}
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Variable:
		return "variable"
	case Block:
		return "block"
	case Comment:
		return "comment"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is a single lexical unit of a template.  Tokens are values and are
// never modified once the lexer has produced them; callers must not mutate
// the Path or Filters slices.
type Token struct {
	Kind   Kind
	Origin string // name of the template that produced the token
	Pos    int    // byte offset of the token in the template source
	Line   int    // 1-based line of Pos
	Col    int    // 1-based column of Pos
	Raw    string // source text; tags include their delimiters

	// Variable tokens
	Path    []string
	Filters []FilterSpec

	// Block tokens
	Command string
	Args    string
	HasArgs bool
}

func (t Token) String() string {
	switch t.Kind {
	case Text:
		if len(t.Raw) > 10 {
			return fmt.Sprintf("%.10q...", t.Raw)
		}
		return fmt.Sprintf("%q", t.Raw)
	case Block:
		if t.HasArgs {
			return "{% " + t.Command + " " + t.Args + " %}"
		}
		return "{% " + t.Command + " %}"
	}
	return t.Raw
}

// VarRef is a dotted access path with an optional filter chain, as found in
// variable tags, filter arguments and expressions.
type VarRef struct {
	Path    []string
	Filters []FilterSpec
}

// Root returns the first segment of the path.
func (v *VarRef) Root() string {
	return v.Path[0]
}

// String returns the canonical source form, e.g. user.name|default:"x".
func (v *VarRef) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(v.Path, "."))
	for _, f := range v.Filters {
		b.WriteByte('|')
		b.WriteString(f.String())
	}
	return b.String()
}

// FilterSpec is one step of a filter chain.  Filters apply left to right.
type FilterSpec struct {
	Name string
	Args []FilterArg
}

func (f FilterSpec) String() string {
	var s = f.Name
	for _, arg := range f.Args {
		s += ":" + arg.String()
	}
	return s
}

// FilterArg is either a native literal or a reference to a context variable.
// Exactly one of Literal and Var is set.
type FilterArg struct {
	Literal data.Value
	Var     *VarRef
}

func (a FilterArg) String() string {
	if a.Var != nil {
		return a.Var.String()
	}
	return Literal(a.Literal)
}

// Literal returns the source representation of a native literal value.
func Literal(v data.Value) string {
	switch v := v.(type) {
	case data.String:
		return strconv.Quote(string(v))
	case nil:
		return "null"
	}
	return v.String()
}
