// Package errortypes defines the errors reported while compiling and
// rendering templates.
//
// Every error is an *Error carrying a Kind.  Callers test for a kind with
// errors.Is against the sentinel values (ErrSyntax, ErrMissingTag, ...), and
// retrieve the position with ToErrFilePos.
package errortypes

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	Syntax              Kind = iota // malformed token, tag or expression
	MissingTag                      // no tag registered for a command
	MissingFilter                   // no filter registered for a name
	BlockNotFound                   // token stream ended before a required stop command
	MissingVariable                 // render time: a variable path did not resolve
	MemberAlreadyExists             // emitter declaration collision
	Recursion                       // extends/include nesting exceeded the limit
	Render                          // render time: a filter or expression failed
	Load                            // the loader could not provide a template
)

// Sentinels for use with errors.Is.
var (
	ErrSyntax              = errors.New("syntax error")
	ErrMissingTag          = errors.New("missing tag")
	ErrMissingFilter       = errors.New("missing filter")
	ErrBlockNotFound       = errors.New("block not found")
	ErrMissingVariable     = errors.New("missing variable")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrRecursion           = errors.New("recursion limit exceeded")
	ErrRender              = errors.New("render error")
	ErrLoad                = errors.New("cannot load template")
)

var sentinels = map[Kind]error{
	Syntax:              ErrSyntax,
	MissingTag:          ErrMissingTag,
	MissingFilter:       ErrMissingFilter,
	BlockNotFound:       ErrBlockNotFound,
	MissingVariable:     ErrMissingVariable,
	MemberAlreadyExists: ErrMemberAlreadyExists,
	Recursion:           ErrRecursion,
	Render:              ErrRender,
	Load:                ErrLoad,
}

func (k Kind) String() string {
	if err, ok := sentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a compile or render error attributed to a template.
type Error struct {
	Kind     Kind
	Origin   string // template name
	Ln, Cl   int    // 1-based position, zero when unknown
	Fragment string // offending source fragment, if any
	Msg      string
	Err      error // underlying cause, if any
}

var _ ErrFilePos = &Error{}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("template ")
	b.WriteString(e.Origin)
	if e.Ln > 0 {
		fmt.Fprintf(&b, ":%d", e.Ln)
		if e.Cl > 0 {
			fmt.Fprintf(&b, ":%d", e.Cl)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Fragment != "" {
		fmt.Fprintf(&b, " (near %q)", e.Fragment)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) File() string { return e.Origin }
func (e *Error) Line() int    { return e.Ln }
func (e *Error) Col() int     { return e.Cl }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pos is a template position used to attribute errors.
type Pos struct {
	Origin    string
	Line, Col int
}

// Errorf creates an Error of the given kind at pos.
func Errorf(kind Kind, pos Pos, format string, args ...interface{}) *Error {
	return &Error{
		Kind:   kind,
		Origin: pos.Origin,
		Ln:     pos.Line,
		Cl:     pos.Col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// Syntaxf creates a syntax error at pos citing the offending fragment.
func Syntaxf(pos Pos, fragment, format string, args ...interface{}) *Error {
	var err = Errorf(Syntax, pos, format, args...)
	err.Fragment = fragment
	return err
}

// Wrap attributes err to pos.  Errors that already are an *Error are returned
// unchanged.
func Wrap(kind Kind, pos Pos, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Origin: pos.Origin, Ln: pos.Line, Cl: pos.Col, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, sentinels[kind])
}
