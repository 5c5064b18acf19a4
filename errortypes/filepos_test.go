package errortypes_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hydrogen-tpl/hydrogen/errortypes"
)

func TestToErrFilePos(t *testing.T) {
	var tests = []struct {
		name      string
		in        error
		file      string
		line, col int
	}{
		{name: "nil"},
		{name: "errors.New", in: errors.New("an error")},
		{
			name: "syntax error",
			in:   errortypes.Syntaxf(errortypes.Pos{Origin: "page.html", Line: 3, Col: 4}, "{{", "unclosed tag"),
			file: "page.html", line: 3, col: 4,
		},
		{
			name: "wrapped syntax error",
			in:   fmt.Errorf("compiling: %w", errortypes.Syntaxf(errortypes.Pos{Origin: "page.html", Line: 3, Col: 4}, "", "x")),
			file: "page.html", line: 3, col: 4,
		},
		{
			name: "missing tag",
			in:   errortypes.Errorf(errortypes.MissingTag, errortypes.Pos{Origin: "base.html", Line: 7, Col: 9}, "no tag %q", "frob"),
			file: "base.html", line: 7, col: 9,
		},
		{
			name: "load error around a cause",
			in:   errortypes.Wrap(errortypes.Load, errortypes.Pos{Origin: "a.html"}, errors.New("gone")),
			file: "a.html",
		},
	}
	for _, test := range tests {
		var got = errortypes.ToErrFilePos(test.in)
		if test.file == "" {
			if got != nil {
				t.Errorf("%s: expected no position, got %v", test.name, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("%s: expected a position", test.name)
			continue
		}
		if got.File() != test.file || got.Line() != test.line || got.Col() != test.col {
			t.Errorf("%s: got %s:%d:%d, expected %s:%d:%d", test.name,
				got.File(), got.Line(), got.Col(), test.file, test.line, test.col)
		}
	}
}

func TestKinds(t *testing.T) {
	var err error = errortypes.Errorf(errortypes.BlockNotFound, errortypes.Pos{Origin: "a.html"}, "expected one of [endif]")
	if !errors.Is(err, errortypes.ErrBlockNotFound) {
		t.Errorf("expected %v to be ErrBlockNotFound", err)
	}
	if errors.Is(err, errortypes.ErrSyntax) {
		t.Errorf("did not expect %v to be ErrSyntax", err)
	}
	if !errortypes.Is(fmt.Errorf("x: %w", err), errortypes.BlockNotFound) {
		t.Errorf("expected wrapped error to keep its kind")
	}
	const expected = "template a.html: block not found: expected one of [endif]"
	if err.Error() != expected {
		t.Errorf("got %q, expected %q", err.Error(), expected)
	}
}
