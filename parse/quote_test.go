package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	var tests = []struct {
		input    string
		delim    rune
		limit    int
		expected []string
	}{
		{`a|"b|c"|d`, '|', 0, []string{"a", `"b|c"`, "d"}},
		{`a`, '|', 0, []string{"a"}},
		{``, '|', 0, []string{""}},
		{`a||b`, '|', 0, []string{"a", "", "b"}},
		{`f:"x:y":z`, ':', 0, []string{"f", `"x:y"`, "z"}},
		{`f:"a\"b:c":z`, ':', 0, []string{"f", `"a\"b:c"`, "z"}},
		{`a\"b:c`, ':', 0, []string{`a\"b`, "c"}},
		{`a:b:c:d`, ':', 2, []string{"a", "b:c:d"}},
		{`é|ü|"ß|"`, '|', 0, []string{"é", "ü", `"ß|"`}},
	}
	for _, test := range tests {
		var actual = Split(test.input, test.delim, '"', '\\', test.limit)
		if diff := cmp.Diff(test.expected, actual); diff != "" {
			t.Errorf("Split(%q): (-expected +got)\n%s", test.input, diff)
		}
	}
}

func TestUnquote(t *testing.T) {
	var tests = []struct{ input, output string }{
		{`""`, ""},
		{`"a"`, "a"},
		{`"\n"`, "\n"},
		{`"say \"hi\""`, `say "hi"`},
		{`"∢"`, "∢"},
		{`"back\\slash"`, `back\slash`},
	}
	for _, test := range tests {
		actual, err := unquoteString(test.input)
		if err != nil {
			t.Error(err)
			continue
		}
		if actual != test.output {
			t.Errorf("%v => %v, expected %v", test.input, actual, test.output)
		}
	}

	for _, bad := range []string{`"`, `'a'`, `"a"b"`, `"\q"`, `"a\"`} {
		if _, err := unquoteString(bad); err == nil {
			t.Errorf("%v: expected error", bad)
		}
	}
}
