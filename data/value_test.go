package data

import (
	"reflect"
	"testing"
)

// Ensure all of the data types implement Value
var (
	_ Value  = Undefined{}
	_ Value  = Null{}
	_ Value  = Bool(false)
	_ Value  = Int(0)
	_ Value  = Float(0.0)
	_ Value  = String("")
	_ Value  = List{}
	_ Value  = Map{}
	_ Record = user{}
)

type user struct{ name string }

func (u user) Truthy() bool   { return true }
func (u user) String() string { return u.name }

func (u user) TryGet(name string) (Value, bool) {
	switch name {
	case "name":
		return String(u.name), true
	case "initial":
		return String(u.name[:1]), true
	}
	return nil, false
}

func TestKey(t *testing.T) {
	tests := []struct {
		input    interface{}
		key      string
		expected interface{}
	}{
		{map[string]interface{}{}, "foo", Undefined{}},
		{map[string]interface{}{"foo": nil}, "foo", Null{}},
	}

	for _, test := range tests {
		actual := New(test.input).(Map).Key(test.key)
		if !reflect.DeepEqual(test.expected, actual) {
			t.Errorf("%v => %#v, expected %#v", test.input, actual, test.expected)
		}
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		input    interface{}
		index    int
		expected interface{}
	}{
		{[]interface{}{}, 0, Undefined{}},
		{[]interface{}{1}, 0, Int(1)},
		{[]interface{}{1}, -1, Undefined{}},
	}

	for _, test := range tests {
		actual := New(test.input).(List).Index(test.index)
		if !reflect.DeepEqual(test.expected, actual) {
			t.Errorf("%v => %#v, expected %#v", test.input, actual, test.expected)
		}
	}
}

func TestResolve(t *testing.T) {
	var root = Map{
		"user":  user{"rob"},
		"items": List{String("a"), Map{"b": Int(2)}},
		"nil":   Null{},
	}
	tests := []struct {
		path     []string
		expected Value
	}{
		{[]string{"user", "name"}, String("rob")},
		{[]string{"user", "initial"}, String("r")},
		{[]string{"user", "age"}, Undefined{}},
		{[]string{"items", "0"}, String("a")},
		{[]string{"items", "1", "b"}, Int(2)},
		{[]string{"items", "x"}, Undefined{}},
		{[]string{"items", "5", "b"}, Undefined{}},
		{[]string{"nil"}, Null{}},
		{[]string{"nil", "x"}, Undefined{}},
		{[]string{"missing", "x"}, Undefined{}},
	}
	for _, test := range tests {
		actual := Resolve(root, test.path)
		if !reflect.DeepEqual(test.expected, actual) {
			t.Errorf("%v => %#v, expected %#v", test.path, actual, test.expected)
		}
	}
}

func TestTruthyAndString(t *testing.T) {
	tests := []struct {
		input  Value
		truthy bool
		str    string
	}{
		{Undefined{}, false, ""},
		{Null{}, false, ""},
		{Bool(true), true, "true"},
		{Int(0), false, "0"},
		{Float(1.5), true, "1.5"},
		{String(""), false, ""},
		{String("<b>"), true, "<b>"},
		{List{}, false, "[]"},
		{List{Int(1), String("a")}, true, "[1, a]"},
		{Map{"b": Int(2), "a": Int(1)}, true, "{a: 1, b: 2}"},
	}
	for _, test := range tests {
		if test.input.Truthy() != test.truthy {
			t.Errorf("%#v: truthy %v, expected %v", test.input, !test.truthy, test.truthy)
		}
		if test.input.String() != test.str {
			t.Errorf("%#v: got %q, expected %q", test.input, test.input.String(), test.str)
		}
	}
}
