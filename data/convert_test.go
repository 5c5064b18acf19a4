package data

import (
	"reflect"
	"testing"
	"time"
)

type AInt struct{ A int }

var jan1, _ = time.Parse(time.RFC3339, "2014-01-01T00:00:00Z")

func TestNew(t *testing.T) {
	tests := []struct{ input, expected interface{} }{
		// basic types
		{nil, Null{}},
		{true, Bool(true)},
		{int(0), Int(0)},
		{int64(0), Int(0)},
		{uint32(0), Int(0)},
		{float32(0), Float(0)},
		{"", String("")},
		{[]string{"a"}, List{String("a")}},
		{[2]int{1, 2}, List{Int(1), Int(2)}},
		{[]interface{}{"a"}, List{String("a")}},
		{map[string]string{}, Map{}},
		{map[string]string{"a": "b"}, Map{"a": String("b")}},
		{map[string]interface{}{"a": nil}, Map{"a": Null{}}},
		{map[string]interface{}{"a": []int{1}}, Map{"a": List{Int(1)}}},

		// type aliases
		{[]Int{5}, List{Int(5)}},
		{map[string]Value{"a": List{Int(1)}}, Map{"a": List{Int(1)}}},
		{Map{"foo": Null{}}, Map{"foo": Null{}}},

		// pointers
		{pInt(5), Int(5)},
		{&jan1, String(jan1.Format(time.RFC3339))},

		// structs with all of the above, and unexported fields.
		// also, structs have their fields lowerCamel and Time's default formatting.
		{struct {
			A  Int
			L  List
			PI *int
			no Int
			T  time.Time
		}{Int(5), List{}, pInt(2), 5, jan1},
			Map{"a": Int(5), "l": List{}, "pI": Int(2), "t": String(jan1.Format(time.RFC3339))}},
		{[]*struct {
			PI *AInt
		}{{nil}},
			List{Map{"pI": Null{}}}},
		{testIDURL{1, "https://example.com/hydrogen"},
			Map{"iD": Int(1), "uRL": String("https://example.com/hydrogen")}},
		{testIDURLMarshaler{1, "https://example.com/hydrogen"},
			Map{"id": Int(1), "url": String("https://example.com/hydrogen")}},
	}

	for _, test := range tests {
		output := New(test.input)
		if !reflect.DeepEqual(test.expected, output) {
			t.Errorf("%#v =>\n %#v, expected:\n%#v", test.input, output, test.expected)
		}
	}
}

func TestExport(t *testing.T) {
	var input = Map{
		"a": List{Int(1), Float(1.5), Bool(true), Null{}},
		"b": String("x"),
	}
	var expected = map[string]interface{}{
		"a": []interface{}{int64(1), 1.5, true, nil},
		"b": "x",
	}
	if actual := Export(input); !reflect.DeepEqual(expected, actual) {
		t.Errorf("got %#v, expected %#v", actual, expected)
	}
}

type testIDURL struct {
	ID  int
	URL string
}

type testIDURLMarshaler testIDURL

func (t testIDURLMarshaler) MarshalValue() Value {
	return Map{
		"id":  New(t.ID),
		"url": New(t.URL),
	}
}

func pInt(i int) *int {
	return &i
}
