// Package data holds the values a template is rendered against.
//
// A context value is one of a small closed set of variants: the scalars
// (Undefined, Null, Bool, Int, Float, String), a Sequence (List), a Mapping
// (Map), or a Record, which exposes named accessors through TryGet.  Native
// application types are adapted with New or by implementing Record or
// Marshaler.
package data

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value represents a template data value, which may be one of the enumerated
// types.  The zero value represents an Undefined value.
type Value interface {
	// Truthy returns true according to the template definition of truthy and
	// falsy values.
	Truthy() bool

	// String formats this value for display in a template.
	String() string
}

// Record is a value exposing named members, getters or computed
// pseudo-members.  TryGet reports false when the record has no such member.
type Record interface {
	Value
	TryGet(name string) (Value, bool)
}

// Value types
type (
	Undefined struct{}
	Null      struct{}
	Bool      bool
	Int       int64
	Float     float64
	String    string
	List      []Value
	Map       map[string]Value
)

// Index retrieves a value from this list, or Undefined if out of bounds.
func (v List) Index(i int) Value {
	if !(0 <= i && i < len(v)) {
		return Undefined{}
	}
	return v[i]
}

// Key retrieves a value under the named key, or Undefined if it doesn't exist.
func (v Map) Key(k string) Value {
	var result, ok = v[k]
	if !ok {
		return Undefined{}
	}
	return result
}

// Keys returns the map keys in sorted order.
func (v Map) Keys() []string {
	var keys = make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Truthy ----------

func (v Undefined) Truthy() bool { return false }
func (v Null) Truthy() bool      { return false }
func (v Bool) Truthy() bool      { return bool(v) }
func (v Int) Truthy() bool       { return v != 0 }
func (v Float) Truthy() bool     { return v != 0.0 && !math.IsNaN(float64(v)) }
func (v String) Truthy() bool    { return v != "" }
func (v List) Truthy() bool      { return len(v) > 0 }
func (v Map) Truthy() bool       { return len(v) > 0 }

// String ----------

func (v Undefined) String() string { return "" }
func (v Null) String() string      { return "" }
func (v Bool) String() string      { return strconv.FormatBool(bool(v)) }
func (v Int) String() string       { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string     { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string    { return string(v) }

func (v List) String() string {
	var items = make([]string, len(v))
	for i, item := range v {
		items[i] = item.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func (v Map) String() string {
	var keys = v.Keys()
	var items = make([]string, len(keys))
	for i, k := range keys {
		items[i] = k + ": " + v[k].String()
	}
	return "{" + strings.Join(items, ", ") + "}"
}

// IsNull returns true for Null, Undefined and a nil interface.
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null, Undefined:
		return true
	}
	return false
}

// IsUndefined returns true if v is Undefined or nil.
func IsUndefined(v Value) bool {
	switch v.(type) {
	case nil, Undefined:
		return true
	}
	return false
}
