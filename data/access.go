package data

import "strconv"

// Member resolves a single access-path segment against v.
//
// The variants are tried in a fixed order: a Map key, a List index (when the
// segment is numeric), then a Record accessor.  Undefined is returned when
// none applies.
func Member(v Value, name string) Value {
	switch v := v.(type) {
	case Map:
		return v.Key(name)
	case List:
		if i, err := strconv.Atoi(name); err == nil {
			return v.Index(i)
		}
	case Record:
		if val, ok := v.TryGet(name); ok {
			if val == nil {
				return Null{}
			}
			return val
		}
	}
	return Undefined{}
}

// Resolve walks path starting from root and returns Undefined as soon as a
// segment cannot be resolved.
func Resolve(root Value, path []string) Value {
	var v = root
	for _, seg := range path {
		if IsUndefined(v) {
			return Undefined{}
		}
		v = Member(v, seg)
	}
	if v == nil {
		return Undefined{}
	}
	return v
}

// Len returns the number of elements of a List or Map.
func Len(v Value) (int, bool) {
	switch v := v.(type) {
	case List:
		return len(v), true
	case Map:
		return len(v), true
	}
	return 0, false
}
