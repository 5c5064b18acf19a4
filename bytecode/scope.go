package bytecode

import "github.com/hydrogen-tpl/hydrogen/data"

// scope is a stack of variable frames.  Frame 0 holds the template's context
// variables and the root-level assignments; loops push a frame per loop.
type scope []data.Map

// push creates a new frame.
func (s *scope) push() {
	*s = append(*s, make(data.Map))
}

// pop discards the last frame pushed.
func (s *scope) pop() {
	*s = (*s)[:len(*s)-1]
}

// bind adds a binding to the deepest frame.
func (s scope) bind(k string, v data.Value) {
	s[len(s)-1][k] = v
}

// assign sets k in the deepest loop frame that already binds it, or else in
// the root frame.
func (s scope) assign(k string, v data.Value) {
	for i := len(s) - 1; i > 0; i-- {
		if _, ok := s[i][k]; ok {
			s[i][k] = v
			return
		}
	}
	s[0][k] = v
}

// lookup checks the frames, deepest out, for the given key.
func (s scope) lookup(k string) data.Value {
	for i := range s {
		var frame = s[len(s)-i-1]
		if val, ok := frame[k]; ok {
			return val
		}
	}
	return data.Undefined{}
}

// flatten merges the frames into a single map, deeper bindings winning.  It
// is the context handed to included templates.
func (s scope) flatten() data.Map {
	var result = make(data.Map)
	for _, frame := range s {
		for k, v := range frame {
			result[k] = v
		}
	}
	return result
}
