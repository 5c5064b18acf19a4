// Package filters implements the value transformations applied by a
// variable's filter chain, as in {{ name|lower|truncate:10 }}.
package filters

import (
	"fmt"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/i18n"
)

// Filter is a named transformation of a value.
type Filter struct {
	// Apply transforms value.  args holds the evaluated filter arguments; its
	// length is one of ValidArgLengths.
	Apply func(env *Env, value data.Value, args []data.Value) (data.Value, error)

	// ValidArgLengths lists the accepted argument counts.  Nil accepts any.
	ValidArgLengths []int

	// CancelAutoescape marks output that is already safe to insert into HTML.
	CancelAutoescape bool

	// AcceptsMissing lets the filter receive Undefined for an unresolved
	// variable instead of the render reporting it as missing.
	AcceptsMissing bool
}

// Env is the render-time environment available to filters.
type Env struct {
	Catalog *i18n.Catalog // translations for trans; nil leaves messages as is
}

// CheckArgs reports whether the filter accepts n arguments.
func (f Filter) CheckArgs(n int) bool {
	if f.ValidArgLengths == nil {
		return true
	}
	for _, valid := range f.ValidArgLengths {
		if valid == n {
			return true
		}
	}
	return false
}

// Registry maps filter names to filters.
type Registry map[string]Filter

// Lookup returns the named filter.
func (r Registry) Lookup(name string) (Filter, bool) {
	f, ok := r[name]
	return f, ok
}

// With returns a copy of the registry extended with the given filters.  Later
// registrations replace earlier ones.
func (r Registry) With(more Registry) Registry {
	var result = make(Registry, len(r)+len(more))
	for name, f := range r {
		result[name] = f
	}
	for name, f := range more {
		result[name] = f
	}
	return result
}

// Default returns a new registry holding the builtin filters.
func Default() Registry {
	return Builtins.With(nil)
}

// Apply runs the named filter, checking its argument count.
func (r Registry) Apply(env *Env, name string, value data.Value, args []data.Value) (data.Value, error) {
	f, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("filter %q is not defined", name)
	}
	if !f.CheckArgs(len(args)) {
		return nil, fmt.Errorf("filter %q called with %d args, expects %v", name, len(args), f.ValidArgLengths)
	}
	return f.Apply(env, value, args)
}
