package filters

import (
	"fmt"
	"sync"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/robertkrimen/otto"
	"go.starlark.net/starlark"
)

// JavaScript returns a filter that calls the named function defined by
// source.  The function receives the value followed by the filter arguments,
// converted to plain JavaScript values, and its result becomes the new value.
//
// A JavaScript interpreter is not safe for concurrent use, so calls are
// serialised.
func JavaScript(source, function string) (Filter, error) {
	var vm = otto.New()
	if _, err := vm.Run(source); err != nil {
		return Filter{}, fmt.Errorf("javascript filter %s: %w", function, err)
	}
	fn, err := vm.Get(function)
	if err != nil {
		return Filter{}, err
	}
	if !fn.IsFunction() {
		return Filter{}, fmt.Errorf("javascript filter %s: not a function", function)
	}

	var mu sync.Mutex
	return Filter{
		Apply: func(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
			var jsArgs = make([]interface{}, 0, len(args)+1)
			jsArgs = append(jsArgs, data.Export(value))
			for _, arg := range args {
				jsArgs = append(jsArgs, data.Export(arg))
			}

			mu.Lock()
			defer mu.Unlock()
			result, err := vm.Call(function, nil, jsArgs...)
			if err != nil {
				return nil, fmt.Errorf("javascript filter %s: %w", function, err)
			}
			if result.IsUndefined() || result.IsNull() {
				return data.Null{}, nil
			}
			exported, err := result.Export()
			if err != nil {
				return nil, err
			}
			return data.New(exported), nil
		},
	}, nil
}

// Starlark returns a filter that calls the named function defined by the
// Starlark module src (a string, []byte or io.Reader, as for
// starlark.ExecFile).  Calls are serialised on a single thread.
func Starlark(filename string, src interface{}, function string) (Filter, error) {
	var thread = &starlark.Thread{Name: "hydrogen:" + filename}
	globals, err := starlark.ExecFile(thread, filename, src, nil)
	if err != nil {
		return Filter{}, err
	}
	fn, ok := globals[function].(starlark.Callable)
	if !ok {
		return Filter{}, fmt.Errorf("starlark filter %s: %s does not define a function %s", function, filename, function)
	}
	globals.Freeze()

	var mu sync.Mutex
	return Filter{
		Apply: func(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
			var tuple = make(starlark.Tuple, 0, len(args)+1)
			tuple = append(tuple, toStarlark(value))
			for _, arg := range args {
				tuple = append(tuple, toStarlark(arg))
			}

			mu.Lock()
			defer mu.Unlock()
			result, err := starlark.Call(thread, fn, tuple, nil)
			if err != nil {
				return nil, fmt.Errorf("starlark filter %s: %w", function, err)
			}
			return fromStarlark(result), nil
		},
	}, nil
}

func toStarlark(v data.Value) starlark.Value {
	switch v := v.(type) {
	case nil, data.Undefined, data.Null:
		return starlark.None
	case data.Bool:
		return starlark.Bool(v)
	case data.Int:
		return starlark.MakeInt64(int64(v))
	case data.Float:
		return starlark.Float(v)
	case data.String:
		return starlark.String(v)
	case data.List:
		var items = make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = toStarlark(item)
		}
		return starlark.NewList(items)
	case data.Map:
		var dict = starlark.NewDict(len(v))
		for _, k := range v.Keys() {
			dict.SetKey(starlark.String(k), toStarlark(v[k]))
		}
		return dict
	}
	return starlark.String(v.String())
}

func fromStarlark(v starlark.Value) data.Value {
	switch v := v.(type) {
	case nil, starlark.NoneType:
		return data.Null{}
	case starlark.Bool:
		return data.Bool(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return data.Int(i)
		}
		return data.String(v.String())
	case starlark.Float:
		return data.Float(v)
	case starlark.String:
		return data.String(v)
	case *starlark.List:
		var items = make(data.List, v.Len())
		for i := range items {
			items[i] = fromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		var items = make(data.List, len(v))
		for i, item := range v {
			items[i] = fromStarlark(item)
		}
		return items
	case *starlark.Dict:
		var m = make(data.Map, v.Len())
		for _, item := range v.Items() {
			if k, ok := item[0].(starlark.String); ok {
				m[string(k)] = fromStarlark(item[1])
			} else {
				m[item[0].String()] = fromStarlark(item[1])
			}
		}
		return m
	}
	return data.String(v.String())
}
