package filters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/yuin/goldmark"
)

// Builtins are the filters available to every template.
var Builtins = Registry{
	"upper":     {filterUpper, []int{0}, false, false},
	"lower":     {filterLower, []int{0}, false, false},
	"capfirst":  {filterCapfirst, []int{0}, false, false},
	"title":     {filterTitle, []int{0}, false, false},
	"trim":      {filterTrim, []int{0}, false, false},
	"escape":    {filterEscape, []int{0}, true, false},
	"safe":      {filterSafe, []int{0}, true, false},
	"striptags": {filterStriptags, []int{0}, false, false},
	"length":    {filterLength, []int{0}, false, false},
	"default":   {filterDefault, []int{1}, false, true},
	"join":      {filterJoin, []int{0, 1}, false, false},
	"truncate":  {filterTruncate, []int{1, 2}, false, false},
	"wordbreak": {filterWordbreak, []int{1}, true, false},
	"replace":   {filterReplace, []int{2}, false, false},
	"urlencode": {filterURLEncode, []int{0}, false, false},
	"json":      {filterJSON, []int{0}, true, false},
	"nl2br":     {filterNl2br, []int{0}, true, false},
	"markdown":  {filterMarkdown, []int{0}, true, false},
	"trans":     {filterTrans, []int{0, 2}, false, false},
	"first":     {filterFirst, []int{0}, false, false},
	"last":      {filterLast, []int{0}, false, false},
	"reverse":   {filterReverse, []int{0}, false, false},
}

func filterUpper(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(strings.ToUpper(value.String())), nil
}

func filterLower(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(strings.ToLower(value.String())), nil
}

func filterCapfirst(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	var str = value.String()
	r, size := utf8.DecodeRuneInString(str)
	if size == 0 {
		return data.String(""), nil
	}
	return data.String(string(unicode.ToUpper(r)) + str[size:]), nil
}

func filterTitle(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	var (
		buf   strings.Builder
		start = true
	)
	for _, r := range value.String() {
		if start {
			buf.WriteRune(unicode.ToUpper(r))
		} else {
			buf.WriteRune(unicode.ToLower(r))
		}
		start = unicode.IsSpace(r) || r == '-'
	}
	return data.String(buf.String()), nil
}

func filterTrim(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(strings.TrimSpace(value.String())), nil
}

func filterEscape(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(template.HTMLEscapeString(value.String())), nil
}

func filterSafe(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return value, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func filterStriptags(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(tagPattern.ReplaceAllString(value.String(), "")), nil
}

func filterLength(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	if n, ok := data.Len(value); ok {
		return data.Int(n), nil
	}
	if data.IsNull(value) {
		return data.Int(0), nil
	}
	return data.Int(utf8.RuneCountInString(value.String())), nil
}

func filterDefault(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
	if value == nil || !value.Truthy() {
		return args[0], nil
	}
	return value, nil
}

func filterJoin(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
	var sep = ""
	if len(args) == 1 {
		sep = args[0].String()
	}
	list, ok := value.(data.List)
	if !ok {
		return value, nil
	}
	var items = make([]string, len(list))
	for i, item := range list {
		items[i] = item.String()
	}
	return data.String(strings.Join(items, sep)), nil
}

func filterTruncate(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
	maxLen, ok := args[0].(data.Int)
	if !ok || maxLen < 0 {
		return nil, fmt.Errorf("first argument of 'truncate' is not a non-negative integer: %v", args[0])
	}
	var str = value.String()
	if len(str) <= int(maxLen) {
		return value, nil
	}

	var ellipsis = data.Bool(true)
	if len(args) == 2 {
		if ellipsis, ok = args[1].(data.Bool); !ok {
			return nil, fmt.Errorf("second argument of 'truncate' is not a bool: %v", args[1])
		}
	}

	var n = int(maxLen)
	if ellipsis {
		if n > 3 {
			n -= 3
		} else {
			ellipsis = false
		}
	}
	for n > 0 && !utf8.RuneStart(str[n]) {
		n--
	}
	str = str[:n]
	if ellipsis {
		str += "..."
	}
	return data.String(str), nil
}

// filterWordbreak inserts <wbr> into runs of non-space characters longer than
// the argument.
func filterWordbreak(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
	maxChars, ok := args[0].(data.Int)
	if !ok {
		return nil, fmt.Errorf("argument of 'wordbreak' is not an integer: %v", args[0])
	}
	var (
		input  = template.HTMLEscapeString(value.String())
		chars  = 0
		output *bytes.Buffer // created lazily
	)
	for i, ch := range input {
		switch {
		case ch == ' ':
			chars = 0
		case chars >= int(maxChars):
			if output == nil {
				output = bytes.NewBufferString(input[:i])
			}
			output.WriteString("<wbr>")
			chars = 1
		default:
			chars++
		}
		if output != nil {
			output.WriteRune(ch)
		}
	}
	if output == nil {
		return data.String(input), nil
	}
	return data.String(output.String()), nil
}

func filterReplace(_ *Env, value data.Value, args []data.Value) (data.Value, error) {
	return data.String(strings.ReplaceAll(value.String(), args[0].String(), args[1].String())), nil
}

func filterURLEncode(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(url.QueryEscape(value.String())), nil
}

func filterJSON(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	j, err := json.Marshal(data.Export(value))
	if err != nil {
		return nil, fmt.Errorf("error JSON encoding value: %w", err)
	}
	return data.String(j), nil
}

var newlinePattern = regexp.MustCompile(`\r\n|\r|\n`)

func filterNl2br(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	return data.String(newlinePattern.ReplaceAllString(
		template.HTMLEscapeString(value.String()),
		"<br>")), nil
}

var markdown = goldmark.New()

func filterMarkdown(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(value.String()), &buf); err != nil {
		return nil, err
	}
	return data.String(buf.String()), nil
}

// filterTrans translates the value through the render's catalog.  With two
// arguments, the plural form and the count, it selects a plural form.
func filterTrans(env *Env, value data.Value, args []data.Value) (data.Value, error) {
	var msgid = value.String()
	if env == nil {
		env = &Env{}
	}
	if len(args) == 0 {
		return data.String(env.Catalog.Translate(msgid)), nil
	}
	n, ok := args[1].(data.Int)
	if !ok {
		return nil, fmt.Errorf("count argument of 'trans' is not an integer: %v", args[1])
	}
	return data.String(env.Catalog.TranslatePlural(msgid, args[0].String(), int(n))), nil
}

func filterFirst(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	switch v := value.(type) {
	case data.List:
		if len(v) == 0 {
			return data.Null{}, nil
		}
		return v[0], nil
	case data.String:
		r, size := utf8.DecodeRuneInString(string(v))
		if size == 0 {
			return data.String(""), nil
		}
		return data.String(string(r)), nil
	}
	return data.Null{}, nil
}

func filterLast(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	switch v := value.(type) {
	case data.List:
		if len(v) == 0 {
			return data.Null{}, nil
		}
		return v[len(v)-1], nil
	case data.String:
		r, size := utf8.DecodeLastRuneInString(string(v))
		if size == 0 {
			return data.String(""), nil
		}
		return data.String(string(r)), nil
	}
	return data.Null{}, nil
}

func filterReverse(_ *Env, value data.Value, _ []data.Value) (data.Value, error) {
	switch v := value.(type) {
	case data.List:
		var result = make(data.List, len(v))
		for i, item := range v {
			result[len(v)-1-i] = item
		}
		return result, nil
	case data.String:
		var runes = []rune(string(v))
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return data.String(runes), nil
	}
	return value, nil
}
