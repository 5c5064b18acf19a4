package parse

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var unescapes = map[rune]rune{
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'b':  '\b',
	'f':  '\f',
}

// Split splits text at each unquoted occurrence of delim.  A region between
// two quote characters is never split; an escape character directly before a
// quote stops that quote from opening or closing a region.  Quotes and escapes
// are kept in the pieces.  If limit > 0, at most limit pieces are returned,
// the last holding the unsplit remainder.
func Split(text string, delim, quote, escape rune, limit int) []string {
	const (
		normal = iota
		inQuote
	)
	var (
		pieces   []string
		state    = normal
		escaping = false
		start    = 0
	)
	for i, r := range text {
		if escaping {
			escaping = false
			continue
		}
		switch {
		case r == escape:
			escaping = true
		case r == quote:
			if state == normal {
				state = inQuote
			} else {
				state = normal
			}
		case r == delim && state == normal:
			if limit > 0 && len(pieces) == limit-1 {
				continue
			}
			pieces = append(pieces, text[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	return append(pieces, text[start:])
}

// unquoteString takes a double-quoted string (including the surrounding
// quotes) and returns the unquoted string, along with any error encountered.
func unquoteString(s string) (string, error) {
	n := len(s)
	if n < 2 {
		return "", errors.New("too short a string")
	}

	if s[0] != '"' || s[n-1] != '"' {
		return "", errors.New("string not surrounded by quotes")
	}

	s = s[1 : n-1]
	if !strings.ContainsRune(s, '\\') {
		if strings.ContainsRune(s, '"') {
			return "", errors.New("unescaped quote in string")
		}
		return s, nil
	}

	var escaping = false
	var result = make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		if escaping {
			if r == 'u' {
				if i+4 > len(s) {
					return "", errors.New("error scanning unicode escape, expect \\uNNNN")
				}
				num, err := strconv.ParseInt(s[i:i+4], 16, 0)
				if err != nil {
					return "", err
				}
				r = rune(num)
				i += 4
			} else {
				replacement, ok := unescapes[r]
				if !ok {
					return "", errors.New("unrecognized escape code: \\" + string(r))
				}
				r = replacement
			}
			result = append(result, r)
			escaping = false
			continue
		}
		if r == '\\' {
			escaping = true
			continue
		}
		if r == '"' {
			return "", errors.New("unescaped quote in string")
		}
		result = append(result, r)
	}
	if escaping {
		return "", errors.New("string ends with an escape")
	}
	return string(result), nil
}
