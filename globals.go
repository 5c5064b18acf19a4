package hydrogen

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/parse"
)

// ParseGlobals parses the given input, expecting the form:
//
//	<global_name> = <literal>
//
// Furthermore:
//   - Empty lines and lines beginning with '//' are ignored.
//   - <literal> is a quoted string, a number, true, false or null.
func ParseGlobals(input io.Reader) (data.Map, error) {
	var globals = make(data.Map)
	var scanner = bufio.NewScanner(input)
	var lineno = 0
	for scanner.Scan() {
		lineno++
		var line = strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "//") {
			continue
		}
		var eq = strings.Index(line, "=")
		if eq == -1 {
			return nil, fmt.Errorf("line %d: no equals in %q", lineno, line)
		}
		var (
			name = strings.TrimSpace(line[:eq])
			expr = strings.TrimSpace(line[eq+1:])
		)
		if _, ok := globals[name]; ok {
			return nil, fmt.Errorf("line %d: global %s is already defined", lineno, name)
		}
		value, err := parse.Literal(expr)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		globals[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}
