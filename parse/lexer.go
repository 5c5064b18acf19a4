package parse

import (
	"strings"
	"unicode"

	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/token"
)

// Lexer design from text/template, simplified: tags are scanned as a whole,
// so states only alternate between text and the three tag kinds.

const (
	leftVar      = "{{"
	rightVar     = "}}"
	leftBlock    = "{%"
	rightBlock   = "%}"
	leftComment  = "{#"
	rightComment = "#}"
)

// stateFn represents the state of the lexer as a function that returns the
// next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the lexical scanning.
type lexer struct {
	origin string        // the name of the template; used for tokens and errors.
	input  string        // the string being scanned.
	pos    int           // current position in the input.
	start  int           // start position of this token.
	tokens []token.Token // scanned tokens.
	err    error
}

// Tokenize splits a template into tokens.
func Tokenize(origin, text string) ([]token.Token, error) {
	var l = &lexer{
		origin: origin,
		input:  text,
	}
	for state := lexText; state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

// lineNumber reports which line pos is on.
func (l *lexer) lineNumber(pos int) int {
	return 1 + strings.Count(l.input[:pos], "\n")
}

// columnNumber reports which column in its line pos is on.
func (l *lexer) columnNumber(pos int) int {
	n := strings.LastIndex(l.input[:pos], "\n")
	return pos - n
}

func (l *lexer) position(pos int) errortypes.Pos {
	return errortypes.Pos{Origin: l.origin, Line: l.lineNumber(pos), Col: l.columnNumber(pos)}
}

// emit records a token spanning start to pos.
func (l *lexer) emit(tok token.Token) {
	tok.Origin = l.origin
	tok.Pos = l.start
	tok.Line = l.lineNumber(l.start)
	tok.Col = l.columnNumber(l.start)
	tok.Raw = l.input[l.start:l.pos]
	l.tokens = append(l.tokens, tok)
	l.start = l.pos
}

// errorf records an error and terminates the scan by returning a nil state.
func (l *lexer) errorf(fragment, format string, args ...interface{}) stateFn {
	l.err = errortypes.Syntaxf(l.position(l.start), fragment, format, args...)
	return nil
}

// fail records err and terminates the scan.
func (l *lexer) fail(err error) stateFn {
	l.err = err
	return nil
}

// lexText scans until an opening tag delimiter.
func lexText(l *lexer) stateFn {
	var i = strings.IndexByte(l.input[l.pos:], '{')
	for i >= 0 {
		var at = l.pos + i
		if at+1 < len(l.input) {
			switch l.input[at+1] {
			case '{', '%', '#':
				l.pos = at
				if l.pos > l.start {
					l.emit(token.Token{Kind: token.Text})
				}
				switch l.input[at+1] {
				case '{':
					return lexVariable
				case '%':
					return lexBlock
				default:
					return lexComment
				}
			}
		}
		var next = strings.IndexByte(l.input[at+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	l.pos = len(l.input)
	if l.pos > l.start {
		l.emit(token.Token{Kind: token.Text})
	}
	return nil
}

// scanTag advances past the closing delimiter of the tag at pos and returns
// its contents.  The first closing delimiter ends the tag.
func (l *lexer) scanTag(right string) (string, bool) {
	var end = strings.Index(l.input[l.pos+2:], right)
	if end < 0 {
		return "", false
	}
	var content = l.input[l.pos+2 : l.pos+2+end]
	l.pos += 2 + end + len(right)
	return content, true
}

func (l *lexer) unclosed(left string) stateFn {
	var fragment = l.input[l.start:]
	if len(fragment) > 20 {
		fragment = fragment[:20] + "..."
	}
	return l.errorf(fragment, "unclosed tag %s", left)
}

// lexVariable scans {{ path|filter:arg }}.
func lexVariable(l *lexer) stateFn {
	content, ok := l.scanTag(rightVar)
	if !ok {
		return l.unclosed(leftVar)
	}
	ref, err := ParseVariable(l.position(l.start), strings.TrimSpace(content))
	if err != nil {
		return l.fail(err)
	}
	l.emit(token.Token{Kind: token.Variable, Path: ref.Path, Filters: ref.Filters})
	return lexText
}

// lexBlock scans {% command args %}.
func lexBlock(l *lexer) stateFn {
	content, ok := l.scanTag(rightBlock)
	if !ok {
		return l.unclosed(leftBlock)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return l.errorf(l.input[l.start:l.pos], "empty block tag")
	}
	var tok = token.Token{Kind: token.Block, Command: content}
	if i := strings.IndexFunc(content, unicode.IsSpace); i >= 0 {
		tok.Command = content[:i]
		tok.Args = strings.TrimSpace(content[i:])
		tok.HasArgs = true
	}
	l.emit(tok)
	return lexText
}

// lexComment scans {# ... #}.
func lexComment(l *lexer) stateFn {
	if _, ok := l.scanTag(rightComment); !ok {
		return l.unclosed(leftComment)
	}
	l.emit(token.Token{Kind: token.Comment})
	return lexText
}
