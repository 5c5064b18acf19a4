package errortypes

import "errors"

// ErrFilePos is an error that knows the template position it arose at.
type ErrFilePos interface {
	error
	File() string
	Line() int
	Col() int
}

// ToErrFilePos returns the first error in err's chain that carries a
// position, or nil.
func ToErrFilePos(err error) ErrFilePos {
	var out ErrFilePos
	if errors.As(err, &out) {
		return out
	}
	return nil
}
