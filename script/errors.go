package script

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every error about malformed script text.
var ErrSyntax = errors.New("script: syntax error")

// ScriptError locates a failure in a script.
//
// Err is ErrSyntax for malformed text, or the error returned by the
// compositor data model when a well-formed statement is rejected (for
// example compositor.ErrDuplicateTexture).
type ScriptError struct {
	File string
	Line int
	Col  int
	Msg  string
	Err  error
}

func newError(file string, line, col int, format string, args ...any) *ScriptError {
	return &ScriptError{File: file, Line: line, Col: col, Msg: fmt.Sprintf(format, args...), Err: ErrSyntax}
}

func (e *ScriptError) Error() string {
	file := e.File
	if file == "" {
		file = "<script>"
	}
	if e.Err != nil && !errors.Is(e.Err, ErrSyntax) {
		return fmt.Sprintf("%s:%d:%d: %s: %v", file, e.Line, e.Col, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Col, e.Msg)
}

func (e *ScriptError) Unwrap() error { return e.Err }
