package scripting

import (
	stderrors "errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/wippyai/nashorn-compat/errors"
)

// ScriptError reports a failure raised while compiling or running a
// script. Line and Column are -1 when unknown.
type ScriptError struct {
	Cause    error
	Message  string
	FileName string
	Line     int
	Column   int
}

func (e *ScriptError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("%s in %s", e.Message, e.FileName)
	}
	return fmt.Sprintf("%s in %s at line number %d at column number %d", e.Message, e.FileName, e.Line, e.Column)
}

// Unwrap returns a structured script error wrapping the engine's own error.
func (e *ScriptError) Unwrap() error {
	return errors.New(errors.PhaseScript, errors.KindScript).
		Unit(e.FileName).
		Cause(e.Cause).
		Build()
}

// Thrown returns the value the script threw, or nil for compile errors.
func (e *ScriptError) Thrown() goja.Value {
	var ex *goja.Exception
	if stderrors.As(e.Cause, &ex) {
		return ex.Value()
	}
	return nil
}

func newScriptError(name string, err error) *ScriptError {
	se := &ScriptError{Cause: err, Message: err.Error(), FileName: name, Line: -1, Column: -1}

	var syntax *goja.CompilerSyntaxError
	if stderrors.As(err, &syntax) {
		se.Message = syntax.Message
		if syntax.File != nil {
			pos := syntax.File.Position(syntax.Offset)
			se.Line, se.Column = pos.Line, pos.Column
		}
		return se
	}

	var ex *goja.Exception
	if stderrors.As(err, &ex) && ex.Value() != nil {
		se.Message = ex.Value().String()
	}
	return se
}

func noSuchMethod(name string) error {
	return errors.New(errors.PhaseScript, errors.KindNoSuchMethod).
		Value(name).
		Detail("no such function %s", name).
		Build()
}
