package sandbox

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

var (
	// ErrInterrupted is returned when an execution is aborted or exceeds the
	// configured ceiling.
	ErrInterrupted = errors.New("sandbox: execution interrupted")

	// ErrContextUsed is returned when Execute is called twice on one context.
	ErrContextUsed = errors.New("sandbox: context already executed")

	// ErrDisposed is returned when Execute is called after Dispose.
	ErrDisposed = errors.New("sandbox: context disposed")
)

// ScriptError is an uncaught error thrown by a script.
type ScriptError struct {
	Name    string
	Message string
	Stack   string
}

func (e *ScriptError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// classify converts a goja failure into a sandbox error.
func classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: %v", ErrInterrupted, interrupted.Value())
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return &ScriptError{Name: "SyntaxError", Message: syntax.Error()}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		se := &ScriptError{Name: "Error", Message: ex.Error(), Stack: ex.String()}
		if obj, ok := ex.Value().(*goja.Object); ok {
			if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
				se.Name = name.String()
			}
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				se.Message = msg.String()
			}
		} else if v := ex.Value(); v != nil {
			se.Message = v.String()
		}
		return se
	}
	return err
}
