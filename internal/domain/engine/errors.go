package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind string

const (
	KindSandboxInit      Kind = "SandboxInitError"
	KindSandboxExecution Kind = "SandboxExecutionError"
	KindSandboxTimeout   Kind = "SandboxTimeoutError"
	KindCookieParse      Kind = "CookieParseError"
	KindScopeBuild       Kind = "ScopeBuildError"
)

// ErrEmptyResult is wrapped when the sandbox completes without directives.
var ErrEmptyResult = errors.New("empty execution result")

// Error is a classified engine failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of an engine error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// scopeFields are the request body paths that must hold JSON objects.
var scopeFields = map[string]bool{
	"postman":                     true,
	"postman.globals":             true,
	"postman.collectionVariables": true,
	"postman.environment":         true,
	"postman.iterationData":       true,
	"postman.variables":           true,
}

// ClassifyDecodeError reports a request body whose scripting context or one
// of its variable groups is not a JSON object as a ScopeBuildError. Other
// errors are returned unchanged.
func ClassifyDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && scopeFields[typeErr.Field] {
		return newError(KindScopeBuild, typeErr.Field+" must be an object, got "+typeErr.Value, err)
	}
	return err
}
