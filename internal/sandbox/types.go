package sandbox

import (
	"context"
	"time"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
)

// Events emitted on a Context while a script runs.
const (
	EventAssertion = "execution.assertion"
	EventConsole   = "console"
)

// Execution phases.
const (
	ListenPrerequest = "prerequest"
	ListenTest       = "test"
)

// Console levels.
const (
	LevelLog   = "log"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelDebug = "debug"
	LevelClear = "clear"
)

// Config defines sandbox configuration
type Config struct {
	MaxCallStackSize int           // Maximum JS call depth
	Timeout          time.Duration // Hard ceiling per execution, 0 disables
	EnableConsole    bool          // Emit console events
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		Timeout:          time.Minute,
		EnableConsole:    true,
	}
}

// Cursor identifies the execution an event belongs to.
type Cursor struct {
	Execution string
	Event     string
}

// Listener receives events. Assertion events carry a single []Assertion
// argument; console events carry the level followed by the raw arguments.
type Listener func(cursor Cursor, args ...any)

// Spec selects what to run.
type Spec struct {
	Listen string
	Script string
}

// Environment is the state a script sees. Scopes are mutated in place.
type Environment struct {
	Variables           *collection.Scope
	Environment         *collection.Scope
	CollectionVariables *collection.Scope
	Globals             *collection.Scope
	Request             *collection.Request
	Response            *collection.Response
	Cookies             []*collection.Cookie
}

// ScopeSnapshot is the member list of a scope after execution.
type ScopeSnapshot struct {
	Values []collection.Variable
}

// Result is the post-execution state handed to the completion callback.
// Return holds script directives; its "nextRequest" key is present only when
// the script requested chaining.
type Result struct {
	Variables           *ScopeSnapshot
	Environment         *ScopeSnapshot
	CollectionVariables *ScopeSnapshot
	Globals             *ScopeSnapshot
	Request             *collection.Request
	Cookies             []*collection.Cookie
	Return              map[string]any
}

// Callback is invoked exactly once when an execution settles.
type Callback func(err error, result *Result)

// Context is an isolated script execution environment.
type Context interface {
	On(event string, listener Listener)
	Execute(spec Spec, env Environment, done Callback)
	Abort(reason string)
	Dispose()
}

// Sandbox creates execution contexts.
type Sandbox interface {
	CreateContext(ctx context.Context) (Context, error)
}

// Assertion is the outcome of one pm.test call.
type Assertion struct {
	Name    string          `json:"name"`
	Async   bool            `json:"async"`
	Skipped bool            `json:"skipped"`
	Passed  bool            `json:"passed"`
	Error   *AssertionError `json:"error"`
	Index   int             `json:"index"`
}

// AssertionError describes a failed assertion.
type AssertionError struct {
	Name     string `json:"name"`
	Message  string `json:"message"`
	ShowDiff bool   `json:"showDiff"`
	Actual   any    `json:"actual"`
	Expected any    `json:"expected"`
	Operator string `json:"operator"`
	Stack    string `json:"stack"`
}

// Console arguments are delivered in their script-side shape. Sets, maps,
// plain objects and dates get dedicated types; arrays arrive as []any and
// primitives as string, bool, int64, float64 or nil. Nested objects are
// ObjectValue at any depth.
type (
	// SetValue is a script Set, members in insertion order.
	SetValue []any
	// MapValue is a script Map, entries in insertion order.
	MapValue []MapEntry
	// ObjectValue is a plain script object, properties in key order.
	ObjectValue []MapEntry
)

// MapEntry is one Map entry with its key stringified.
type MapEntry struct {
	Key   string
	Value any
}
