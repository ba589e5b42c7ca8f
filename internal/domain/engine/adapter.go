package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

// Outcome is what one sandbox run produced.
type Outcome struct {
	Result         *sandbox.Result
	TestResults    []TestResult
	ConsoleLogs    []ConsoleLog
	HasNextRequest bool
	NextRequest    *string
	Duration       time.Duration
}

// Adapter drives a single sandbox execution and collects its events.
type Adapter struct {
	sandbox sandbox.Sandbox
	breaker *resilience.Breaker
	now     func() time.Time
}

// NewAdapter creates an adapter. A nil breaker disables fail-fast on
// repeated init failures.
func NewAdapter(sbx sandbox.Sandbox, breaker *resilience.Breaker) *Adapter {
	return &Adapter{sandbox: sbx, breaker: breaker, now: time.Now}
}

// events accumulates listener output. Listeners may fire from the sandbox
// goroutine while the caller is still waiting.
type events struct {
	mu      sync.Mutex
	tests   []TestResult
	console []ConsoleLog
}

func (e *events) snapshot() ([]TestResult, []ConsoleLog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tests := append(make([]TestResult, 0, len(e.tests)), e.tests...)
	console := append(make([]ConsoleLog, 0, len(e.console)), e.console...)
	return tests, console
}

// Run executes script against execCtx and waits until the sandbox settles
// or ctx is done. The sandbox handle is disposed on every path.
func (a *Adapter) Run(ctx context.Context, execCtx *ExecutionContext, script string, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := a.now()

	sbx, err := a.createContext(ctx)
	if err != nil {
		return nil, newError(KindSandboxInit, "failed to create sandbox context", err)
	}
	defer sbx.Dispose()

	ev := &events{}
	sbx.On(sandbox.EventAssertion, func(_ sandbox.Cursor, args ...any) {
		tr, ok := firstAssertion(args)
		if !ok {
			return
		}
		ev.mu.Lock()
		ev.tests = append(ev.tests, tr)
		ev.mu.Unlock()
	})
	sbx.On(sandbox.EventConsole, func(_ sandbox.Cursor, args ...any) {
		if len(args) == 0 {
			return
		}
		level, _ := args[0].(string)
		entry := ConsoleLog{
			Level:     level,
			Message:   joinArgs(args[1:]),
			Timestamp: a.now().UnixMilli(),
		}
		ev.mu.Lock()
		ev.console = append(ev.console, entry)
		ev.mu.Unlock()
	})

	type settled struct {
		err    error
		result *sandbox.Result
	}
	done := make(chan settled, 1)
	var once sync.Once

	listen := execCtx.Listen()
	logger.Debug("Executing script", zap.String("listen", listen), zap.Int("script_size", len(script)))
	sbx.Execute(sandbox.Spec{Listen: listen, Script: script}, execCtx.Environment(), func(err error, result *sandbox.Result) {
		once.Do(func() { done <- settled{err: err, result: result} })
	})

	var s settled
	select {
	case s = <-done:
	case <-ctx.Done():
		sbx.Abort("execution cancelled")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(KindSandboxTimeout, "script execution timed out", ctx.Err())
		}
		return nil, newError(KindSandboxExecution, "script execution cancelled", ctx.Err())
	}

	if s.err != nil {
		return nil, newError(KindSandboxExecution, "script execution failed", s.err)
	}
	if s.result == nil || s.result.Return == nil {
		return nil, newError(KindSandboxExecution, "script execution failed", ErrEmptyResult)
	}
	if s.result.Request == nil {
		return nil, newError(KindSandboxExecution, "malformed execution result", errors.New("result has no request"))
	}

	tests, console := ev.snapshot()
	next, hasNext := nextRequest(s.result.Return)
	return &Outcome{
		Result:         s.result,
		TestResults:    tests,
		ConsoleLogs:    console,
		HasNextRequest: hasNext,
		NextRequest:    next,
		Duration:       a.now().Sub(start),
	}, nil
}

func (a *Adapter) createContext(ctx context.Context) (sandbox.Context, error) {
	if a.breaker == nil {
		return a.sandbox.CreateContext(ctx)
	}
	return resilience.Call(a.breaker, func() (sandbox.Context, error) {
		return a.sandbox.CreateContext(ctx)
	})
}

// firstAssertion keeps only the first record of an assertion payload.
func firstAssertion(args []any) (TestResult, bool) {
	if len(args) == 0 {
		return TestResult{}, false
	}
	list, ok := args[0].([]sandbox.Assertion)
	if !ok || len(list) == 0 {
		return TestResult{}, false
	}
	a := list[0]
	tr := TestResult{
		Name:    a.Name,
		Async:   a.Async,
		Skipped: a.Skipped,
		Passed:  a.Passed,
		Index:   a.Index,
	}
	if a.Error != nil {
		te := TestError(*a.Error)
		tr.Error = &te
	}
	return tr, true
}

// nextRequest reports whether the script asked for chaining, and the target
// name when the value is truthy.
func nextRequest(ret map[string]any) (*string, bool) {
	v, ok := ret["nextRequest"]
	if !ok {
		return nil, false
	}
	if !truthy(v) {
		return nil, true
	}
	name := collection.Stringify(v)
	return &name, true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}
