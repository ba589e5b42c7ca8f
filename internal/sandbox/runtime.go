package sandbox

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

//go:embed prelude.js
var preludeSource string

var (
	preludeOnce sync.Once
	prelude     *goja.Program
	preludeErr  error
)

func compiledPrelude() (*goja.Program, error) {
	preludeOnce.Do(func() {
		prelude, preludeErr = goja.Compile("prelude.js", preludeSource, false)
	})
	return prelude, preludeErr
}

// timerLimit caps how many queued timer callbacks run after the script body.
const timerLimit = 10000

// Runtime creates goja-backed execution contexts. Every context owns a fresh
// goja.Runtime, so nothing leaks between executions.
type Runtime struct {
	config Config
}

// New creates a sandbox runtime.
func New(config Config) (*Runtime, error) {
	if config.MaxCallStackSize <= 0 {
		config.MaxCallStackSize = DefaultConfig().MaxCallStackSize
	}
	if _, err := compiledPrelude(); err != nil {
		return nil, fmt.Errorf("compile prelude: %w", err)
	}
	return &Runtime{config: config}, nil
}

// CreateContext returns a new isolated context.
func (r *Runtime) CreateContext(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &execContext{
		id:        uuid.NewString(),
		config:    r.config,
		listeners: make(map[string][]Listener),
	}, nil
}

// execContext runs a single script. It is not reusable.
type execContext struct {
	id     string
	config Config

	mu          sync.Mutex
	listeners   map[string][]Listener
	vm          *goja.Runtime
	abortReason string
	started     bool
	disposed    bool
}

func (c *execContext) On(event string, listener Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.listeners[event] = append(c.listeners[event], listener)
}

// Execute runs the script on its own goroutine and reports through done.
func (c *execContext) Execute(spec Spec, env Environment, done Callback) {
	c.mu.Lock()
	var err error
	switch {
	case c.disposed:
		err = ErrDisposed
	case c.started:
		err = ErrContextUsed
	}
	c.started = true
	c.mu.Unlock()

	if err != nil {
		go done(err, nil)
		return
	}

	go func() {
		result, err := c.run(spec, env)
		done(err, result)
	}()
}

// Abort interrupts a running script. Aborting before the runtime exists
// makes the run fail as soon as it starts.
func (c *execContext) Abort(reason string) {
	c.mu.Lock()
	if c.abortReason == "" {
		c.abortReason = reason
	}
	vm := c.vm
	c.mu.Unlock()
	if vm != nil {
		vm.Interrupt(reason)
	}
}

func (c *execContext) Dispose() {
	c.mu.Lock()
	c.disposed = true
	c.listeners = nil
	vm := c.vm
	c.vm = nil
	c.mu.Unlock()
	if vm != nil {
		vm.Interrupt("context disposed")
	}
}

func (c *execContext) emit(event string, args ...any) {
	c.mu.Lock()
	listeners := append([]Listener(nil), c.listeners[event]...)
	c.mu.Unlock()

	cursor := Cursor{Execution: c.id, Event: event}
	for _, l := range listeners {
		l(cursor, args...)
	}
}

func (c *execContext) attach(vm *goja.Runtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vm = vm
	if c.abortReason != "" {
		vm.Interrupt(c.abortReason)
	}
}

func (c *execContext) run(spec Spec, env Environment) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("sandbox panic: %v", r)
		}
	}()

	program, err := compiledPrelude()
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	vm.SetMaxCallStackSize(c.config.MaxCallStackSize)
	c.attach(vm)

	if c.config.Timeout > 0 {
		timer := time.AfterFunc(c.config.Timeout, func() {
			vm.Interrupt("execution timeout exceeded")
		})
		defer timer.Stop()
	}

	if _, err := vm.RunProgram(program); err != nil {
		return nil, classify(err)
	}

	x, err := newExecution(c, vm, spec, env)
	if err != nil {
		return nil, err
	}
	if _, err := vm.RunString(spec.Script); err != nil {
		return nil, classify(err)
	}
	if err := x.finish(); err != nil {
		return nil, classify(err)
	}
	return x.result()
}
