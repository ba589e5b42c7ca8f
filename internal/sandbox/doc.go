/*
Package sandbox executes Postman-style scripts in isolated goja runtimes.

# Overview

A Runtime hands out single-use Contexts. Each Context owns a fresh goja VM,
so no script state survives between executions. A Context:

  - emits "execution.assertion" for every pm.test outcome
  - emits "console" for every console call, level first, raw arguments after
  - reports the final scopes, request, cookies and directives exactly once
    through the Execute callback
  - can be aborted from another goroutine, which interrupts the VM

# Script API

Scripts see pm (scopes, request, response, cookies, info, test, expect,
execution), the legacy postman object, console, CryptoJS, btoa, atob and
require('crypto-js'). Timers run on a virtual clock drained after the script
body completes; there is no real event loop.

# Security Model

Sandboxed code cannot:
  - reach the filesystem, network or process (require, process, module,
    exports and eval are removed)
  - recurse past the configured call stack depth
  - run past the configured timeout or an Abort

# Usage Example

	rt, _ := sandbox.New(sandbox.DefaultConfig())
	sctx, _ := rt.CreateContext(ctx)
	defer sctx.Dispose()

	sctx.On(sandbox.EventConsole, func(_ sandbox.Cursor, args ...any) { ... })
	sctx.Execute(sandbox.Spec{Listen: sandbox.ListenTest, Script: src}, env,
		func(err error, res *sandbox.Result) { ... })
*/
package sandbox
