package sandbox

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
)

// preludeFns are the prelude helpers captured before the script runs.
type preludeFns struct {
	buildPm       goja.Callable
	buildLegacy   goja.Callable
	exportRequest goja.Callable
	exportCookies goja.Callable
	finish        goja.Callable
	consoleArg    goja.Callable
}

// execution binds one Environment into a runtime and collects the outcome.
type execution struct {
	ctx  *execContext
	vm   *goja.Runtime
	spec Spec
	env  Environment
	fns  preludeFns

	pm      *goja.Object
	request goja.Value
	cookies goja.Value

	hasNext bool
	next    any
}

// cookieJSON is the script-side cookie shape. Values written by scripts are
// loosely typed, so value and expires stay untyped until export.
type cookieJSON struct {
	Name       string                       `json:"name"`
	Value      any                          `json:"value"`
	Path       string                       `json:"path,omitempty"`
	Domain     string                       `json:"domain,omitempty"`
	Expires    any                          `json:"expires"`
	MaxAge     *float64                     `json:"maxAge,omitempty"`
	Secure     bool                         `json:"secure"`
	HTTPOnly   bool                         `json:"httpOnly"`
	SameSite   string                       `json:"sameSite,omitempty"`
	Extensions []collection.CookieExtension `json:"extensions,omitempty"`
}

func newExecution(c *execContext, vm *goja.Runtime, spec Spec, env Environment) (*execution, error) {
	x := &execution{ctx: c, vm: vm, spec: spec, env: env}
	if err := x.captureFns(); err != nil {
		return nil, err
	}
	if err := x.setupGlobals(); err != nil {
		return nil, err
	}
	if err := x.bindPm(); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *execution) captureFns() error {
	lookup := func(name string) (goja.Callable, error) {
		fn, ok := goja.AssertFunction(x.vm.Get(name))
		if !ok {
			return nil, fmt.Errorf("prelude function %s missing", name)
		}
		return fn, nil
	}
	var err error
	targets := []struct {
		name string
		dst  *goja.Callable
	}{
		{"__buildPm", &x.fns.buildPm},
		{"__buildLegacy", &x.fns.buildLegacy},
		{"__exportRequest", &x.fns.exportRequest},
		{"__exportCookies", &x.fns.exportCookies},
		{"__finish", &x.fns.finish},
		{"__consoleArg", &x.fns.consoleArg},
	}
	for _, t := range targets {
		if *t.dst, err = lookup(t.name); err != nil {
			return err
		}
	}
	return nil
}

// setupGlobals configures global objects and security
func (x *execution) setupGlobals() error {
	vm := x.vm
	for _, name := range []string{"process", "module", "exports", "eval"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	crypto, err := x.cryptoJS()
	if err != nil {
		return err
	}
	if err := vm.Set("CryptoJS", crypto); err != nil {
		return err
	}
	if err := vm.Set("require", func(name string) goja.Value {
		switch name {
		case "crypto-js":
			return crypto
		}
		panic(vm.NewGoError(fmt.Errorf("cannot find module '%s'", name)))
	}); err != nil {
		return err
	}
	if err := x.bindEncoding(); err != nil {
		return err
	}
	return x.bindConsole()
}

func (x *execution) bindPm() error {
	vm := x.vm
	env := x.env

	request := env.Request
	if request == nil {
		request = &collection.Request{Header: []collection.Header{}}
	}
	response := env.Response
	if response == nil {
		response = collection.EmptyResponse()
	}

	requestJSON, err := sonic.ConfigStd.MarshalToString(request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	responseJSON, err := sonic.ConfigStd.MarshalToString(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	cookiesJSON, err := sonic.ConfigStd.MarshalToString(toCookieJSON(env.Cookies))
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	host := vm.NewObject()
	set := func(name string, v any) {
		if err == nil {
			err = host.Set(name, v)
		}
	}
	set("environment", x.scopeObject(env.Environment))
	set("globals", x.scopeObject(env.Globals))
	set("collectionVariables", x.scopeObject(env.CollectionVariables))
	set("variables", x.scopeObject(env.Variables))
	set("iterationData", x.scopeObject(nil))
	set("info", map[string]any{
		"eventName":      x.spec.Listen,
		"iteration":      0,
		"iterationCount": 1,
		"requestName":    request.Name,
		"requestId":      request.ID,
	})
	set("request", requestJSON)
	set("response", responseJSON)
	set("cookies", cookiesJSON)
	set("emitAssertion", x.emitAssertion)
	set("setNextRequest", x.setNextRequest)
	set("contentInfo", func() ContentInfo { return DescribeContent(response) })
	if err != nil {
		return err
	}

	pmVal, err := x.fns.buildPm(goja.Undefined(), host)
	if err != nil {
		return fmt.Errorf("build pm: %w", classify(err))
	}
	x.pm = pmVal.ToObject(vm)
	x.request = x.pm.Get("request")
	x.cookies = x.pm.Get("cookies")

	legacy, err := x.fns.buildLegacy(goja.Undefined(), x.pm, host)
	if err != nil {
		return fmt.Errorf("build postman: %w", classify(err))
	}
	if err := vm.Set("pm", x.pm); err != nil {
		return err
	}
	return vm.Set("postman", legacy)
}

// scopeObject exposes a scope to scripts. Writes go straight through to the
// Go scope, so the engine reads them back without a sync step.
func (x *execution) scopeObject(s *collection.Scope) *goja.Object {
	vm := x.vm
	if s == nil {
		s = collection.NewScope("", nil)
	}
	o := vm.NewObject()
	_ = o.Set("get", func(key string) goja.Value {
		v, ok := s.Get(key)
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(v)
	})
	_ = o.Set("set", func(key string, value goja.Value) { s.Set(key, exportValue(value)) })
	_ = o.Set("has", s.Has)
	_ = o.Set("unset", s.Unset)
	_ = o.Set("clear", s.Clear)
	_ = o.Set("toObject", s.ToObject)
	_ = o.Set("replaceIn", s.ReplaceIn)
	return o
}

func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func (x *execution) emitAssertion(payload string) {
	var a Assertion
	if err := sonic.ConfigStd.UnmarshalFromString(payload, &a); err != nil {
		panic(x.vm.NewGoError(fmt.Errorf("decode assertion: %w", err)))
	}
	x.ctx.emit(EventAssertion, []Assertion{a})
}

func (x *execution) setNextRequest(v goja.Value) {
	x.hasNext = true
	x.next = exportValue(v)
}

// finish drains queued timers and settles pending and legacy tests.
func (x *execution) finish() error {
	_, err := x.fns.finish(goja.Undefined(), x.pm, x.vm.ToValue(timerLimit))
	return err
}

func (x *execution) result() (*Result, error) {
	reqJSON, err := x.fns.exportRequest(goja.Undefined(), x.request)
	if err != nil {
		return nil, fmt.Errorf("export request: %w", classify(err))
	}
	var request collection.Request
	if err := sonic.ConfigStd.UnmarshalFromString(reqJSON.String(), &request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	cookiesJSON, err := x.fns.exportCookies(goja.Undefined(), x.cookies)
	if err != nil {
		return nil, fmt.Errorf("export cookies: %w", classify(err))
	}
	var raw []cookieJSON
	if err := sonic.ConfigStd.UnmarshalFromString(cookiesJSON.String(), &raw); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}

	ret := map[string]any{"async": false}
	if x.hasNext {
		ret["nextRequest"] = x.next
	}

	return &Result{
		Variables:           snapshot(x.env.Variables),
		Environment:         snapshot(x.env.Environment),
		CollectionVariables: snapshot(x.env.CollectionVariables),
		Globals:             snapshot(x.env.Globals),
		Request:             &request,
		Cookies:             fromCookieJSON(raw),
		Return:              ret,
	}, nil
}

func snapshot(s *collection.Scope) *ScopeSnapshot {
	if s == nil {
		return &ScopeSnapshot{}
	}
	return &ScopeSnapshot{Values: s.Values().Members()}
}

func toCookieJSON(cookies []*collection.Cookie) []cookieJSON {
	out := make([]cookieJSON, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		cj := cookieJSON{
			Name:       c.Name,
			Value:      c.Value,
			Path:       c.Path,
			Domain:     c.Domain,
			Secure:     c.Secure,
			HTTPOnly:   c.HTTPOnly,
			SameSite:   c.SameSite,
			Extensions: c.Extensions,
		}
		if c.Expires != nil {
			cj.Expires = c.Expires.UTC().Format(http.TimeFormat)
		}
		if c.MaxAge != nil {
			age := float64(*c.MaxAge)
			cj.MaxAge = &age
		}
		out = append(out, cj)
	}
	return out
}

func fromCookieJSON(raw []cookieJSON) []*collection.Cookie {
	out := make([]*collection.Cookie, 0, len(raw))
	for _, cj := range raw {
		c := &collection.Cookie{
			Name:       cj.Name,
			Value:      collection.Stringify(cj.Value),
			Path:       cj.Path,
			Domain:     cj.Domain,
			Secure:     cj.Secure,
			HTTPOnly:   cj.HTTPOnly,
			SameSite:   cj.SameSite,
			Extensions: cj.Extensions,
		}
		if exp, ok := collection.ParseExpires(cj.Expires); ok {
			c.Expires = &exp
		}
		if cj.MaxAge != nil {
			age := int(*cj.MaxAge)
			c.MaxAge = &age
		}
		out = append(out, c)
	}
	return out
}
