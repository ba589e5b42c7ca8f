package engine

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

// ExecutionContext is everything handed to the sandbox for one run.
type ExecutionContext struct {
	Scopes   *Scopes
	Request  *collection.Request
	Response *collection.Response
	Cookies  []*collection.Cookie

	// HasResponse selects the test phase; without a response the script
	// runs as a pre-request script.
	HasResponse bool
}

// Listen returns the execution phase.
func (c *ExecutionContext) Listen() string {
	if c.HasResponse {
		return sandbox.ListenTest
	}
	return sandbox.ListenPrerequest
}

// Environment converts the context into the sandbox's view.
func (c *ExecutionContext) Environment() sandbox.Environment {
	return sandbox.Environment{
		Variables:           c.Scopes.Variables,
		Environment:         c.Scopes.Environment,
		CollectionVariables: c.Scopes.CollectionVariables,
		Globals:             c.Scopes.Globals,
		Request:             c.Request,
		Response:            c.Response,
		Cookies:             c.Cookies,
	}
}

// Assemble builds the execution context. Cookies that fail to parse are
// skipped; their errors are returned alongside a usable context.
func Assemble(pc *ScriptingContext, scopes *Scopes, logger *zap.Logger) (*ExecutionContext, []error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	req := AssembleRequest(pc.PostmanRequest)
	logger.Info("Request created", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	cookies, errs := AssembleCookies(pc.Cookies)
	for _, err := range errs {
		logger.Warn("Skipping cookie", zap.Error(err))
	}
	logger.Info("Cookies parsed", zap.Int("count", len(cookies)), zap.Int("skipped", len(errs)))

	return &ExecutionContext{
		Scopes:      scopes,
		Request:     req,
		Response:    AssembleResponse(pc.PostmanResponse),
		Cookies:     cookies,
		HasResponse: pc.PostmanResponse != nil,
	}, errs
}

// AssembleRequest converts the wire request. An absent port stays nil, an
// absent body becomes mode "none" with an empty raw payload.
func AssembleRequest(w WireRequest) *collection.Request {
	req := &collection.Request{
		ID:     w.ID,
		Name:   w.Name,
		Method: w.Method,
		URL: collection.URL{
			Protocol: w.URL.Protocol,
			Host:     w.URL.Host,
			Path:     w.URL.Path,
			Query:    make([]collection.QueryParam, 0, len(w.URL.Query)),
		},
		Header: toHeaders(w.Header),
		Body:   collection.Body{Mode: collection.ModeNone},
	}
	if w.URL.Port != "" {
		port := string(w.URL.Port)
		req.URL.Port = &port
	}
	for _, q := range w.URL.Query {
		req.URL.Query = append(req.URL.Query, collection.QueryParam{Key: q.Key, Value: collection.Stringify(q.Value)})
	}

	if b := w.Body; b != nil {
		if b.Mode != "" {
			req.Body.Mode = b.Mode
		}
		req.Body.Raw = b.Raw
		if b.File != "" {
			req.Body.File = &collection.FileSource{Src: string(b.File)}
		}
		if b.GraphQL != nil {
			req.Body.GraphQL = &collection.GraphQL{
				Query:         b.GraphQL.Query,
				OperationName: b.GraphQL.OperationName,
				Variables:     b.GraphQL.Variables,
			}
		}
		req.Body.FormData = toFormParams(b.FormData)
		req.Body.URLEncoded = toFormParams(b.URLEncoded)
	}
	return req
}

// AssembleResponse converts the wire response, or returns the empty
// placeholder when there is none.
func AssembleResponse(w *WireResponse) *collection.Response {
	if w == nil {
		return collection.EmptyResponse()
	}
	return &collection.Response{
		Status:       w.Status,
		Code:         w.Code,
		Header:       toHeaders(w.Header),
		Body:         w.Body,
		ResponseTime: w.ResponseTime,
	}
}

// AssembleCookies parses every wire cookie. A non-empty wire key overrides
// the parsed name.
func AssembleCookies(ws []WireCookie) ([]*collection.Cookie, []error) {
	cookies := make([]*collection.Cookie, 0, len(ws))
	var errs []error
	for _, w := range ws {
		c, err := collection.ParseCookie(w.Value)
		if err != nil {
			errs = append(errs, newError(KindCookieParse, "cookie "+w.Key+" could not be parsed", err))
			continue
		}
		if w.Key != "" {
			c.Name = w.Key
		}
		cookies = append(cookies, c)
	}
	return cookies, errs
}

func toHeaders(kvs []KeyValue) []collection.Header {
	out := make([]collection.Header, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, collection.Header{Key: kv.Key, Value: collection.Stringify(kv.Value)})
	}
	return out
}

func toFormParams(in []WireFormParam) []collection.FormParam {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.FormParam, len(in))
	for i, p := range in {
		out[i] = collection.FormParam(p)
	}
	return out
}
