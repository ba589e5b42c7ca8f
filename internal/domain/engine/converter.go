package engine

import (
	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

// Convert maps a sandbox result back to the wire context. Iteration data and
// the response are echoed from the input unchanged.
func Convert(input *ScriptingContext, result *sandbox.Result) *ScriptingContext {
	out := &ScriptingContext{
		Globals:             flatten(result.Globals),
		CollectionVariables: flatten(result.CollectionVariables),
		Environment:         flatten(result.Environment),
		Variables:           flatten(result.Variables),
		Cookies:             ConvertCookies(result.Cookies),
	}
	if result.Request != nil {
		out.PostmanRequest = ConvertRequest(result.Request)
	}
	if input != nil {
		out.IterationData = input.IterationData
		out.PostmanResponse = input.PostmanResponse
	}
	if out.IterationData == nil {
		out.IterationData = map[string]any{}
	}
	return out
}

// flatten turns a member list into a map. Later members win on duplicate keys.
func flatten(s *sandbox.ScopeSnapshot) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	for _, v := range s.Values {
		out[v.Key] = v.Value
	}
	return out
}

// ConvertRequest copies the request field by field. A {src} file reference
// collapses to its path.
func ConvertRequest(req *collection.Request) WireRequest {
	w := WireRequest{
		ID:     req.ID,
		Name:   req.Name,
		Method: req.Method,
		URL: WireURL{
			Protocol: req.URL.Protocol,
			Host:     nonNil(req.URL.Host),
			Path:     nonNil(req.URL.Path),
			Query:    make([]KeyValue, 0, len(req.URL.Query)),
		},
		Header: make([]KeyValue, 0, len(req.Header)),
	}
	if req.URL.Port != nil {
		w.URL.Port = Port(*req.URL.Port)
	}
	for _, q := range req.URL.Query {
		w.URL.Query = append(w.URL.Query, KeyValue{Key: q.Key, Value: q.Value})
	}
	for _, h := range req.Header {
		w.Header = append(w.Header, KeyValue{Key: h.Key, Value: h.Value})
	}

	body := &WireBody{Mode: req.Body.Mode, Raw: req.Body.Raw}
	if body.Mode == "" {
		body.Mode = collection.ModeNone
	}
	if req.Body.File != nil {
		body.File = FileRef(req.Body.File.Src)
	}
	if gql := req.Body.GraphQL; gql != nil {
		body.GraphQL = &WireGraphQL{Query: gql.Query, OperationName: gql.OperationName, Variables: gql.Variables}
	}
	body.FormData = fromFormParams(req.Body.FormData)
	body.URLEncoded = fromFormParams(req.Body.URLEncoded)
	w.Body = body
	return w
}

// ConvertCookies serializes each cookie with its attributes; expiry is
// rendered as an HTTP date.
func ConvertCookies(cookies []*collection.Cookie) []WireCookie {
	out := make([]WireCookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		out = append(out, WireCookie{Key: c.Name, Value: c.String()})
	}
	return out
}

func fromFormParams(in []collection.FormParam) []WireFormParam {
	if len(in) == 0 {
		return nil
	}
	out := make([]WireFormParam, len(in))
	for i, p := range in {
		out[i] = WireFormParam(p)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
