package collection

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Body modes understood by the sandbox.
const (
	ModeNone       = "none"
	ModeRaw        = "raw"
	ModeFile       = "file"
	ModeGraphQL    = "graphql"
	ModeFormData   = "formdata"
	ModeURLEncoded = "urlencoded"
)

// Header is a request or response header entry.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QueryParam is one URL query entry.
type QueryParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// URL is a decomposed request URL. A nil Port means the scheme default.
type URL struct {
	Protocol string       `json:"protocol,omitempty"`
	Host     []string     `json:"host"`
	Port     *string      `json:"port"`
	Path     []string     `json:"path"`
	Query    []QueryParam `json:"query"`
}

// UnmarshalJSON accepts either the decomposed object form or a raw URL
// string, which scripts produce when they assign pm.request.url directly.
func (u *URL) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*u = ParseURL(raw)
		return nil
	}
	type plain URL
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = URL(p)
	return nil
}

// HostString joins the host labels.
func (u URL) HostString() string { return strings.Join(u.Host, ".") }

// PathString renders the path with a leading slash, or "" when empty.
func (u URL) PathString() string {
	if len(u.Path) == 0 {
		return ""
	}
	return "/" + strings.Join(u.Path, "/")
}

// QueryString renders query params in order without escaping, as written.
func (u URL) QueryString() string {
	parts := make([]string, 0, len(u.Query))
	for _, q := range u.Query {
		parts = append(parts, q.Key+"="+q.Value)
	}
	return strings.Join(parts, "&")
}

// String renders the full URL.
func (u URL) String() string {
	var b strings.Builder
	if u.Protocol != "" {
		b.WriteString(u.Protocol)
		b.WriteString("://")
	}
	b.WriteString(u.HostString())
	if u.Port != nil && *u.Port != "" {
		b.WriteString(":")
		b.WriteString(*u.Port)
	}
	b.WriteString(u.PathString())
	if q := u.QueryString(); q != "" {
		b.WriteString("?")
		b.WriteString(q)
	}
	return b.String()
}

// ParseURL decomposes a raw URL string. Query pairs are kept exactly as
// written; a missing scheme is left empty.
func ParseURL(raw string) URL {
	var out URL
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		out.Protocol = rest[:i]
		rest = rest[i+3:]
	}
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		query = rest[i+1:]
		rest = rest[:i]
	}
	hostPort := rest
	var path string
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostPort = rest[:i]
		path = rest[i+1:]
	}
	if i := strings.LastIndexByte(hostPort, ':'); i >= 0 && !strings.Contains(hostPort[i:], "]") {
		port := hostPort[i+1:]
		out.Port = &port
		hostPort = hostPort[:i]
	}
	if hostPort != "" {
		out.Host = strings.Split(hostPort, ".")
	}
	if path != "" {
		out.Path = strings.Split(path, "/")
	}
	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			k, v, _ := strings.Cut(pair, "=")
			out.Query = append(out.Query, QueryParam{Key: k, Value: v})
		}
	}
	return out
}

// FileSource references a file body by its source path.
type FileSource struct {
	Src string `json:"src"`
}

// GraphQL is a graphql body payload.
type GraphQL struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName,omitempty"`
	Variables     string `json:"variables,omitempty"`
}

// FormParam is one multipart or urlencoded body field.
type FormParam struct {
	Key         string `json:"key"`
	Value       string `json:"value,omitempty"`
	Type        string `json:"type,omitempty"`
	Src         string `json:"src,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Description string `json:"description,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// Body is a request body in one of the supported modes.
type Body struct {
	Mode       string      `json:"mode"`
	Raw        string      `json:"raw"`
	File       *FileSource `json:"file"`
	GraphQL    *GraphQL    `json:"graphql,omitempty"`
	FormData   []FormParam `json:"formdata,omitempty"`
	URLEncoded []FormParam `json:"urlencoded,omitempty"`
}

// Request is the outgoing request a script can inspect and mutate.
type Request struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Method string   `json:"method"`
	URL    URL      `json:"url"`
	Header []Header `json:"header"`
	Body   Body     `json:"body"`
}

// HeaderValue returns the first header matching key case-insensitively.
func HeaderValue(headers []Header, key string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}
