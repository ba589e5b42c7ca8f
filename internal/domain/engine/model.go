package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScriptRequest is the inbound execution request.
type ScriptRequest struct {
	ProjectID string            `json:"projectId"`
	Postman   *ScriptingContext `json:"postman"`
	Script    string            `json:"script"`
}

// ScriptingContext is the wire shape of everything a script can see. The
// same shape is returned with post-execution values.
type ScriptingContext struct {
	Globals             map[string]any `json:"globals"`
	CollectionVariables map[string]any `json:"collectionVariables"`
	Environment         map[string]any `json:"environment"`
	IterationData       map[string]any `json:"iterationData"`
	Variables           map[string]any `json:"variables"`
	PostmanRequest      WireRequest    `json:"postmanRequest"`
	PostmanResponse     *WireResponse  `json:"postmanResponse"`
	Cookies             []WireCookie   `json:"cookies"`
}

// KeyValue is a header or query entry.
type KeyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// WireURL is the decomposed request URL.
type WireURL struct {
	Protocol string     `json:"protocol"`
	Host     []string   `json:"host"`
	Port     Port       `json:"port,omitempty"`
	Path     []string   `json:"path"`
	Query    []KeyValue `json:"query"`
}

// Port accepts a string or a number on the wire and emits a string.
type Port string

func (p *Port) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Port(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("port: %w", err)
		}
		*p = Port(n.String())
	}
	return nil
}

// FileRef is a file body reference. On input it may be a bare path or a
// {"src": path} object; on output it is always the bare path.
type FileRef string

func (f *FileRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FileRef(s)
	default:
		var obj struct {
			Src string `json:"src"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("file: %w", err)
		}
		*f = FileRef(obj.Src)
	}
	return nil
}

// WireGraphQL is a graphql body.
type WireGraphQL struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName,omitempty"`
	Variables     string `json:"variables,omitempty"`
}

// WireFormParam is one formdata or urlencoded body field.
type WireFormParam struct {
	Key         string `json:"key"`
	Value       string `json:"value,omitempty"`
	Type        string `json:"type,omitempty"`
	Src         string `json:"src,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Description string `json:"description,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// WireBody is the request body.
type WireBody struct {
	Mode       string          `json:"mode"`
	Raw        string          `json:"raw"`
	File       FileRef         `json:"file,omitempty"`
	GraphQL    *WireGraphQL    `json:"graphql,omitempty"`
	FormData   []WireFormParam `json:"formdata,omitempty"`
	URLEncoded []WireFormParam `json:"urlencoded,omitempty"`
}

// WireRequest is the request under execution.
type WireRequest struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	URL    WireURL    `json:"url"`
	Header []KeyValue `json:"header"`
	Method string     `json:"method"`
	Body   *WireBody  `json:"body,omitempty"`
}

// WireResponse is the received response, present in the test phase only.
type WireResponse struct {
	Status       string     `json:"status"`
	Code         int        `json:"code"`
	Header       []KeyValue `json:"header"`
	Body         string     `json:"body"`
	ResponseTime float64    `json:"responseTime"`
}

// WireCookie is a raw cookie; Value is a Set-Cookie style string.
type WireCookie struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TestResult is one recorded assertion.
type TestResult struct {
	Name    string     `json:"name"`
	Async   bool       `json:"async"`
	Skipped bool       `json:"skipped"`
	Passed  bool       `json:"passed"`
	Error   *TestError `json:"error"`
	Index   int        `json:"index"`
}

// TestError describes a failed assertion.
type TestError struct {
	Name     string `json:"name"`
	Message  string `json:"message"`
	ShowDiff bool   `json:"showDiff"`
	Actual   any    `json:"actual"`
	Expected any    `json:"expected"`
	Operator string `json:"operator"`
	Stack    string `json:"stack"`
}

// ConsoleLog is one captured console call. Timestamp is epoch milliseconds.
type ConsoleLog struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ScriptResponse is the execution outcome.
type ScriptResponse struct {
	Postman        *ScriptingContext `json:"postman"`
	TestResults    []TestResult      `json:"testResults"`
	ConsoleLogs    []ConsoleLog      `json:"consoleLogs"`
	HasNextRequest bool              `json:"hasNextRequest"`
	NextRequest    *string           `json:"nextRequest"`
}
