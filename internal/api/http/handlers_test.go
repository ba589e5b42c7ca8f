package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scriptengine/internal/api/middleware"
	"github.com/GriffinCanCode/scriptengine/internal/domain/engine"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) ExecuteScript(ctx context.Context, req *engine.ScriptRequest) (*engine.ScriptResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*engine.ScriptResponse)
	return resp, args.Error(1)
}

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func post(r http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/script/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		name   string
	}{
		{&engine.Error{Kind: engine.KindScopeBuild}, http.StatusBadRequest, "ScopeBuildError"},
		{&engine.Error{Kind: engine.KindSandboxTimeout}, http.StatusGatewayTimeout, "SandboxTimeoutError"},
		{&engine.Error{Kind: engine.KindSandboxExecution}, http.StatusInternalServerError, "SandboxExecutionError"},
		{&engine.Error{Kind: engine.KindSandboxInit}, http.StatusInternalServerError, "SandboxInitError"},
		{fmt.Errorf("wrapped: %w", &engine.Error{Kind: engine.KindSandboxTimeout}), http.StatusGatewayTimeout, "SandboxTimeoutError"},
		{errors.New("plain"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, name := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestExecuteScriptHandler(t *testing.T) {
	exec := &mockExecutor{}
	next := "Login"
	exec.On("ExecuteScript", mock.Anything, mock.MatchedBy(func(req *engine.ScriptRequest) bool {
		return req.ProjectID == "from-header" && req.Script == "pm.test('x')" && req.Postman.PostmanRequest.URL.Port == "8080"
	})).Return(&engine.ScriptResponse{
		Postman:        &engine.ScriptingContext{Variables: map[string]any{"a": "<b>"}},
		TestResults:    []engine.TestResult{},
		ConsoleLogs:    []engine.ConsoleLog{},
		HasNextRequest: true,
		NextRequest:    &next,
	}, nil)

	r := newRouter(NewHandlers(exec, nil))
	w := post(r, `{"script":"pm.test('x')","postman":{"postmanRequest":{"id":"r1","url":{"port":8080}}}}`,
		map[string]string{"X-Project-Id": "from-header"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"a":"<b>"`, "HTML is not escaped")

	var resp engine.ScriptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.HasNextRequest)
	assert.Equal(t, "Login", *resp.NextRequest)
	exec.AssertExpectations(t)
}

func TestExecuteScriptHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		errKey string
	}{
		{"malformed json", `{"script":`, nil, http.StatusBadRequest, "Bad Request"},
		{"globals not an object", `{"script":"1","postman":{"globals":"oops"}}`, nil, http.StatusBadRequest, "ScopeBuildError"},
		{"environment is an array", `{"script":"1","postman":{"environment":[]}}`, nil, http.StatusBadRequest, "ScopeBuildError"},
		{"postman not an object", `{"script":"1","postman":5}`, nil, http.StatusBadRequest, "ScopeBuildError"},
		{"script not a string", `{"script":1,"postman":{}}`, nil, http.StatusBadRequest, "Bad Request"},
		{"scope build", `{"script":"1"}`, &engine.Error{Kind: engine.KindScopeBuild, Message: "scripting context is missing"}, http.StatusBadRequest, "ScopeBuildError"},
		{"timeout", `{"script":"1","postman":{}}`, &engine.Error{Kind: engine.KindSandboxTimeout, Message: "timed out"}, http.StatusGatewayTimeout, "SandboxTimeoutError"},
		{"execution", `{"script":"1","postman":{}}`, &engine.Error{Kind: engine.KindSandboxExecution, Message: "boom"}, http.StatusInternalServerError, "SandboxExecutionError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{}
			if tt.err != nil {
				exec.On("ExecuteScript", mock.Anything, mock.Anything).Return(nil, tt.err)
			}
			w := post(newRouter(NewHandlers(exec, nil)), tt.body, nil)

			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.status, body.StatusCode)
			assert.Equal(t, tt.errKey, body.Error)
			assert.Equal(t, "/api/v1/script/execute", body.Path)
			assert.NotEmpty(t, body.Message)
			_, err := time.Parse(time.RFC3339, body.Timestamp)
			assert.NoError(t, err)
			exec.AssertExpectations(t)
		})
	}
}

func TestProbes(t *testing.T) {
	var readyErr error
	h := NewHandlers(&mockExecutor{}, nil).WithReadiness(func() error { return readyErr })
	r := newRouter(h)

	for _, path := range []string{"/probes/live", "/probes/ready"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Zero(t, w.Body.Len(), path)
	}

	readyErr = errors.New("sandbox breaker open")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probes/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "sandbox breaker open", decodeError(t, w).Message)
}

func TestExecuteScriptEndToEnd(t *testing.T) {
	rt, err := sandbox.New(sandbox.DefaultConfig())
	require.NoError(t, err)
	svc := engine.NewService(rt, engine.Config{ExecutionTimeout: 5 * time.Second})
	r := newRouter(NewHandlers(svc, nil))

	body := `{
		"projectId": "p1",
		"script": "pm.test('Status code is 200', function () { pm.expect(pm.variables.get('code')).to.equal('200'); }); pm.environment.set('seen', true);",
		"postman": {
			"environment": {"code": "200"},
			"postmanRequest": {"method": "GET", "url": {"protocol": "https", "host": ["example", "com"], "path": ["a"]}},
			"cookies": [{"key": "sid", "value": "sid=1; Path=/"}]
		}
	}`
	w := post(r, body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp engine.ScriptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.TestResults, 1)
	assert.True(t, resp.TestResults[0].Passed)
	assert.Equal(t, true, resp.Postman.Environment["seen"])
	assert.Equal(t, "200", resp.Postman.Environment["code"])
	assert.Equal(t, []engine.WireCookie{{Key: "sid", Value: "sid=1; Path=/"}}, resp.Postman.Cookies)
	assert.False(t, resp.HasNextRequest)
	assert.Nil(t, resp.NextRequest)
	assert.Equal(t, map[string]any{}, resp.Postman.IterationData)
}
