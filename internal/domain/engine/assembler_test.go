package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/scriptengine/internal/domain/collection"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

func TestAssembleRequest(t *testing.T) {
	tests := []struct {
		name  string
		wire  WireRequest
		check func(t *testing.T, req *collection.Request)
	}{
		{
			name: "absent body defaults to none",
			wire: WireRequest{Method: "GET"},
			check: func(t *testing.T, req *collection.Request) {
				assert.Equal(t, collection.ModeNone, req.Body.Mode)
				assert.Empty(t, req.Body.Raw)
				assert.Nil(t, req.URL.Port)
			},
		},
		{
			name: "empty mode defaults to none",
			wire: WireRequest{Body: &WireBody{Raw: "x"}},
			check: func(t *testing.T, req *collection.Request) {
				assert.Equal(t, collection.ModeNone, req.Body.Mode)
				assert.Equal(t, "x", req.Body.Raw)
			},
		},
		{
			name: "url and headers",
			wire: WireRequest{
				ID:     "r1",
				Name:   "Get user",
				Method: "GET",
				URL: WireURL{
					Protocol: "https",
					Host:     []string{"api", "example", "com"},
					Port:     "8443",
					Path:     []string{"users", "1"},
					Query:    []KeyValue{{Key: "page", Value: 2.0}},
				},
				Header: []KeyValue{{Key: "Accept", Value: "application/json"}},
			},
			check: func(t *testing.T, req *collection.Request) {
				assert.Equal(t, "r1", req.ID)
				assert.Equal(t, "Get user", req.Name)
				require.NotNil(t, req.URL.Port)
				assert.Equal(t, "https://api.example.com:8443/users/1?page=2", req.URL.String())
				assert.Equal(t, []collection.Header{{Key: "Accept", Value: "application/json"}}, req.Header)
			},
		},
		{
			name: "file and graphql bodies",
			wire: WireRequest{Body: &WireBody{
				Mode:     collection.ModeGraphQL,
				File:     "/tmp/upload.bin",
				GraphQL:  &WireGraphQL{Query: "{ me { id } }", OperationName: "Me"},
				FormData: []WireFormParam{{Key: "f", Type: "file", Src: "/tmp/a"}},
			}},
			check: func(t *testing.T, req *collection.Request) {
				require.NotNil(t, req.Body.File)
				assert.Equal(t, "/tmp/upload.bin", req.Body.File.Src)
				require.NotNil(t, req.Body.GraphQL)
				assert.Equal(t, "Me", req.Body.GraphQL.OperationName)
				assert.Equal(t, []collection.FormParam{{Key: "f", Type: "file", Src: "/tmp/a"}}, req.Body.FormData)
				assert.Nil(t, req.Body.URLEncoded)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, AssembleRequest(tt.wire))
		})
	}
}

func TestAssembleResponse(t *testing.T) {
	empty := AssembleResponse(nil)
	assert.Equal(t, "", empty.Status)
	assert.Zero(t, empty.Code)
	assert.Equal(t, "", empty.Body)
	assert.Zero(t, empty.ResponseTime)

	resp := AssembleResponse(&WireResponse{
		Status:       "OK",
		Code:         200,
		Header:       []KeyValue{{Key: "Content-Type", Value: "application/json"}},
		Body:         `{"id":1}`,
		ResponseTime: 12.5,
	})
	assert.Equal(t, 200, resp.Code)
	ct, ok := collection.HeaderValue(resp.Header, "content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", ct)
	assert.Equal(t, 12.5, resp.ResponseTime)
}

func TestAssembleCookies(t *testing.T) {
	cookies, errs := AssembleCookies([]WireCookie{
		{Key: "session", Value: "sid=abc; Path=/; HttpOnly"},
		{Key: "", Value: "theme=dark"},
		{Key: "broken", Value: "no-equals-sign"},
		{Key: "data", Value: `data={"a":1}; Path=/`},
	})

	require.Len(t, cookies, 3)
	assert.Equal(t, "session", cookies[0].Name, "wire key overrides the parsed name")
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HTTPOnly)
	assert.Equal(t, "theme", cookies[1].Name)
	assert.Equal(t, `{"a":1}`, cookies[2].Value, "JSON values are kept")
	assert.Equal(t, `data={"a":1}; Path=/`, cookies[2].String())

	require.Len(t, errs, 1)
	kind, ok := KindOf(errs[0])
	assert.True(t, ok)
	assert.Equal(t, KindCookieParse, kind)
}

func TestAssemble(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	pc := &ScriptingContext{
		PostmanRequest: WireRequest{Method: "POST", URL: WireURL{Host: []string{"example", "com"}}},
		Cookies:        []WireCookie{{Key: "a", Value: "a=1"}, {Key: "b", Value: ""}},
	}
	scopes, err := BuildScopes(pc, nil)
	require.NoError(t, err)

	execCtx, errs := Assemble(pc, scopes, zap.New(core))
	assert.Len(t, errs, 1)
	assert.Len(t, execCtx.Cookies, 1)
	assert.False(t, execCtx.HasResponse)
	assert.Equal(t, sandbox.ListenPrerequest, execCtx.Listen())

	assert.Equal(t, 1, logs.FilterMessage("Request created").Len())
	assert.Equal(t, 1, logs.FilterMessage("Skipping cookie").Len())
	assert.Equal(t, 1, logs.FilterMessage("Cookies parsed").Len())

	env := execCtx.Environment()
	assert.Same(t, scopes.Variables, env.Variables)
	assert.Same(t, execCtx.Request, env.Request)

	pc.PostmanResponse = &WireResponse{Code: 200}
	execCtx, _ = Assemble(pc, scopes, nil)
	assert.True(t, execCtx.HasResponse)
	assert.Equal(t, sandbox.ListenTest, execCtx.Listen())
}
