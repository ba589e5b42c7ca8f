package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptengine/internal/shared/id"
)

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"caller supplied", "abc-123", true},
		{"too long", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			assert.Equal(t, got, w.Body.String())
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.True(t, id.IsValid(got), got)
			}
		})
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestLogContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := setupTestRouter()
	router.Use(RequestID(), LogContext(zap.New(core)))
	router.GET("/test", func(c *gin.Context) {
		logging.FromContext(c.Request.Context(), nil).Info("handled")
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name    string
		headers map[string]string
		user    any
		project any
	}{
		{
			name:    "explicit user and project",
			headers: map[string]string{HeaderUserID: "u-1", "X-Project-Id": "p-1"},
			user:    "u-1",
			project: "p-1",
		},
		{
			name:    "bearer token subject",
			headers: map[string]string{"Authorization": "Bearer " + signedToken(t, jwt.MapClaims{"sub": "u-jwt"})},
			user:    "u-jwt",
		},
		{
			name:    "raw token subject",
			headers: map[string]string{"Authorization": signedToken(t, jwt.MapClaims{"sub": "u-raw"})},
			user:    "u-raw",
		},
		{
			name:    "header wins over token",
			headers: map[string]string{HeaderUserID: "u-h", "Authorization": "Bearer " + signedToken(t, jwt.MapClaims{"sub": "u-jwt"})},
			user:    "u-h",
		},
		{
			name:    "garbage token",
			headers: map[string]string{"Authorization": "Bearer not-a-jwt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = logs.TakeAll()
			req := httptest.NewRequest("GET", "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			router.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.FilterMessage("handled").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.NotEmpty(t, fields[logging.FieldRequestID])
			assert.Equal(t, tt.user, fields[logging.FieldUserID])
			assert.Equal(t, tt.project, fields[logging.FieldProjectID])
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	router := setupTestRouter()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.Equal(t, "/boom", body.Path)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestHTTPLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := setupTestRouter()
	router.Use(LogContext(zap.New(core)), HTTPLogging(HTTPLogConfig{
		Headers:       true,
		URIIgnore:     "/probes/",
		HeadersIgnore: "^authorization$",
	}, nil))
	router.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusCreated, "text/plain", b)
	})
	router.GET("/probes/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("POST", "/echo", strings.NewReader(`{"a":1}`))
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Custom", "yes")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, `{"a":1}`, w.Body.String(), "handler still reads the full body")

	reqLog := logs.FilterMessage("HTTP request").All()
	require.Len(t, reqLog, 1)
	fields := reqLog[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, `{"a":1}`, fields["body"])
	assert.Contains(t, fields["headers"], "X-Custom: yes")
	assert.NotContains(t, fields["headers"], "Authorization: Bearer secret")
	executionID := fields[logging.FieldExecutionID]
	assert.NotEmpty(t, executionID)

	respLog := logs.FilterMessage("HTTP response").All()
	require.Len(t, respLog, 1)
	respFields := respLog[0].ContextMap()
	assert.EqualValues(t, http.StatusCreated, respFields["status"])
	assert.Equal(t, `{"a":1}`, respFields["body"])
	assert.Equal(t, executionID, respFields[logging.FieldExecutionID])

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/probes/live", nil))
	assert.Len(t, logs.FilterMessage("HTTP request").All(), 1, "ignored URIs are not logged")
}

func TestHTTPLoggingInvalidPattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := setupTestRouter()
	router.Use(HTTPLogging(HTTPLogConfig{URIIgnore: "("}, zap.New(core)))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, 1, logs.FilterMessage("Invalid HTTP logging pattern").Len())
	assert.Equal(t, 1, logs.FilterMessage("HTTP request").Len())
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestGzip(t *testing.T) {
	router := setupTestRouter()
	router.Use(Gzip())
	router.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, string(b))
	})
	router.GET("/empty", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("compressed request and response", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/echo", bytes.NewReader(gzipBytes(t, "hello")))
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("Accept-Encoding", "br, gzip")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(plain))
	})

	t.Run("identity when not accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader("plain")))
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, "plain", w.Body.String())
	})

	t.Run("gzip refused with q=0", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/echo", strings.NewReader("plain"))
		req.Header.Set("Accept-Encoding", "gzip;q=0")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
	})

	t.Run("empty body stays empty", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/empty", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, w.Body.Len())
		assert.Empty(t, w.Header().Get("Content-Encoding"))
	})

	t.Run("malformed gzip body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/echo", strings.NewReader("not gzip"))
		req.Header.Set("Content-Encoding", "gzip")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBodyLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(BodyLimit(8))
	router.POST("/read", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			var tooLarge *http.MaxBytesError
			assert.ErrorAs(t, err, &tooLarge)
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name    string
		body    string
		chunked bool
		want    int
	}{
		{"within limit", "1234", false, http.StatusOK},
		{"declared too large", "123456789", false, http.StatusRequestEntityTooLarge},
		{"streamed too large", "123456789", true, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/read", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
