package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
)

// maxLoggedBody caps how much of each body is kept for the log line.
const maxLoggedBody = 64 << 10

// HTTPLogConfig controls request/response logging.
type HTTPLogConfig struct {
	// Headers includes request and response headers.
	Headers bool
	// URIIgnore skips requests whose full URL matches.
	URIIgnore string
	// HeadersIgnore drops matching header names, case-insensitively.
	HeadersIgnore string
}

// HTTPLogging logs every request and its response under a fresh execution
// id. Invalid ignore patterns are reported once and then disregarded.
func HTTPLogging(cfg HTTPLogConfig, fallback *zap.Logger) gin.HandlerFunc {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	uriIgnore := compileOptional(cfg.URIIgnore, "", fallback)
	headersIgnore := compileOptional(cfg.HeadersIgnore, "(?i)", fallback)

	return func(c *gin.Context) {
		if uriIgnore != nil && uriIgnore.MatchString(fullURL(c.Request)) {
			c.Next()
			return
		}

		start := time.Now()
		ctx := logging.With(c.Request.Context(), zap.String(logging.FieldExecutionID, uuid.NewString()))
		c.Request = c.Request.WithContext(ctx)
		logger := logging.FromContext(ctx, fallback)

		reqFields := []zap.Field{
			zap.String("remote_addr", c.Request.RemoteAddr),
			zap.String("proto", c.Request.Proto),
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.RequestURI()),
			zap.String("body", peekBody(c.Request)),
		}
		if cfg.Headers {
			reqFields = append(reqFields, zap.Strings("headers", formatHeaders(c.Request.Header, headersIgnore)))
		}
		logger.Info("HTTP request", reqFields...)

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture

		c.Next()

		if c.Request.Context().Err() != nil && !capture.Written() {
			logger.Warn("Client disconnected before response was sent")
			return
		}

		respFields := []zap.Field{
			zap.Int("status", capture.Status()),
			zap.Int64("response_time_ms", time.Since(start).Milliseconds()),
			zap.String("body", capture.String()),
		}
		if cfg.Headers {
			respFields = append(respFields, zap.Strings("headers", formatHeaders(capture.Header(), headersIgnore)))
		}
		logger.Info("HTTP response", respFields...)
	}
}

func compileOptional(pattern, flags string, logger *zap.Logger) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		logger.Error("Invalid HTTP logging pattern", zap.String("pattern", pattern), zap.Error(err))
		return nil
	}
	return re
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// peekBody reads the head of the request body for logging and splices it
// back so handlers still see the whole stream.
func peekBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	if err != nil {
		return ""
	}
	if enc := r.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return "<" + enc + " encoded>"
	}
	return truncate(head)
}

type readCloser struct {
	io.Reader
	io.Closer
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}

func formatHeaders(h http.Header, ignore *regexp.Regexp) []string {
	out := make([]string, 0, len(h))
	for k, v := range h {
		if ignore != nil && ignore.MatchString(k) {
			continue
		}
		out = append(out, k+": "+strings.Join(v, ", "))
	}
	sort.Strings(out)
	return out
}

// bodyCapture tees the response body into a bounded buffer.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.keep(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.keep([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *bodyCapture) keep(b []byte) {
	if room := maxLoggedBody + 1 - w.buf.Len(); room > 0 {
		if len(b) > room {
			b = b[:room]
		}
		w.buf.Write(b)
	}
}

func (w *bodyCapture) String() string {
	return truncate(w.buf.Bytes())
}
