package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/api/middleware"
	"github.com/GriffinCanCode/scriptengine/internal/domain/engine"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/monitoring"
)

// ScriptExecutor runs one script request.
type ScriptExecutor interface {
	ExecuteScript(ctx context.Context, req *engine.ScriptRequest) (*engine.ScriptResponse, error)
}

// ReadinessCheck reports whether the service can accept work.
type ReadinessCheck func() error

// Handlers contains all HTTP handlers
type Handlers struct {
	executor ScriptExecutor
	ready    ReadinessCheck
	logger   *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(executor ScriptExecutor, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{executor: executor, logger: logger}
}

// WithReadiness makes the readiness probe fail while check returns an error.
func (h *Handlers) WithReadiness(check ReadinessCheck) *Handlers {
	h.ready = check
	return h
}

// Register mounts the API and probe routes.
func (h *Handlers) Register(r gin.IRouter) {
	r.POST("/api/v1/script/execute", h.ExecuteScript)
	r.GET("/probes/live", h.Live)
	r.GET("/probes/ready", h.Ready)
}

// ExecuteScript handles POST /api/v1/script/execute.
func (h *Handlers) ExecuteScript(c *gin.Context) {
	var req engine.ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err = engine.ClassifyDecodeError(err); errors.Is(err, &engine.Error{Kind: engine.KindScopeBuild}) {
			status, name := StatusFor(err)
			h.fail(c, status, name, err)
			return
		}
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.fail(c, status, "", err)
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = c.GetHeader(monitoring.HeaderProjectID)
	}

	ctx := c.Request.Context()
	if req.Postman != nil && req.Postman.PostmanRequest.ID != "" {
		ctx = logging.With(ctx, zap.String(logging.FieldPostmanRequestID, req.Postman.PostmanRequest.ID))
		c.Request = c.Request.WithContext(ctx)
	}

	resp, err := h.executor.ExecuteScript(ctx, &req)
	if err != nil {
		status, name := StatusFor(err)
		h.fail(c, status, name, err)
		return
	}
	c.PureJSON(http.StatusOK, resp)
}

// Live always reports the process as alive.
func (h *Handlers) Live(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Ready reports whether the readiness check passes.
func (h *Handlers) Ready(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			middleware.AbortWithError(c, http.StatusServiceUnavailable, "", err.Error())
			return
		}
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) fail(c *gin.Context, status int, name string, err error) {
	logger := logging.FromContext(c.Request.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)
	middleware.AbortWithError(c, status, name, err.Error())
}
