package engine

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
	"github.com/GriffinCanCode/scriptengine/internal/shared/utils"
)

// MetricsRecorder receives per-project payload and context sizes, and the
// number of cookies skipped as unparsable.
type MetricsRecorder interface {
	RecordContextSize(projectID string, count int)
	RecordRequestSize(projectID string, bytes int)
	RecordResponseSize(projectID string, bytes int)
	RecordSkippedCookies(projectID string, count int)
}

// Config holds execution limits.
type Config struct {
	// ExecutionTimeout bounds one sandbox run. Zero waits indefinitely.
	ExecutionTimeout time.Duration
	// LockCacheSize bounds how many idle script fingerprints are remembered.
	LockCacheSize int
}

// Service executes scripts. Runs of textually identical scripts are
// serialized; different scripts run in parallel.
type Service struct {
	gate    *Gate
	adapter *Adapter
	config  Config
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  *tracing.Tracer
}

// NewService creates a service driving sbx.
func NewService(sbx sandbox.Sandbox, cfg Config) *Service {
	return &Service{
		gate:    NewGate(cfg.LockCacheSize),
		adapter: NewAdapter(sbx, nil),
		config:  cfg,
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the fallback logger used when a request carries none.
func (s *Service) WithLogger(logger *zap.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics adds size metrics.
func (s *Service) WithMetrics(metrics MetricsRecorder) *Service {
	s.metrics = metrics
	return s
}

// WithTracer records a span per execution.
func (s *Service) WithTracer(tracer *tracing.Tracer) *Service {
	s.tracer = tracer
	return s
}

// WithBreaker guards sandbox context creation.
func (s *Service) WithBreaker(breaker *resilience.Breaker) *Service {
	s.adapter.breaker = breaker
	return s
}

// ExecuteScript runs req's script against its scripting context and returns
// the mutated context with captured test results and console output.
func (s *Service) ExecuteScript(ctx context.Context, req *ScriptRequest) (resp *ScriptResponse, err error) {
	if req == nil || req.Postman == nil {
		return nil, newError(KindScopeBuild, "scripting context is missing", nil)
	}

	hash := Fingerprint(req.Script)
	ctx = logging.With(ctx, zap.String(logging.FieldScriptHash, utils.Short(hash)))
	logger := logging.FromContext(ctx, s.logger)

	if s.tracer != nil {
		var span *tracing.Span
		span, ctx = s.tracer.StartSpan(ctx, "script.execute")
		span.SetTag("script_hash", utils.Short(hash))
		span.SetTag("project_id", req.ProjectID)
		defer func() {
			if err != nil {
				span.SetError(err)
			}
			span.Finish()
			s.tracer.Submit(span)
		}()
	}

	logger.Info("Executing script", zap.String("project_id", req.ProjectID))
	logger.Debug("Script text", zap.String("script", req.Script))

	err = s.gate.Do(ctx, hash, func() error {
		resp, err = s.execute(ctx, req, logger)
		return err
	})
	if err != nil {
		if _, ok := KindOf(err); !ok {
			// the gate gave up waiting; the script never ran
			err = newError(KindSandboxExecution, "waiting for a concurrent run of the same script", err)
		}
		logger.Warn("Script execution failed", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *Service) execute(ctx context.Context, req *ScriptRequest, logger *zap.Logger) (*ScriptResponse, error) {
	scopes, err := BuildScopes(req.Postman, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Scopes initialized", zap.Int("count", scopes.Count()))
	if s.metrics != nil {
		s.metrics.RecordContextSize(req.ProjectID, scopes.Count())
	}

	execCtx, cookieErrs := Assemble(req.Postman, scopes, logger)
	if s.metrics != nil && len(cookieErrs) > 0 {
		s.metrics.RecordSkippedCookies(req.ProjectID, len(cookieErrs))
	}
	if ce := logger.Check(zap.DebugLevel, "Execution context"); ce != nil {
		ce.Write(zap.String("request", dump(req.Postman.PostmanRequest)), zap.String("response", dump(req.Postman.PostmanResponse)))
	}

	runCtx := ctx
	if s.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.ExecutionTimeout)
		defer cancel()
	}

	outcome, err := s.adapter.Run(runCtx, execCtx, req.Script, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Script executed", zap.Int("tests", len(outcome.TestResults)), zap.Int("console_logs", len(outcome.ConsoleLogs)))
	logger.Debug("Execution finished", zap.Duration("duration", outcome.Duration), zap.Int("script_size", len(req.Script)))

	postman := Convert(req.Postman, outcome.Result)
	if s.metrics != nil {
		s.metrics.RecordRequestSize(req.ProjectID, jsonSize(postman.PostmanRequest))
		if postman.PostmanResponse != nil {
			s.metrics.RecordResponseSize(req.ProjectID, jsonSize(postman.PostmanResponse))
		} else {
			s.metrics.RecordResponseSize(req.ProjectID, 0)
		}
	}

	resp := &ScriptResponse{
		Postman:        postman,
		TestResults:    outcome.TestResults,
		ConsoleLogs:    outcome.ConsoleLogs,
		HasNextRequest: outcome.HasNextRequest,
		NextRequest:    outcome.NextRequest,
	}
	logger.Info("Test results collected", zap.Int("count", len(resp.TestResults)))
	return resp, nil
}

func jsonSize(v any) int {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

func dump(v any) string {
	s, err := sonic.ConfigStd.MarshalToString(v)
	if err != nil {
		return err.Error()
	}
	return s
}
