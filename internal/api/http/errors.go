package http

import (
	"net/http"

	"github.com/GriffinCanCode/scriptengine/internal/domain/engine"
)

// StatusFor maps an execution failure to an HTTP status and the error name
// reported in the body. Unclassified errors are internal errors.
func StatusFor(err error) (int, string) {
	kind, ok := engine.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
	switch kind {
	case engine.KindScopeBuild:
		return http.StatusBadRequest, string(kind)
	case engine.KindSandboxTimeout:
		return http.StatusGatewayTimeout, string(kind)
	default:
		return http.StatusInternalServerError, string(kind)
	}
}
