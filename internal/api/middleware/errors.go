package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// timestampLayout renders UTC timestamps with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// NewErrorResponse builds an error body for the current request. An empty
// name defaults to the status text.
func NewErrorResponse(c *gin.Context, status int, name, message string) ErrorResponse {
	if name == "" {
		name = http.StatusText(status)
	}
	return ErrorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Path:       c.Request.URL.RequestURI(),
		Error:      name,
		Message:    message,
	}
}

// AbortWithError stops the chain and writes an error body.
func AbortWithError(c *gin.Context, status int, name, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(c, status, name, message))
}
