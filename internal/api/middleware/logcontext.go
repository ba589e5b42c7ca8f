package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/monitoring"
)

// HeaderUserID names the caller explicitly; otherwise the bearer token's
// subject is used.
const HeaderUserID = "X-User-Id"

// LogContext stores a request logger in the request context, tagged with
// the request, project and user ids.
func LogContext(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.NewNop()
	}
	return func(c *gin.Context) {
		fields := make([]zap.Field, 0, 3)
		if rid := GetRequestID(c); rid != "" {
			fields = append(fields, zap.String(logging.FieldRequestID, rid))
		}
		if project := c.GetHeader(monitoring.HeaderProjectID); project != "" {
			fields = append(fields, zap.String(logging.FieldProjectID, project))
		}
		if user := userID(c); user != "" {
			fields = append(fields, zap.String(logging.FieldUserID, user))
		}

		ctx := logging.WithLogger(c.Request.Context(), base.With(fields...))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	if user := c.GetHeader(HeaderUserID); user != "" {
		return user
	}
	return tokenSubject(c.GetHeader("Authorization"))
}

// tokenSubject reads the sub claim without verifying the signature. The
// value is only used to label logs.
func tokenSubject(authorization string) string {
	token := strings.TrimSpace(authorization)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
