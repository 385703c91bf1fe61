package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obsmetrics "github.com/smallbiznis/costing/internal/observability/metrics"
	"github.com/smallbiznis/costing/internal/orgcontext"
	"github.com/smallbiznis/costing/pkg/log/ctxlogger"
	"github.com/smallbiznis/costing/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const (
	HeaderOrg       = "X-Org-Id"
	HeaderRequestID = "X-Request-Id"
	HeaderSession   = "X-Costing-Session"

	sessionCookieName = "_csid"
	contextOrgIDKey   = "org_id"
)

// RequestLogger assigns a request id, logs each request with it and records
// the HTTP metrics.
func RequestLogger(log *zap.Logger, httpMetrics *obsmetrics.Metrics) gin.HandlerFunc {
	base := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		ctx := correlation.WithRequestID(c.Request.Context(), c.GetHeader(HeaderRequestID))
		ctx, requestID := correlation.EnsureRequestID(ctx)
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		elapsed := time.Since(start)
		httpMetrics.RecordHTTPRequest(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			errorType, errorCode := classifyErrorForLog(lastErr.Err)
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
		}

		logRequest(ctxlogger.WithContext(c.Request.Context(), base), route, status, fields)
	}
}

func logRequest(log *zap.Logger, route string, status int, fields []zap.Field) {
	switch {
	case strings.EqualFold(route, "/metrics"), strings.EqualFold(route, "/health"):
		log.Debug("http_request", fields...)
	case status >= http.StatusInternalServerError:
		log.Error("http_request", fields...)
	default:
		log.Info("http_request", fields...)
	}
}

// OrgContext resolves the tenant from the X-Org-Id header, falling back to
// the configured default organization.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := s.resolveOrg(c.GetHeader(HeaderOrg))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextOrgIDKey, orgID.String())
		c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), orgID))
		c.Next()
	}
}

func (s *Server) resolveOrg(header string) (snowflake.ID, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		if s.cfg.DefaultOrgID == 0 {
			return 0, ErrUnauthorized
		}
		return snowflake.ID(s.cfg.DefaultOrgID), nil
	}

	orgID, err := parseOptionalSnowflakeID(header)
	if err != nil {
		return 0, newValidationError("org_id", "invalid_org_id", "invalid organization id")
	}
	return *orgID, nil
}

func orgIDFromContext(c *gin.Context) snowflake.ID {
	orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())
	return orgID
}

// sessionToken reads the console session token from the header or cookie.
func sessionToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(HeaderSession)); token != "" {
		return token
	}
	token, err := c.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}
