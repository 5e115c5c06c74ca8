package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"onlearn-learner/internal/domain"
	"onlearn-learner/pkg/logging"
	"onlearn-learner/pkg/utils"
)

const (
	ctxLearnerID  = "learner_id"
	ctxCredential = "credential"
	ctxLoginPath  = "login_path"

	headerRequestID = "X-Request-ID"
)

// AuthMiddleware decodes the learner identity from the bearer token. When a
// secret is given the token signature is verified as well. Unauthenticated
// requests get 401 with a redirect to the login page.
func AuthMiddleware(loginPath, secret string) gin.HandlerFunc {
	unauthorized := func(c *gin.Context, msg string) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": loginPath})
	}

	return func(c *gin.Context) {
		c.Set(ctxLoginPath, loginPath)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Please log in.")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			unauthorized(c, "Invalid auth header format")
			return
		}
		token := parts[1]

		if secret != "" {
			if _, err := utils.ValidateJWT(token, secret); err != nil {
				unauthorized(c, "Invalid token")
				return
			}
		}

		learnerID, ok := utils.DecodeLearnerID(token)
		if !ok {
			unauthorized(c, "Please log in.")
			return
		}

		c.Set(ctxLearnerID, learnerID)
		c.Set(ctxCredential, domain.Credential{Token: token, LearnerID: learnerID})

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx, nil).With(zap.Uint("learner.id", learnerID))
		c.Request = c.Request.WithContext(logging.WithLogger(ctx, logger))
		c.Next()
	}
}

// RequestLogger tags every request with a request id and a trace logger,
// then logs the outcome.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Header(headerRequestID, rid)

		logger := base.With(zap.String("trace.id", rid))
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), logger))

		c.Next()

		code := c.Writer.Status()
		fields := []zap.Field{
			zap.String("http.request.method", c.Request.Method),
			zap.String("url.path", c.Request.URL.Path),
			zap.String("client.address", c.ClientIP()),
			zap.Int("http.response.status_code", code),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		if code >= http.StatusInternalServerError {
			logger.Warn(http.StatusText(code), fields...)
		} else {
			logger.Info(http.StatusText(code), fields...)
		}
	}
}
