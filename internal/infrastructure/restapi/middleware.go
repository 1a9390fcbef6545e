package restapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/presentation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "portfolio_session"
)

// RequestLogger logs every request through zap and stamps a request id.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header(requestIDHeader, reqID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// SessionMiddleware resolves the caller's session from the access token.
func SessionMiddleware(registry port.SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := registry.Session(c.Request.Context(), AccessToken(c))
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, APIErrorResponse{Error: err.Error()})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// GateMiddleware rejects requests whose session the gate does not let in. The body
// carries the screen the client shows instead.
func GateMiddleware(presenter *presentation.Presenter, landingPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionFrom(c)
		if session == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, APIErrorResponse{Error: entity.ErrProviderNotReady.Error()})
			return
		}
		err := entity.GateError(session.State().Gate)
		if err == nil {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(statusForGateError(err), APIScreenResponse{
			Data:  presenter.Header(landingPath, session),
			Error: err.Error(),
		})
	}
}

// AccessToken reads the bearer token, or the token query parameter that browsers
// use for websocket upgrades.
func AccessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.Query("token"))
}

func sessionFrom(c *gin.Context) port.PortfolioSession {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(port.PortfolioSession)
	return s
}

func statusForGateError(err error) int {
	switch {
	case errors.Is(err, entity.ErrProviderNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, entity.ErrUnauthenticated), errors.Is(err, entity.ErrIncompleteDelegation):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
