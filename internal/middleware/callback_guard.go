// internal/middleware/callback_guard.go
package middleware

import (
	"crypto/subtle"
	"net/http"

	"fanclash-service/internal/mpesa"
	"fanclash-service/internal/pkg/throttle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallbackGuard protects the public callback routes. The gateway cannot
// authenticate, so the registered URLs carry a shared secret as their last
// path segment; anything that doesn't know it gets a plain 404. A per-IP
// throttle keeps third parties from probing the endpoint.
type CallbackGuard struct {
	secret  string
	limiter *throttle.Limiter
	logger  *zap.Logger
}

func NewCallbackGuard(secret string, limiter *throttle.Limiter, logger *zap.Logger) *CallbackGuard {
	return &CallbackGuard{secret: secret, limiter: limiter, logger: logger}
}

func (g *CallbackGuard) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.secret != "" {
			provided := c.Param("secret")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(g.secret)) != 1 {
				g.logger.Warn("callback with bad secret",
					zap.String("client_ip", c.ClientIP()),
				)
				c.AbortWithStatus(http.StatusNotFound)
				return
			}
		}

		if g.limiter != nil && !g.limiter.Allow(c.Request.Context(), c.ClientIP()) {
			// Throttled requests still get a gateway-format body; a genuine
			// but over-eager redelivery should back off, not error out.
			c.AbortWithStatusJSON(http.StatusTooManyRequests, mpesa.AckRejected)
			return
		}

		c.Next()
	}
}
