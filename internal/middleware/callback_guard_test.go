package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func guardedRouter(secret string) *gin.Engine {
	guard := NewCallbackGuard(secret, nil, zap.NewNop())
	router := gin.New()
	router.POST("/callback/:secret", guard.Guard(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCallbackGuard(t *testing.T) {
	t.Run("correct secret passes through", func(t *testing.T) {
		router := guardedRouter("s3cret")

		req := httptest.NewRequest(http.MethodPost, "/callback/s3cret", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong secret is an opaque 404", func(t *testing.T) {
		router := guardedRouter("s3cret")

		req := httptest.NewRequest(http.MethodPost, "/callback/guess", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Empty(t, rec.Body.String())
	})

	t.Run("empty configured secret disables the check", func(t *testing.T) {
		router := guardedRouter("")

		req := httptest.NewRequest(http.MethodPost, "/callback/anything", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})
}
