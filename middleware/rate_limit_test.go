package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/frcomments/config"
)

func TestRateLimitMiddleware_PerEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "x", RateLimitPerMinute: 2})

	newRouter := func(email string) *gin.Engine {
		r := gin.New()
		r.Use(func(ctx *gin.Context) {
			ctx.Set(ContextEmailKey, email)
			ctx.Next()
		})
		r.Use(RateLimitMiddleware())
		r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
		return r
	}
	hit := func(r *gin.Engine) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w.Code
	}

	busy := newRouter("busy-rate-test@uni.edu")
	assert.Equal(t, http.StatusNoContent, hit(busy))
	assert.Equal(t, http.StatusTooManyRequests, hit(busy))

	// a different caller has its own bucket
	assert.Equal(t, http.StatusNoContent, hit(newRouter("quiet-rate-test@uni.edu")))
}
