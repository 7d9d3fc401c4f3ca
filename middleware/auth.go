package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/frcomments/config"
	"github.com/cppla/frcomments/utils"
)

// ContextEmailKey is the Gin context key holding the authenticated instructor's course email.
const ContextEmailKey = "email"

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextEmailKey, claims.Email)
		ctx.Next()
	}
}

// AdminRequired allows only emails listed in AdminEmails. Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(ctx) {
			utils.Error(ctx, http.StatusForbidden, 40310, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentEmail returns the authenticated email, if any.
func CurrentEmail(ctx *gin.Context) (string, bool) {
	email := ctx.GetString(ContextEmailKey)
	return email, email != ""
}

// IsAdmin reports whether the authenticated email is configured as an admin.
func IsAdmin(ctx *gin.Context) bool {
	email, ok := CurrentEmail(ctx)
	if !ok {
		return false
	}
	for _, admin := range config.Get().AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return true
		}
	}
	return false
}
