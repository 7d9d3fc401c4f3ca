package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/frcomments/config"
	"github.com/cppla/frcomments/utils"
)

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret", AdminEmails: []string{"Admin@Uni.edu"}})

	r := gin.New()
	r.Use(AuthRequired())
	r.GET("/me", func(ctx *gin.Context) {
		email, _ := CurrentEmail(ctx)
		utils.Success(ctx, gin.H{"email": email, "admin": IsAdmin(ctx)})
	})
	r.GET("/admin", AdminRequired(), func(ctx *gin.Context) {
		utils.Success(ctx, nil)
	})
	return r
}

func request(r *gin.Engine, path, authHeader string) (*httptest.ResponseRecorder, utils.JSONResponse) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp utils.JSONResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestAuthRequired(t *testing.T) {
	r := setupAuthRouter()
	token, err := utils.GenerateToken("instructor@uni.edu", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   int
	}{
		{"missing header", "", http.StatusUnauthorized, 40101},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, 40102},
		{"empty token", "Bearer  ", http.StatusUnauthorized, 40103},
		{"garbage token", "Bearer abc", http.StatusUnauthorized, 40105},
		{"valid", "Bearer " + token, http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := request(r, "/me", tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestAuthRequired_SetsEmail(t *testing.T) {
	r := setupAuthRouter()
	token, err := utils.GenerateToken("instructor@uni.edu", time.Hour)
	require.NoError(t, err)

	w, _ := request(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"email":"instructor@uni.edu","admin":false}}`, w.Body.String())
}

func TestAdminRequired(t *testing.T) {
	r := setupAuthRouter()
	userToken, err := utils.GenerateToken("instructor@uni.edu", time.Hour)
	require.NoError(t, err)
	adminToken, err := utils.GenerateToken("admin@uni.edu", time.Hour)
	require.NoError(t, err)

	w, resp := request(r, "/admin", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40310, resp.Code)

	w, _ = request(r, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
