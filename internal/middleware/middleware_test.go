package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"reality-studio-backend/internal/config"
	"reality-studio-backend/internal/middleware"
)

const secret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func testConfig() *config.Config {
	return &config.Config{SupabaseJWTSecret: secret, InternalAPIKey: "bot-key"}
}

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func router(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(mw)
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": middleware.UserID(c), "internal": c.GetBool(middleware.InternalKey)})
	})
	return r
}

func do(r *gin.Engine, method string, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, "/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := router(middleware.AuthMiddleware(testConfig()))
	valid := signed(t, jwt.MapClaims{"sub": "user-123", "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(secret))
	expired := signed(t, jwt.MapClaims{"sub": "user-123", "exp": time.Now().Add(-time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(secret))
	wrongKey := signed(t, jwt.MapClaims{"sub": "user-123"}, jwt.SigningMethodHS256, []byte("another-secret"))
	noSub := signed(t, jwt.MapClaims{"role": "anon"}, jwt.SigningMethodHS256, []byte(secret))

	tests := []struct {
		name    string
		headers map[string]string
		code    int
		body    string
	}{
		{"no header", nil, http.StatusUnauthorized, "missing authorization header"},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, "invalid authorization header format"},
		{"not a jwt", map[string]string{"Authorization": "Bearer invalid-token"}, http.StatusUnauthorized, "invalid token format"},
		{"expired", map[string]string{"Authorization": "Bearer " + expired}, http.StatusUnauthorized, "token has expired"},
		{"wrong secret", map[string]string{"Authorization": "Bearer " + wrongKey}, http.StatusUnauthorized, "signature is invalid"},
		{"missing sub", map[string]string{"Authorization": "Bearer " + noSub}, http.StatusUnauthorized, "missing user id"},
		{"valid", map[string]string{"Authorization": "Bearer " + valid}, http.StatusOK, "user-123"},
		{"internal key ignored", map[string]string{middleware.InternalKeyHeader: "bot-key"}, http.StatusUnauthorized, "missing authorization header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.headers)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestInternalOrAuth(t *testing.T) {
	r := router(middleware.InternalOrAuth(testConfig()))
	valid := signed(t, jwt.MapClaims{"sub": "user-9"}, jwt.SigningMethodHS256, []byte(secret))

	w := do(r, http.MethodPost, map[string]string{middleware.InternalKeyHeader: "bot-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"internal","internal":true}`, w.Body.String())

	w = do(r, http.MethodPost, map[string]string{middleware.InternalKeyHeader: "guess"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, map[string]string{"Authorization": "Bearer " + valid})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"user-9","internal":false}`, w.Body.String())

	noKey := &config.Config{SupabaseJWTSecret: secret}
	w = do(router(middleware.InternalOrAuth(noKey)), http.MethodPost, map[string]string{middleware.InternalKeyHeader: "bot-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	r := router(middleware.AuthMiddleware(testConfig()))
	r.OPTIONS("/test", func(c *gin.Context) {})

	w := do(r, http.MethodOptions, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Internal-Key")

	w = do(r, http.MethodPost, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
