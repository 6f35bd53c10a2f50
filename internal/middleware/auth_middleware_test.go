package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub, scope string, exp time.Time) string {
	t.Helper()
	claims := TokenClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newRouter(scopes ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewJWTMiddleware(logger.NewNop(), &DefaultTokenValidator{Secret: []byte(testSecret)})
	r := gin.New()
	r.GET("/protected", m.RequireAuth(scopes...), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)
	tests := []struct {
		name     string
		scopes   []string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", wantCode: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", "u1", "", future), wantCode: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, "u1", "", time.Now().Add(-time.Hour)), wantCode: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + signToken(t, testSecret, "", "", future), wantCode: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signToken(t, testSecret, "u1", "", future), wantCode: http.StatusOK, wantBody: "u1"},
		{name: "missing scope", scopes: []string{ScopeAdmin}, header: "Bearer " + signToken(t, testSecret, "u1", "user", future), wantCode: http.StatusForbidden},
		{name: "has scope", scopes: []string{ScopeAdmin}, header: "Bearer " + signToken(t, testSecret, "u1", "user admin", future), wantCode: http.StatusOK, wantBody: "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.scopes...)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d, body %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}
