package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/Dhoini/affiliate-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте (HTTP middleware и gRPC interceptor).
	ContextUserIDKey ContextKey = "userID"
	// ContextScopesKey ключ для scope токена
	ContextScopesKey ContextKey = "scopes"

	authHeaderPrefix = "Bearer "

	// ScopeAdmin scope для служебных операций (ежемесячное начисление)
	ScopeAdmin = "admin"
)

// TokenValidator проверяет подпись и срок действия токена
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims claims токена; scope перечисляется через пробел
type TokenClaims struct {
	UserEmail string `json:"email"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// Scopes возвращает scope токена списком
func (c *TokenClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// JWTMiddleware аутентификация запросов по Bearer токену
type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

// NewJWTMiddleware создает middleware
func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth пропускает запрос только с валидным токеном; при указании scopes требуется хотя бы один из них.
func (m *JWTMiddleware) RequireAuth(requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, authHeaderPrefix) {
			m.handleAuthError(c, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, http.StatusUnauthorized, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		userID := claims.Subject
		if userID == "" {
			m.handleAuthError(c, http.StatusUnauthorized, "User ID (sub) missing in token")
			return
		}

		if !hasRequiredScope(claims.Scopes(), requiredScopes) {
			m.handleAuthError(c, http.StatusForbidden, "Insufficient token permissions")
			return
		}

		c.Set(string(ContextUserIDKey), userID)
		c.Set(string(ContextScopesKey), claims.Scopes())
		m.log.Debugw("User authenticated via HTTP", "userID", userID)
		c.Next()
	}
}

// UserID возвращает ID пользователя, выставленный RequireAuth
func UserID(c *gin.Context) string {
	return c.GetString(string(ContextUserIDKey))
}

func hasRequiredScope(tokenScopes, requiredScopes []string) bool {
	if len(requiredScopes) == 0 {
		return true
	}
	for _, required := range requiredScopes {
		for _, scope := range tokenScopes {
			if scope == required {
				return true
			}
		}
	}
	return false
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, status int, message string) {
	res.JsonErrorResponse(c, res.ErrorResponse{Error: message}, status, m.log)
}

// DefaultTokenValidator проверяет HMAC-подписанные токены общим секретом.
type DefaultTokenValidator struct {
	Secret []byte
}

// Validate разбирает и проверяет токен
func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}
