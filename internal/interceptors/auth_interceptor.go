package interceptors

import (
	"context"
	"strings"

	"github.com/Dhoini/affiliate-service/internal/middleware"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Методы, доступные без токена
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

// AuthInterceptor проверяет JWT в метаданных gRPC-запроса
type AuthInterceptor struct {
	log       *logger.Logger
	validator middleware.TokenValidator
}

// NewAuthInterceptor создает интерцептор
func NewAuthInterceptor(log *logger.Logger, validator middleware.TokenValidator) *AuthInterceptor {
	return &AuthInterceptor{
		log:       log,
		validator: validator,
	}
}

// Unary возвращает UnaryServerInterceptor для проверки JWT.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		userID, err := i.authenticate(ctx)
		if err != nil {
			i.log.Warnw("gRPC authentication failed", "method", info.FullMethod, "error", err)
			return nil, err
		}

		newCtx := context.WithValue(ctx, middleware.ContextUserIDKey, userID)
		i.log.Debugw("User authenticated via gRPC", "userID", userID, "method", info.FullMethod)
		return handler(newCtx, req)
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}

	authHeader := authHeaders[0]
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization header format")
	}

	claims, err := i.validator.Validate(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return "", status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	if claims.Subject == "" {
		return "", status.Error(codes.Unauthenticated, "user ID (sub) missing in token")
	}
	return claims.Subject, nil
}

func isPublic(method string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}
