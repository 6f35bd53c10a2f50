package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/affiliate-service/internal/middleware"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const secret = "grpc-secret"

func bearer(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + s
}

func TestAuthInterceptor(t *testing.T) {
	interceptor := NewAuthInterceptor(logger.NewNop(), &middleware.DefaultTokenValidator{Secret: []byte(secret)}).Unary()

	tests := []struct {
		name     string
		method   string
		md       metadata.MD
		wantCode codes.Code
		wantUser string
	}{
		{name: "health is public", method: "/grpc.health.v1.Health/Check", wantCode: codes.OK},
		{name: "reflection is public", method: "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", wantCode: codes.OK},
		{name: "no metadata", method: "/affiliate.AffiliateService/Track", wantCode: codes.Unauthenticated},
		{name: "no header", method: "/affiliate.AffiliateService/Track", md: metadata.Pairs("x", "y"), wantCode: codes.Unauthenticated},
		{name: "not bearer", method: "/affiliate.AffiliateService/Track", md: metadata.Pairs("authorization", "Basic zzz"), wantCode: codes.Unauthenticated},
		{name: "bad token", method: "/affiliate.AffiliateService/Track", md: metadata.Pairs("authorization", "Bearer zzz"), wantCode: codes.Unauthenticated},
		{name: "valid", method: "/affiliate.AffiliateService/Track", md: metadata.Pairs("authorization", bearer(t, "u1")), wantCode: codes.OK, wantUser: "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}

			var gotUser string
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				gotUser, _ = ctx.Value(middleware.ContextUserIDKey).(string)
				return "ok", nil
			}

			_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			if code := status.Code(err); code != tt.wantCode {
				t.Fatalf("code = %s, want %s (err %v)", code, tt.wantCode, err)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
		})
	}
}
