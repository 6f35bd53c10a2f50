package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Dhoini/affiliate-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName имя сервиса в grpc.health.v1
const ServiceName = "affiliate.AffiliateService"

// Server gRPC сервер: health и reflection
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        *logger.Logger
	port       string
}

// NewServer создает новый gRPC сервер
func NewServer(port string, log *logger.Logger, interceptors ...grpc.UnaryServerInterceptor) *Server {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     5 * time.Minute,
		MaxConnectionAge:      time.Hour,
		MaxConnectionAgeGrace: 5 * time.Minute,
		Time:                  2 * time.Minute,
		Timeout:               20 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(kaParams),
		grpc.ChainUnaryInterceptor(interceptors...),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Включаем reflection для отладки (grpcurl)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		port:       port,
	}
}

// SetServing выставляет статус сервиса в health
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// WatchDependencies периодически выполняет check и обновляет статус health до отмены ctx
func (s *Server) WatchDependencies(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		err := check(checkCtx)
		cancel()
		if err != nil {
			s.log.Warnw("Dependency check failed", "error", err)
		}
		s.SetServing(err == nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Start запускает gRPC сервер
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve обслуживает запросы на переданном listener
func (s *Server) Serve(listener net.Listener) error {
	s.SetServing(true)
	s.log.Infow("Starting gRPC server", "addr", listener.Addr().String())

	if err := s.grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop останавливает gRPC сервер
func (s *Server) Stop() {
	s.log.Infow("Stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
