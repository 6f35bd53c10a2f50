package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	grpcapi "github.com/Dhoini/affiliate-service/internal/api/grpc"
	"github.com/Dhoini/affiliate-service/internal/api/rest"
	"github.com/Dhoini/affiliate-service/internal/api/rest/handlers"
	"github.com/Dhoini/affiliate-service/internal/config"
	"github.com/Dhoini/affiliate-service/internal/interceptors"
	"github.com/Dhoini/affiliate-service/internal/kafka"
	"github.com/Dhoini/affiliate-service/internal/metrics"
	"github.com/Dhoini/affiliate-service/internal/middleware"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/internal/repository/memory"
	"github.com/Dhoini/affiliate-service/internal/repository/postgres"
	"github.com/Dhoini/affiliate-service/internal/service"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry

	service   *service.AffiliateService
	publisher service.Publisher
	checks    map[string]handlers.HealthCheck

	closers []func() error
}

// New собирает хранилища, кеш, издателя событий и сервис. Серверы запускает Run.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		log:      log,
		registry: metrics.NewRegistry(),
		checks:   make(map[string]handlers.HealthCheck),
	}

	repos, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.publisher = a.openPublisher(ctx)

	rate, err := cfg.CommissionRate()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service = service.NewAffiliateService(
		repos,
		a.publisher,
		metrics.NewAffiliateMetrics(a.registry),
		rate,
		log.Named("service"),
	)
	return a, nil
}

// Service бизнес-логика; используется CLI
func (a *App) Service() *service.AffiliateService {
	return a.service
}

func (a *App) openStorage(ctx context.Context) (service.Repositories, error) {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.log.Warnw("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return service.Repositories{Links: store, Referrals: store, Reports: store}, nil
	}

	pool, err := postgres.NewConnection(ctx, postgres.PoolConfig{
		DSN:      a.cfg.Database.DSN,
		MaxConns: a.cfg.Database.MaxConns,
	}, a.log.Named("postgres"))
	if err != nil {
		return service.Repositories{}, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	a.checks["postgres"] = pool.Ping

	if a.cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, pool, a.log.Named("migrate")); err != nil {
			return service.Repositories{}, fmt.Errorf("migrate database: %w", err)
		}
	}

	reportsDB := postgres.NewSQLX(pool)
	a.closers = append(a.closers, reportsDB.Close)

	writer := postgres.NewAffiliateRepository(pool, a.log.Named("postgres"))
	repos := service.Repositories{
		Links:     writer,
		Referrals: writer,
		Reports:   postgres.NewReportingRepository(reportsDB, a.log.Named("reporting")),
	}

	if a.cfg.Redis.Addr == "" {
		a.log.Infow("Redis address not set, link cache disabled")
		return repos, nil
	}

	cache, err := repository.NewRedisCacheRepository(ctx, repository.RedisOptions{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		TTL:      a.cfg.Redis.TTL,
	}, a.log.Named("redis"))
	if err != nil {
		// Не фатально: ссылки читаются из БД напрямую
		a.log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
		return repos, nil
	}
	a.closers = append(a.closers, cache.Close)
	a.checks["redis"] = cache.Ping
	repos.Links = repository.NewCachedLinkRepository(repos.Links, cache, a.log.Named("link-cache"))
	a.log.Infow("Using cached link repository")
	return repos, nil
}

func (a *App) openPublisher(ctx context.Context) service.Publisher {
	if !a.cfg.KafkaEnabled() {
		a.log.Infow("Kafka brokers not set, events are not published")
		return kafka.NewNoopPublisher(a.log)
	}

	if a.cfg.Kafka.EnsureTopics {
		topics := kafka.RequiredTopics(a.cfg.Kafka.LifecycleTopic)
		if err := kafka.EnsureKafkaTopics(ctx, a.cfg.Kafka.Brokers, topics, a.log.Named("kafka")); err != nil {
			a.log.Warnw("Failed to ensure Kafka topics", "error", err)
		}
	}

	producer, err := kafka.NewKafkaProducer(a.cfg.Kafka.Brokers, a.log.Named("kafka"))
	if err != nil {
		a.log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		return kafka.NewNoopPublisher(a.log)
	}
	a.closers = append(a.closers, producer.Close)
	return producer
}

// Run запускает HTTP, gRPC и consumer. Блокируется до отмены ctx или падения сервера.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator := &middleware.DefaultTokenValidator{Secret: []byte(a.cfg.Auth.JWTSecret)}

	router := rest.SetupRouter(rest.RouterDeps{
		Affiliate: handlers.NewAffiliateHandler(a.service, a.log.Named("http")),
		Health:    handlers.NewHealthHandler(a.checks),
		Auth:      middleware.NewJWTMiddleware(a.log.Named("auth"), validator),
		Registry:  a.registry,
		Log:       a.log.Named("http"),
	})
	httpServer := rest.NewServer(router, a.cfg, a.log)

	grpcServer := grpcapi.NewServer(
		a.cfg.GRPC.Port,
		a.log.Named("grpc"),
		interceptors.NewAuthInterceptor(a.log.Named("grpc"), validator).Unary(),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() { errCh <- httpServer.Start() }()
	go func() { errCh <- grpcServer.Start() }()
	go grpcServer.WatchDependencies(runCtx, 30*time.Second, a.checkAll)

	if a.cfg.KafkaEnabled() {
		consumer, err := kafka.NewLifecycleConsumer(
			kafka.NewConfig(a.cfg.Kafka.Brokers, a.cfg.Kafka.GroupID, a.cfg.Kafka.LifecycleTopic),
			a.service,
			a.log.Named("consumer"),
		)
		if err != nil {
			a.log.Errorw("Lifecycle consumer disabled", "error", err)
		} else {
			a.closers = append(a.closers, consumer.Close)
			go func() { errCh <- consumer.Run(runCtx) }()
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Infow("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			a.log.Errorw("Component stopped unexpectedly", "error", runErr)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Errorw("HTTP server shutdown error", "error", err)
	}
	grpcServer.Stop()
	return runErr
}

func (a *App) checkAll(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close дожидается фоновой отправки событий и освобождает ресурсы в обратном порядке
func (a *App) Close() {
	if a.service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), service.PublishTimeout)
		_ = a.service.WaitEvents(ctx)
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Errorw("Error closing resource", "error", err)
		}
	}
	a.closers = nil
}
