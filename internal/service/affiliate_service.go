package service

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/metrics"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publisher отправляет доменные события во внешнюю шину (Kafka).
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Repositories набор хранилищ, с которыми работает сервис
type Repositories struct {
	Links     repository.LinkRepository
	Referrals repository.ReferralRepository
	Reports   repository.ReportingRepository
}

// AffiliateService бизнес-логика партнерской программы: ссылки, рефералы, начисления.
type AffiliateService struct {
	links     repository.LinkRepository
	referrals repository.ReferralRepository
	reports   repository.ReportingRepository
	publisher Publisher
	metrics   metrics.AffiliateMetrics
	rate      decimal.Decimal
	log       *logger.Logger

	now     func() time.Time
	newID   func() string
	newCode func() (string, error)

	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

// PublishTimeout ограничение на отправку одного события в фоне
const PublishTimeout = 5 * time.Second

// NewAffiliateService создает сервис. Нулевая ставка заменяется на DefaultCommissionRate.
func NewAffiliateService(
	repos Repositories,
	publisher Publisher,
	m metrics.AffiliateMetrics,
	rate decimal.Decimal,
	log *logger.Logger,
) *AffiliateService {
	if rate.IsZero() {
		rate = domain.DefaultCommissionRate
	}
	return &AffiliateService{
		links:     repos.Links,
		referrals: repos.Referrals,
		reports:   repos.Reports,
		publisher: publisher,
		metrics:   m,
		rate:      rate,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
		newCode:   GenerateLinkCode,

		publishTimeout: PublishTimeout,
	}
}

// publish отправляет событие в фоне после коммита. Ответ клиенту не ждет шину,
// а отмена запроса не отменяет отправку.
func (s *AffiliateService) publish(ctx context.Context, topic, key string, payload any) {
	if s.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, topic, key, payload); err != nil {
			s.log.Warnw("Failed to publish event", "topic", topic, "key", key, "error", err)
		}
	}()
}

// WaitEvents ждет завершения фоновых отправок или отмены ctx. Вызывается при остановке.
func (s *AffiliateService) WaitEvents(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warnw("Pending events were not delivered before shutdown", "error", ctx.Err())
		return ctx.Err()
	}
}

func requireActor(actorID string) error {
	if actorID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}
