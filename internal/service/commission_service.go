package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
)

// AccrualResult итог ежемесячного начисления
type AccrualResult struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Examined    int       `json:"examined"`
	Created     int       `json:"created"`
}

// AccrueCommissions создает pending-начисления за период для всех активных рекуррентных рефералов.
// Повторный запуск за тот же период ничего не создает.
func (s *AffiliateService) AccrueCommissions(ctx context.Context, period domain.Period) (*AccrualResult, error) {
	refs, err := s.reports.ListActiveRecurringReferrals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring referrals: %w", err)
	}

	now := s.now()
	payments := s.pendingPaymentsFor(period, now)(refs)
	created, err := s.referrals.InsertPendingPayments(ctx, payments)
	if err != nil {
		s.log.Errorw("Commission accrual failed", "error", err, "periodStart", period.Start, "created", created)
		return nil, fmt.Errorf("insert pending payments: %w", err)
	}

	s.metrics.AddCommissionsAccrued(created)
	s.log.Infow("Commissions accrued", "periodStart", period.Start, "examined", len(refs), "created", created)

	s.publish(ctx, domain.TopicCommissionAccrued, period.Start.Format("2006-01"), domain.CommissionAccruedEvent{
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Examined:    len(refs),
		Created:     created,
		OccurredAt:  now,
	})

	return &AccrualResult{
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Examined:    len(refs),
		Created:     created,
	}, nil
}

// ListMyReferrals рефералы, приведенные пользователем
func (s *AffiliateService) ListMyReferrals(ctx context.Context, actorID string) ([]domain.AffiliateReferral, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	refs, err := s.reports.ListReferralsByOwner(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return refs, nil
}

// ListMyCommissions начисления пользователя, опционально по статусу
func (s *AffiliateService) ListMyCommissions(ctx context.Context, actorID, status string) ([]domain.CommissionPayment, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	st, err := domain.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}

	payments, err := s.reports.ListPaymentsByAffiliate(ctx, actorID, st)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	return payments, nil
}
