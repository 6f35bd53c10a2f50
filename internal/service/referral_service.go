package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/metrics"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/shopspring/decimal"
)

const cancelNote = "Subscription cancelled"

// TrackReferralInput данные для засчитывания реферала
type TrackReferralInput struct {
	AffiliateCode      string
	SubscriptionID     string
	SubscriptionAmount decimal.Decimal
	PlanName           string
}

// TrackReferralResult итог TrackReferral. AlreadyTracked=true означает, что подписка была засчитана раньше.
type TrackReferralResult struct {
	Referral       domain.AffiliateReferral
	AlreadyTracked bool
}

// ResolveLink находит партнерскую ссылку по коду. Коды чувствительны к регистру.
func (s *AffiliateService) ResolveLink(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		var verrs domain.ValidationErrors
		verrs.Add("affiliate_code", "is required")
		return nil, verrs
	}

	link, err := s.links.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("resolve link: %w", err)
	}
	return link, nil
}

// TrackReferral засчитывает подписку партнеру: реферал, первое начисление и конверсия пишутся атомарно.
func (s *AffiliateService) TrackReferral(ctx context.Context, actorID string, in TrackReferralInput) (*TrackReferralResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	in.AffiliateCode = strings.TrimSpace(in.AffiliateCode)
	in.SubscriptionID = strings.TrimSpace(in.SubscriptionID)

	var verrs domain.ValidationErrors
	if in.AffiliateCode == "" {
		verrs.Add("affiliate_code", "is required")
	}
	if in.SubscriptionID == "" {
		verrs.Add("subscription_id", "is required")
	}
	amount := in.SubscriptionAmount.Round(2)
	switch {
	case !amount.IsPositive():
		verrs.Add("subscription_amount", "must be at least 0.01")
	case amount.GreaterThanOrEqual(domain.MaxAmount):
		verrs.Add("subscription_amount", "must be less than "+domain.MaxAmount.String())
	}
	if verrs.HasErrors() {
		s.metrics.IncReferralTracked(metrics.ResultRejected)
		return nil, verrs
	}

	link, err := s.ResolveLink(ctx, in.AffiliateCode)
	if err != nil {
		s.metrics.IncReferralTracked(metrics.ResultRejected)
		return nil, err
	}
	if link.OwnerUserID == actorID {
		s.metrics.IncReferralTracked(metrics.ResultRejected)
		return nil, domain.ErrSelfReferral
	}

	now := s.now()
	referral := domain.AffiliateReferral{
		ID:             s.newID(),
		OwnerUserID:    link.OwnerUserID,
		ReferredUserID: actorID,
		LinkID:         link.ID,
		SubscriptionID: in.SubscriptionID,
		PlanName:       in.PlanName,
		Amount:         amount,
		Commission:     domain.CalculateCommission(amount, s.rate),
		Status:         domain.ReferralStatusActive,
		IsRecurring:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	referralID := referral.ID

	stored, created, err := s.referrals.RecordReferral(ctx, repository.ReferralRecord{
		Referral: referral,
		Payment:  domain.NewPendingPayment(s.newID(), referral, s.rate, domain.CurrentPeriod(now), now),
		Conversion: domain.LinkEvent{
			ID:         s.newID(),
			LinkID:     link.ID,
			Kind:       domain.LinkEventConversion,
			ReferralID: &referralID,
			Amount:     amount,
			CreatedAt:  now,
		},
	})
	if err != nil {
		s.log.Errorw("Failed to record referral", "error", err, "subscriptionID", in.SubscriptionID)
		return nil, fmt.Errorf("record referral: %w", err)
	}

	if !created {
		s.metrics.IncReferralTracked(metrics.ResultAlreadyTracked)
		s.log.Infow("Referral already tracked", "subscriptionID", in.SubscriptionID, "referralID", stored.ID)
		return &TrackReferralResult{Referral: *stored, AlreadyTracked: true}, nil
	}

	s.metrics.IncReferralTracked(metrics.ResultCreated)
	s.metrics.ObserveCommission(stored.Commission.InexactFloat64())
	s.log.Infow("Referral tracked",
		"referralID", stored.ID,
		"affiliateUserID", stored.OwnerUserID,
		"subscriptionID", stored.SubscriptionID,
		"commission", stored.Commission.StringFixed(2),
	)

	s.publish(ctx, domain.TopicReferralTracked, stored.SubscriptionID, domain.ReferralTrackedEvent{
		ReferralID:     stored.ID,
		AffiliateID:    stored.OwnerUserID,
		ReferredUserID: stored.ReferredUserID,
		SubscriptionID: stored.SubscriptionID,
		Amount:         stored.Amount,
		Commission:     stored.Commission,
		OccurredAt:     now,
	})
	return &TrackReferralResult{Referral: *stored}, nil
}

// UpdateSubscriptionStatus переносит статус подписки на рефералы и pending-начисления.
// Отсутствие рефералов по подписке не ошибка: UpdatedReferrals будет 0.
func (s *AffiliateService) UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string) (repository.StatusChangeResult, error) {
	var result repository.StatusChangeResult

	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		var verrs domain.ValidationErrors
		verrs.Add("subscription_id", "is required")
		return result, verrs
	}
	newStatus, err := domain.ParseReferralStatus(strings.TrimSpace(status))
	if err != nil {
		return result, err
	}

	now := s.now()
	change := repository.StatusChange{SubscriptionID: subscriptionID, Status: newStatus}
	switch newStatus {
	case domain.ReferralStatusCancelled:
		change.CancelNote = cancelNote
	case domain.ReferralStatusActive:
		change.Reactivate = s.pendingPaymentsFor(domain.CurrentPeriod(now), now)
	}

	result, err = s.referrals.PropagateStatus(ctx, change)
	if err != nil {
		s.log.Errorw("Failed to propagate subscription status", "error", err, "subscriptionID", subscriptionID, "status", newStatus)
		return result, fmt.Errorf("propagate status: %w", err)
	}

	s.metrics.IncStatusPropagation(string(newStatus))
	s.log.Infow("Subscription status propagated",
		"subscriptionID", subscriptionID,
		"status", newStatus,
		"updatedReferrals", result.UpdatedReferrals,
		"cancelledPayments", result.CancelledPayments,
		"createdPayments", result.CreatedPayments,
	)

	if result.UpdatedReferrals > 0 {
		s.publish(ctx, domain.TopicStatusPropagated, subscriptionID, domain.StatusPropagatedEvent{
			SubscriptionID:    subscriptionID,
			Status:            newStatus,
			UpdatedReferrals:  result.UpdatedReferrals,
			CancelledPayments: result.CancelledPayments,
			CreatedPayments:   result.CreatedPayments,
			OccurredAt:        now,
		})
	}
	return result, nil
}

// ListReferralsBySubscription возвращает рефералы подписки (возможно, пустой список)
func (s *AffiliateService) ListReferralsBySubscription(ctx context.Context, subscriptionID string) ([]domain.AffiliateReferral, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		var verrs domain.ValidationErrors
		verrs.Add("subscription_id", "is required")
		return nil, verrs
	}

	refs, err := s.reports.ListReferralsBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return refs, nil
}

// pendingPaymentsFor строит начисления за период для рекуррентных рефералов
func (s *AffiliateService) pendingPaymentsFor(period domain.Period, now time.Time) repository.PaymentBuilder {
	return func(refs []domain.AffiliateReferral) []domain.CommissionPayment {
		out := make([]domain.CommissionPayment, 0, len(refs))
		for _, ref := range refs {
			if !ref.IsRecurring {
				continue
			}
			out = append(out, domain.NewPendingPayment(s.newID(), ref, s.rate, period, now))
		}
		return out
	}
}
