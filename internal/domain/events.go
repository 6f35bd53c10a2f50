package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Топики Kafka, которые публикует и читает сервис
const (
	TopicReferralTracked       = "referral.tracked"
	TopicStatusPropagated      = "subscription.status_propagated"
	TopicCommissionAccrued     = "commission.accrued"
	TopicSubscriptionLifecycle = "subscription.lifecycle"
)

// ReferralTrackedEvent публикуется после засчитывания нового реферала
type ReferralTrackedEvent struct {
	ReferralID     string          `json:"referral_id"`
	AffiliateID    string          `json:"affiliate_user_id"`
	ReferredUserID string          `json:"referred_user_id"`
	SubscriptionID string          `json:"subscription_id"`
	Amount         decimal.Decimal `json:"amount"`
	Commission     decimal.Decimal `json:"commission"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// StatusPropagatedEvent публикуется после смены статуса подписки
type StatusPropagatedEvent struct {
	SubscriptionID    string         `json:"subscription_id"`
	Status            ReferralStatus `json:"status"`
	UpdatedReferrals  int            `json:"updated_referrals"`
	CancelledPayments int            `json:"cancelled_payments"`
	CreatedPayments   int            `json:"created_payments"`
	OccurredAt        time.Time      `json:"occurred_at"`
}

// CommissionAccruedEvent публикуется после ежемесячного начисления
type CommissionAccruedEvent struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Examined    int       `json:"examined"`
	Created     int       `json:"created"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SubscriptionLifecycleEvent входящее событие от биллинга
type SubscriptionLifecycleEvent struct {
	SubscriptionID string    `json:"subscription_id" validate:"required"`
	Status         string    `json:"status" validate:"required,oneof=active cancelled suspended"`
	OccurredAt     time.Time `json:"occurred_at"`
}
