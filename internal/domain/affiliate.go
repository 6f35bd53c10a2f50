package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReferralStatus статус реферала, повторяет статус подписки
type ReferralStatus string

const (
	ReferralStatusActive    ReferralStatus = "active"
	ReferralStatusCancelled ReferralStatus = "cancelled"
	ReferralStatusSuspended ReferralStatus = "suspended"
)

// ParseReferralStatus проверяет, что статус входит в допустимый набор.
func ParseReferralStatus(s string) (ReferralStatus, error) {
	switch ReferralStatus(s) {
	case ReferralStatusActive, ReferralStatusCancelled, ReferralStatusSuspended:
		return ReferralStatus(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// PaymentStatus статус комиссионной выплаты за период
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusPaid      PaymentStatus = "paid"
)

// ParsePaymentStatus пустая строка означает "любой статус".
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case "", PaymentStatusPending, PaymentStatusCancelled, PaymentStatusPaid:
		return PaymentStatus(s), nil
	default:
		return "", fmt.Errorf("invalid payment status %q: %w", s, ErrInvalidInput)
	}
}

// LinkEventKind тип события по партнерской ссылке
type LinkEventKind string

const (
	LinkEventClick      LinkEventKind = "click"
	LinkEventConversion LinkEventKind = "conversion"
)

// AffiliateLink партнерская ссылка пользователя.
// Счетчики не хранятся в строке, они считаются по affiliate_link_events.
type AffiliateLink struct {
	ID          string    `db:"id" json:"id"`
	OwnerUserID string    `db:"owner_user_id" json:"owner_user_id"`
	Code        string    `db:"code" json:"code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// LinkEvent неизменяемая запись о клике или конверсии.
type LinkEvent struct {
	ID         string          `db:"id" json:"id"`
	LinkID     string          `db:"link_id" json:"link_id"`
	Kind       LinkEventKind   `db:"kind" json:"kind"`
	ReferralID *string         `db:"referral_id" json:"referral_id,omitempty"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// LinkStats агрегаты по ссылке, вычисленные при чтении.
type LinkStats struct {
	LinkID      string          `db:"link_id" json:"link_id"`
	Code        string          `db:"code" json:"code"`
	Clicks      int64           `db:"clicks" json:"clicks"`
	Conversions int64           `db:"conversions" json:"conversions"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
}

// LinkWithStats ссылка вместе с агрегатами, для списка ссылок пользователя.
type LinkWithStats struct {
	AffiliateLink
	Clicks      int64           `json:"clicks"`
	Conversions int64           `json:"conversions"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// AffiliateReferral привязка подписки к партнеру. Не более одной на subscription_id.
type AffiliateReferral struct {
	ID             string          `db:"id" json:"id"`
	OwnerUserID    string          `db:"owner_user_id" json:"owner_user_id"`
	ReferredUserID string          `db:"referred_user_id" json:"referred_user_id"`
	LinkID         string          `db:"link_id" json:"link_id"`
	SubscriptionID string          `db:"subscription_id" json:"subscription_id"`
	PlanName       string          `db:"plan_name" json:"plan_name"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Commission     decimal.Decimal `db:"commission" json:"commission"`
	Status         ReferralStatus  `db:"status" json:"subscription_status"`
	IsRecurring    bool            `db:"is_recurring" json:"is_recurring"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// CommissionPayment начисление за один расчетный период. Не более одного на (referral_id, period_start).
type CommissionPayment struct {
	ID               string          `db:"id" json:"id"`
	ReferralID       string          `db:"referral_id" json:"referral_id"`
	AffiliateUserID  string          `db:"affiliate_user_id" json:"affiliate_user_id"`
	SubscriptionID   string          `db:"subscription_id" json:"subscription_id"`
	CommissionAmount decimal.Decimal `db:"commission_amount" json:"commission_amount"`
	CommissionRate   decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	PeriodStart      time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd        time.Time       `db:"period_end" json:"period_end"`
	Status           PaymentStatus   `db:"status" json:"status"`
	Notes            string          `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
