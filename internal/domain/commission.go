package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate фиксированная ставка партнерской комиссии (20%).
var DefaultCommissionRate = decimal.RequireFromString("0.20")

// MaxAmount верхняя граница суммы подписки (колонки NUMERIC(12,2))
var MaxAmount = decimal.New(1, 10)

// CalculateCommission возвращает amount × rate, округленное до центов (half-up).
func CalculateCommission(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(2)
}

// Period расчетный период комиссии: календарный месяц в UTC.
type Period struct {
	Start time.Time `json:"period_start"`
	End   time.Time `json:"period_end"`
}

// PeriodFor возвращает границы месяца month года year.
func PeriodFor(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Period{Start: start, End: end}
}

// CurrentPeriod возвращает месяц, содержащий момент now.
func CurrentPeriod(now time.Time) Period {
	now = now.UTC()
	return PeriodFor(now.Year(), now.Month())
}

// Contains проверяет, попадает ли t в период.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// NewPendingPayment собирает запись о начислении за период для реферала.
func NewPendingPayment(id string, ref AffiliateReferral, rate decimal.Decimal, p Period, now time.Time) CommissionPayment {
	return CommissionPayment{
		ID:               id,
		ReferralID:       ref.ID,
		AffiliateUserID:  ref.OwnerUserID,
		SubscriptionID:   ref.SubscriptionID,
		CommissionAmount: ref.Commission,
		CommissionRate:   rate,
		PeriodStart:      p.Start,
		PeriodEnd:        p.End,
		Status:           PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
