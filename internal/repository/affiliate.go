package repository

import (
	"context"

	"github.com/Dhoini/affiliate-service/internal/domain"
)

// LinkRepository определяет методы для работы с партнерскими ссылками.
type LinkRepository interface {
	// CreateLink сохраняет новую ссылку. ErrDuplicate, если код или владелец уже заняты.
	CreateLink(ctx context.Context, link *domain.AffiliateLink) error

	// GetLinkByCode возвращает ссылку по коду или ErrNotFound.
	GetLinkByCode(ctx context.Context, code string) (*domain.AffiliateLink, error)

	// GetLinkByOwner возвращает ссылку пользователя или ErrNotFound.
	GetLinkByOwner(ctx context.Context, ownerUserID string) (*domain.AffiliateLink, error)

	// AppendLinkEvent добавляет событие клика/конверсии. Только вставка.
	AppendLinkEvent(ctx context.Context, ev *domain.LinkEvent) error
}

// ReferralRecord то, что пишется одной транзакцией при засчитывании реферала.
type ReferralRecord struct {
	Referral   domain.AffiliateReferral
	Payment    domain.CommissionPayment
	Conversion domain.LinkEvent
}

// PaymentBuilder строит начисления для рефералов внутри транзакции смены статуса.
type PaymentBuilder func(refs []domain.AffiliateReferral) []domain.CommissionPayment

// StatusChange описывает смену статуса подписки.
type StatusChange struct {
	SubscriptionID string
	Status         domain.ReferralStatus
	// CancelNote заполняется только при отмене: pending-начисления получают этот комментарий.
	CancelNote string
	// Reactivate вызывается при возобновлении, результат вставляется идемпотентно.
	Reactivate PaymentBuilder
}

// StatusChangeResult итог смены статуса.
type StatusChangeResult struct {
	UpdatedReferrals  int
	CancelledPayments int
	CreatedPayments   int
}

// ReferralRepository пишущая часть: рефералы и начисления.
type ReferralRepository interface {
	// RecordReferral атомарно вставляет реферал, первое начисление и событие конверсии.
	// Если реферал по subscription_id уже есть, ничего не пишет и возвращает существующий с created=false.
	RecordReferral(ctx context.Context, rec ReferralRecord) (ref *domain.AffiliateReferral, created bool, err error)

	// GetReferralBySubscription возвращает реферал подписки или ErrNotFound.
	GetReferralBySubscription(ctx context.Context, subscriptionID string) (*domain.AffiliateReferral, error)

	// PropagateStatus атомарно применяет смену статуса к рефералам и начислениям.
	PropagateStatus(ctx context.Context, change StatusChange) (StatusChangeResult, error)

	// InsertPendingPayments вставляет начисления, пропуская уже существующие за тот же период.
	InsertPendingPayments(ctx context.Context, payments []domain.CommissionPayment) (created int, err error)
}

// ReportingRepository читающая часть: списки и агрегаты.
type ReportingRepository interface {
	ListReferralsBySubscription(ctx context.Context, subscriptionID string) ([]domain.AffiliateReferral, error)
	ListReferralsByOwner(ctx context.Context, ownerUserID string) ([]domain.AffiliateReferral, error)
	ListActiveRecurringReferrals(ctx context.Context) ([]domain.AffiliateReferral, error)
	ListPaymentsByAffiliate(ctx context.Context, affiliateUserID string, status domain.PaymentStatus) ([]domain.CommissionPayment, error)
	GetLinkStats(ctx context.Context, linkID string) (*domain.LinkStats, error)
}
