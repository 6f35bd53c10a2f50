package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/jmoiron/sqlx"
)

// ReportingRepository читающие запросы через sqlx (StructScan по тегам db)
type ReportingRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewReportingRepository создает репозиторий отчетов
func NewReportingRepository(db *sqlx.DB, log *logger.Logger) *ReportingRepository {
	return &ReportingRepository{db: db, log: log}
}

var _ repository.ReportingRepository = (*ReportingRepository)(nil)

// ListReferralsBySubscription возвращает рефералы подписки
func (r *ReportingRepository) ListReferralsBySubscription(ctx context.Context, subscriptionID string) ([]domain.AffiliateReferral, error) {
	refs := []domain.AffiliateReferral{}
	query := `SELECT ` + referralColumns + `
		FROM affiliate_referrals
		WHERE subscription_id = $1
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &refs, query, subscriptionID); err != nil {
		r.log.Errorw("Failed to list referrals by subscription", "error", err, "subscriptionID", subscriptionID)
		return nil, fmt.Errorf("repository: failed to list referrals by subscription: %w", err)
	}
	return refs, nil
}

// ListReferralsByOwner возвращает рефералы партнера, новые сначала
func (r *ReportingRepository) ListReferralsByOwner(ctx context.Context, ownerUserID string) ([]domain.AffiliateReferral, error) {
	refs := []domain.AffiliateReferral{}
	query := `SELECT ` + referralColumns + `
		FROM affiliate_referrals
		WHERE owner_user_id = $1
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &refs, query, ownerUserID); err != nil {
		r.log.Errorw("Failed to list referrals by owner", "error", err, "ownerUserID", ownerUserID)
		return nil, fmt.Errorf("repository: failed to list referrals by owner: %w", err)
	}
	return refs, nil
}

// ListActiveRecurringReferrals рефералы, по которым положено ежемесячное начисление
func (r *ReportingRepository) ListActiveRecurringReferrals(ctx context.Context) ([]domain.AffiliateReferral, error) {
	refs := []domain.AffiliateReferral{}
	query := `SELECT ` + referralColumns + `
		FROM affiliate_referrals
		WHERE status = $1 AND is_recurring
		ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &refs, query, domain.ReferralStatusActive); err != nil {
		return nil, fmt.Errorf("repository: failed to list recurring referrals: %w", err)
	}
	return refs, nil
}

// ListPaymentsByAffiliate возвращает начисления партнера, опционально по статусу
func (r *ReportingRepository) ListPaymentsByAffiliate(ctx context.Context, affiliateUserID string, status domain.PaymentStatus) ([]domain.CommissionPayment, error) {
	payments := []domain.CommissionPayment{}
	query := `
		SELECT id, referral_id, affiliate_user_id, subscription_id, commission_amount, commission_rate,
		       period_start, period_end, status, notes, created_at, updated_at
		FROM affiliate_commission_payments
		WHERE affiliate_user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY period_start DESC, created_at DESC`

	if err := r.db.SelectContext(ctx, &payments, query, affiliateUserID, string(status)); err != nil {
		r.log.Errorw("Failed to list commission payments", "error", err, "affiliateUserID", affiliateUserID)
		return nil, fmt.Errorf("repository: failed to list commission payments: %w", err)
	}
	return payments, nil
}

// GetLinkStats считает клики, конверсии и выручку по журналу событий
func (r *ReportingRepository) GetLinkStats(ctx context.Context, linkID string) (*domain.LinkStats, error) {
	var stats domain.LinkStats
	query := `
		SELECT l.id AS link_id,
		       l.code,
		       COUNT(e.id) FILTER (WHERE e.kind = 'click')      AS clicks,
		       COUNT(e.id) FILTER (WHERE e.kind = 'conversion') AS conversions,
		       COALESCE(SUM(e.amount) FILTER (WHERE e.kind = 'conversion'), 0) AS revenue
		FROM affiliate_links l
		LEFT JOIN affiliate_link_events e ON e.link_id = l.id
		WHERE l.id = $1
		GROUP BY l.id, l.code`

	if err := r.db.GetContext(ctx, &stats, query, linkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get link stats: %w", err)
	}
	return &stats, nil
}
