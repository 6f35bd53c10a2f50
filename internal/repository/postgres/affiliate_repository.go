package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const referralColumns = `
	id, owner_user_id, referred_user_id, link_id, subscription_id, plan_name,
	amount, commission, status, is_recurring, created_at, updated_at`

// AffiliateRepository реализация LinkRepository и ReferralRepository через PostgreSQL
type AffiliateRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewAffiliateRepository создает новый репозиторий партнерской программы
func NewAffiliateRepository(db *pgxpool.Pool, log *logger.Logger) *AffiliateRepository {
	return &AffiliateRepository{
		db:  db,
		log: log,
	}
}

var (
	_ repository.LinkRepository     = (*AffiliateRepository)(nil)
	_ repository.ReferralRepository = (*AffiliateRepository)(nil)
)

// CreateLink сохраняет новую партнерскую ссылку
func (r *AffiliateRepository) CreateLink(ctx context.Context, link *domain.AffiliateLink) error {
	query := `
		INSERT INTO affiliate_links (id, owner_user_id, code, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, link.ID, link.OwnerUserID, link.Code, link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create affiliate link: %w", err)
	}
	return nil
}

// GetLinkByCode возвращает ссылку по коду
func (r *AffiliateRepository) GetLinkByCode(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	query := `SELECT id, owner_user_id, code, created_at FROM affiliate_links WHERE code = $1`
	return r.getLink(ctx, query, code)
}

// GetLinkByOwner возвращает ссылку пользователя
func (r *AffiliateRepository) GetLinkByOwner(ctx context.Context, ownerUserID string) (*domain.AffiliateLink, error) {
	query := `SELECT id, owner_user_id, code, created_at FROM affiliate_links WHERE owner_user_id = $1`
	return r.getLink(ctx, query, ownerUserID)
}

func (r *AffiliateRepository) getLink(ctx context.Context, query string, arg string) (*domain.AffiliateLink, error) {
	var link domain.AffiliateLink
	err := r.db.QueryRow(ctx, query, arg).Scan(&link.ID, &link.OwnerUserID, &link.Code, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get affiliate link: %w", err)
	}
	return &link, nil
}

// AppendLinkEvent добавляет событие по ссылке
func (r *AffiliateRepository) AppendLinkEvent(ctx context.Context, ev *domain.LinkEvent) error {
	return insertLinkEvent(ctx, r.db, ev)
}

// RecordReferral вставляет реферал, первое начисление и конверсию одной транзакцией.
// Дубликат по subscription_id отсекается уникальным индексом, а не предварительным чтением.
func (r *AffiliateRepository) RecordReferral(ctx context.Context, rec repository.ReferralRecord) (*domain.AffiliateReferral, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// после Commit вернет ErrTxClosed, это нормально
		_ = tx.Rollback(ctx)
	}()

	ref := rec.Referral
	insertReferral := `
		INSERT INTO affiliate_referrals (` + referralColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT ON CONSTRAINT affiliate_referrals_subscription_key DO NOTHING`

	tag, err := tx.Exec(ctx, insertReferral,
		ref.ID, ref.OwnerUserID, ref.ReferredUserID, ref.LinkID, ref.SubscriptionID, ref.PlanName,
		ref.Amount, ref.Commission, ref.Status, ref.IsRecurring, ref.CreatedAt, ref.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert referral: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Реферал по этой подписке уже засчитан (возможно, параллельным запросом)
		existing, err := r.GetReferralBySubscription(ctx, ref.SubscriptionID)
		if err != nil {
			return nil, false, err
		}
		r.log.Debugw("Referral already tracked", "subscriptionID", ref.SubscriptionID, "referralID", existing.ID)
		return existing, false, nil
	}

	if _, err := insertPayment(ctx, tx, &rec.Payment); err != nil {
		return nil, false, err
	}
	if err := insertLinkEvent(ctx, tx, &rec.Conversion); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit referral: %w", err)
	}

	r.log.Debugw("Referral recorded", "referralID", ref.ID, "subscriptionID", ref.SubscriptionID)
	return &ref, true, nil
}

// GetReferralBySubscription возвращает реферал по ID подписки
func (r *AffiliateRepository) GetReferralBySubscription(ctx context.Context, subscriptionID string) (*domain.AffiliateReferral, error) {
	query := `SELECT ` + referralColumns + ` FROM affiliate_referrals WHERE subscription_id = $1`

	row := r.db.QueryRow(ctx, query, subscriptionID)
	ref, err := scanReferral(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral by subscription: %w", err)
	}
	return ref, nil
}

// PropagateStatus применяет новый статус подписки к рефералам и начислениям в одной транзакции
func (r *AffiliateRepository) PropagateStatus(ctx context.Context, change repository.StatusChange) (repository.StatusChangeResult, error) {
	var result repository.StatusChangeResult

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		UPDATE affiliate_referrals
		SET status = $1, updated_at = now()
		WHERE subscription_id = $2
		RETURNING `+referralColumns,
		change.Status, change.SubscriptionID,
	)
	if err != nil {
		return result, fmt.Errorf("failed to update referrals: %w", err)
	}
	updated, err := collectReferrals(rows)
	if err != nil {
		return result, err
	}
	result.UpdatedReferrals = len(updated)

	if change.Status == domain.ReferralStatusCancelled {
		tag, err := tx.Exec(ctx, `
			UPDATE affiliate_commission_payments
			SET status = $1, notes = $2, updated_at = now()
			WHERE subscription_id = $3 AND status = $4`,
			domain.PaymentStatusCancelled, change.CancelNote, change.SubscriptionID, domain.PaymentStatusPending,
		)
		if err != nil {
			return result, fmt.Errorf("failed to cancel pending payments: %w", err)
		}
		result.CancelledPayments = int(tag.RowsAffected())
	}

	if change.Status == domain.ReferralStatusActive && change.Reactivate != nil && len(updated) > 0 {
		for _, p := range change.Reactivate(updated) {
			p := p
			created, err := insertPayment(ctx, tx, &p)
			if err != nil {
				return result, err
			}
			if created {
				result.CreatedPayments++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit status change: %w", err)
	}
	return result, nil
}

// InsertPendingPayments вставляет начисления, уже существующие за период пропускаются
func (r *AffiliateRepository) InsertPendingPayments(ctx context.Context, payments []domain.CommissionPayment) (int, error) {
	if len(payments) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range payments {
		p := payments[i]
		batch.Queue(insertPaymentSQL,
			p.ID, p.ReferralID, p.AffiliateUserID, p.SubscriptionID, p.CommissionAmount, p.CommissionRate,
			p.PeriodStart, p.PeriodEnd, p.Status, p.Notes, p.CreatedAt, p.UpdatedAt,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	created := 0
	for range payments {
		tag, err := br.Exec()
		if err != nil {
			return created, fmt.Errorf("failed to insert pending payment: %w", err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

// querier общий интерфейс пула и транзакции
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertPaymentSQL = `
	INSERT INTO affiliate_commission_payments (
		id, referral_id, affiliate_user_id, subscription_id, commission_amount, commission_rate,
		period_start, period_end, status, notes, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT ON CONSTRAINT affiliate_commission_payments_period_key DO NOTHING`

func insertPayment(ctx context.Context, q querier, p *domain.CommissionPayment) (bool, error) {
	tag, err := q.Exec(ctx, insertPaymentSQL,
		p.ID, p.ReferralID, p.AffiliateUserID, p.SubscriptionID, p.CommissionAmount, p.CommissionRate,
		p.PeriodStart, p.PeriodEnd, p.Status, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert commission payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func insertLinkEvent(ctx context.Context, q querier, ev *domain.LinkEvent) error {
	_, err := q.Exec(ctx, `
		INSERT INTO affiliate_link_events (id, link_id, kind, referral_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.LinkID, ev.Kind, ev.ReferralID, ev.Amount, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append link event: %w", err)
	}
	return nil
}

func scanReferral(row pgx.Row) (*domain.AffiliateReferral, error) {
	var ref domain.AffiliateReferral
	err := row.Scan(
		&ref.ID,
		&ref.OwnerUserID,
		&ref.ReferredUserID,
		&ref.LinkID,
		&ref.SubscriptionID,
		&ref.PlanName,
		&ref.Amount,
		&ref.Commission,
		&ref.Status,
		&ref.IsRecurring,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func collectReferrals(rows pgx.Rows) ([]domain.AffiliateReferral, error) {
	defer rows.Close()

	var refs []domain.AffiliateReferral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		refs = append(refs, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referrals: %w", err)
	}
	return refs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
