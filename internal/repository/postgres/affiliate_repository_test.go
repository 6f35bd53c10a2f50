package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}},
		{name: "plain error", err: errors.New("connection reset")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Fatalf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type stubQuerier struct {
	tag  string
	err  error
	sql  string
	args []any
}

func (q *stubQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return pgconn.NewCommandTag(q.tag), q.err
}

func TestInsertPaymentReportsConflictAsNotCreated(t *testing.T) {
	ctx := context.Background()
	p := &domain.CommissionPayment{ID: "pay-1", ReferralID: "ref-1", Status: domain.PaymentStatusPending}

	q := &stubQuerier{tag: "INSERT 0 1"}
	created, err := insertPayment(ctx, q, p)
	if err != nil || !created {
		t.Fatalf("insert: created=%v err=%v", created, err)
	}
	if !strings.Contains(q.sql, "ON CONFLICT ON CONSTRAINT affiliate_commission_payments_period_key DO NOTHING") {
		t.Fatalf("insert must be idempotent per period, sql: %s", q.sql)
	}
	if len(q.args) != 12 || q.args[0] != "pay-1" {
		t.Fatalf("unexpected args %v", q.args)
	}

	// Начисление за этот период уже есть
	q = &stubQuerier{tag: "INSERT 0 0"}
	created, err = insertPayment(ctx, q, p)
	if err != nil || created {
		t.Fatalf("conflict: created=%v err=%v", created, err)
	}

	q = &stubQuerier{err: errors.New("boom")}
	if _, err := insertPayment(ctx, q, p); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestInsertLinkEventWrapsError(t *testing.T) {
	q := &stubQuerier{err: errors.New("fk violation")}
	err := insertLinkEvent(context.Background(), q, &domain.LinkEvent{ID: "ev-1", Kind: domain.LinkEventClick})
	if err == nil || !strings.Contains(err.Error(), "fk violation") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}

	body, err := migrationsFS.ReadFile(names[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, constraint := range []string{
		"affiliate_referrals_subscription_key",
		"affiliate_commission_payments_period_key",
	} {
		if !strings.Contains(string(body), constraint) {
			t.Errorf("migration lacks constraint %s used by ON CONFLICT", constraint)
		}
	}
}
