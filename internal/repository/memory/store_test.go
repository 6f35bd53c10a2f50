package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/shopspring/decimal"
)

func seedLink(t *testing.T, s *Store) domain.AffiliateLink {
	t.Helper()
	link := domain.AffiliateLink{ID: "link-1", OwnerUserID: "owner-1", Code: "ABC123", CreatedAt: time.Now()}
	if err := s.CreateLink(context.Background(), &link); err != nil {
		t.Fatalf("create link: %v", err)
	}
	return link
}

func record(sub string) repository.ReferralRecord {
	id := sub + "-ref"
	now := time.Now().UTC()
	ref := domain.AffiliateReferral{
		ID: id, OwnerUserID: "owner-1", ReferredUserID: "user-2", LinkID: "link-1",
		SubscriptionID: sub, Amount: decimal.NewFromInt(100), Commission: decimal.NewFromInt(20),
		Status: domain.ReferralStatusActive, IsRecurring: true, CreatedAt: now, UpdatedAt: now,
	}
	return repository.ReferralRecord{
		Referral:   ref,
		Payment:    domain.NewPendingPayment(id+"-pay", ref, domain.DefaultCommissionRate, domain.CurrentPeriod(now), now),
		Conversion: domain.LinkEvent{ID: id + "-ev", LinkID: "link-1", Kind: domain.LinkEventConversion, Amount: ref.Amount, CreatedAt: now},
	}
}

func TestCreateLinkDuplicateCode(t *testing.T) {
	s := NewStore()
	seedLink(t, s)
	dup := domain.AffiliateLink{ID: "link-2", OwnerUserID: "owner-2", Code: "ABC123"}
	if err := s.CreateLink(context.Background(), &dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRecordReferralConcurrentSameSubscription(t *testing.T) {
	s := NewStore()
	seedLink(t, s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := record("sub_1")
			rec.Referral.ID = rec.Referral.ID + string(rune('a'+i))
			_, ok, err := s.RecordReferral(context.Background(), rec)
			if err != nil {
				t.Errorf("record: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one created referral, got %d", created)
	}
	refs, _ := s.ListReferralsBySubscription(context.Background(), "sub_1")
	if len(refs) != 1 {
		t.Fatalf("expected 1 referral row, got %d", len(refs))
	}
	if n := len(s.PaymentsBySubscription("sub_1")); n != 1 {
		t.Fatalf("expected 1 payment row, got %d", n)
	}
}

func TestPropagateCancelThenReactivate(t *testing.T) {
	s := NewStore()
	seedLink(t, s)
	ctx := context.Background()
	if _, _, err := s.RecordReferral(ctx, record("sub_1")); err != nil {
		t.Fatal(err)
	}

	res, err := s.PropagateStatus(ctx, repository.StatusChange{
		SubscriptionID: "sub_1", Status: domain.ReferralStatusCancelled, CancelNote: "Subscription cancelled",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.UpdatedReferrals != 1 || res.CancelledPayments != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	next := domain.PeriodFor(2099, time.January)
	build := func(refs []domain.AffiliateReferral) []domain.CommissionPayment {
		out := make([]domain.CommissionPayment, 0, len(refs))
		for _, r := range refs {
			out = append(out, domain.NewPendingPayment(r.ID+"-next", r, domain.DefaultCommissionRate, next, time.Now()))
		}
		return out
	}
	for i := 0; i < 2; i++ {
		res, err = s.PropagateStatus(ctx, repository.StatusChange{
			SubscriptionID: "sub_1", Status: domain.ReferralStatusActive, Reactivate: build,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if res.CreatedPayments != 0 {
		t.Fatalf("second reactivation should not create payments, got %d", res.CreatedPayments)
	}
	payments := s.PaymentsBySubscription("sub_1")
	if len(payments) != 2 {
		t.Fatalf("expected cancelled + new pending, got %d", len(payments))
	}
	if payments[0].Status != domain.PaymentStatusCancelled || payments[1].Status != domain.PaymentStatusPending {
		t.Fatalf("unexpected statuses %s, %s", payments[0].Status, payments[1].Status)
	}
}

func TestLinkStatsDerivedFromEvents(t *testing.T) {
	s := NewStore()
	link := seedLink(t, s)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ev := domain.LinkEvent{ID: "c" + string(rune('0'+i)), LinkID: link.ID, Kind: domain.LinkEventClick}
		if err := s.AppendLinkEvent(ctx, &ev); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := s.RecordReferral(ctx, record("sub_1")); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetLinkStats(ctx, link.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Clicks != 3 || stats.Conversions != 1 || !stats.Revenue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
