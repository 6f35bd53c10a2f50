package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/shopspring/decimal"
)

// Store реализация всех репозиториев партнерской программы в памяти.
// Один мьютекс на все таблицы дает ту же атомарность, что и транзакция в Postgres.
type Store struct {
	mu sync.RWMutex

	links       map[string]domain.AffiliateLink // по ID
	linkByCode  map[string]string
	linkByOwner map[string]string
	events      []domain.LinkEvent

	referrals     map[string]domain.AffiliateReferral // по ID
	refBySub      map[string]string
	payments      map[string]domain.CommissionPayment // по ID
	paymentPeriod map[paymentKey]string
}

type paymentKey struct {
	referralID  string
	periodStart int64
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		links:         make(map[string]domain.AffiliateLink),
		linkByCode:    make(map[string]string),
		linkByOwner:   make(map[string]string),
		referrals:     make(map[string]domain.AffiliateReferral),
		refBySub:      make(map[string]string),
		payments:      make(map[string]domain.CommissionPayment),
		paymentPeriod: make(map[paymentKey]string),
	}
}

var (
	_ repository.LinkRepository      = (*Store)(nil)
	_ repository.ReferralRepository  = (*Store)(nil)
	_ repository.ReportingRepository = (*Store)(nil)
)

// CreateLink сохраняет ссылку
func (s *Store) CreateLink(ctx context.Context, link *domain.AffiliateLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.linkByCode[link.Code]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := s.linkByOwner[link.OwnerUserID]; ok {
		return repository.ErrDuplicate
	}
	s.links[link.ID] = *link
	s.linkByCode[link.Code] = link.ID
	s.linkByOwner[link.OwnerUserID] = link.ID
	return nil
}

// GetLinkByCode возвращает ссылку по коду
func (s *Store) GetLinkByCode(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linkByIndex(s.linkByCode, code)
}

// GetLinkByOwner возвращает ссылку пользователя
func (s *Store) GetLinkByOwner(ctx context.Context, ownerUserID string) (*domain.AffiliateLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linkByIndex(s.linkByOwner, ownerUserID)
}

func (s *Store) linkByIndex(index map[string]string, key string) (*domain.AffiliateLink, error) {
	id, ok := index[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	link := s.links[id]
	return &link, nil
}

// AppendLinkEvent добавляет событие
func (s *Store) AppendLinkEvent(ctx context.Context, ev *domain.LinkEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[ev.LinkID]; !ok {
		return repository.ErrInvalidData
	}
	s.events = append(s.events, *ev)
	return nil
}

// RecordReferral атомарно пишет реферал, начисление и конверсию
func (s *Store) RecordReferral(ctx context.Context, rec repository.ReferralRecord) (*domain.AffiliateReferral, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.refBySub[rec.Referral.SubscriptionID]; ok {
		existing := s.referrals[id]
		return &existing, false, nil
	}
	if _, ok := s.links[rec.Referral.LinkID]; !ok {
		return nil, false, repository.ErrInvalidData
	}

	ref := rec.Referral
	s.referrals[ref.ID] = ref
	s.refBySub[ref.SubscriptionID] = ref.ID
	s.insertPaymentLocked(rec.Payment)
	s.events = append(s.events, rec.Conversion)
	return &ref, true, nil
}

// GetReferralBySubscription возвращает реферал подписки
func (s *Store) GetReferralBySubscription(ctx context.Context, subscriptionID string) (*domain.AffiliateReferral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.refBySub[subscriptionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ref := s.referrals[id]
	return &ref, nil
}

// PropagateStatus применяет смену статуса
func (s *Store) PropagateStatus(ctx context.Context, change repository.StatusChange) (repository.StatusChangeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result repository.StatusChangeResult
	now := time.Now().UTC()

	var updated []domain.AffiliateReferral
	for id, ref := range s.referrals {
		if ref.SubscriptionID != change.SubscriptionID {
			continue
		}
		ref.Status = change.Status
		ref.UpdatedAt = now
		s.referrals[id] = ref
		updated = append(updated, ref)
	}
	result.UpdatedReferrals = len(updated)

	if change.Status == domain.ReferralStatusCancelled {
		for id, p := range s.payments {
			if p.SubscriptionID != change.SubscriptionID || p.Status != domain.PaymentStatusPending {
				continue
			}
			p.Status = domain.PaymentStatusCancelled
			p.Notes = change.CancelNote
			p.UpdatedAt = now
			s.payments[id] = p
			result.CancelledPayments++
		}
	}

	if change.Status == domain.ReferralStatusActive && change.Reactivate != nil && len(updated) > 0 {
		for _, p := range change.Reactivate(updated) {
			if s.insertPaymentLocked(p) {
				result.CreatedPayments++
			}
		}
	}
	return result, nil
}

// InsertPendingPayments вставляет начисления, пропуская дубликаты по периоду
func (s *Store) InsertPendingPayments(ctx context.Context, payments []domain.CommissionPayment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	for _, p := range payments {
		if s.insertPaymentLocked(p) {
			created++
		}
	}
	return created, nil
}

func (s *Store) insertPaymentLocked(p domain.CommissionPayment) bool {
	key := paymentKey{referralID: p.ReferralID, periodStart: p.PeriodStart.UnixNano()}
	if _, ok := s.paymentPeriod[key]; ok {
		return false
	}
	s.payments[p.ID] = p
	s.paymentPeriod[key] = p.ID
	return true
}

// ListReferralsBySubscription рефералы подписки
func (s *Store) ListReferralsBySubscription(ctx context.Context, subscriptionID string) ([]domain.AffiliateReferral, error) {
	return s.filterReferrals(func(r domain.AffiliateReferral) bool { return r.SubscriptionID == subscriptionID }), nil
}

// ListReferralsByOwner рефералы партнера
func (s *Store) ListReferralsByOwner(ctx context.Context, ownerUserID string) ([]domain.AffiliateReferral, error) {
	return s.filterReferrals(func(r domain.AffiliateReferral) bool { return r.OwnerUserID == ownerUserID }), nil
}

// ListActiveRecurringReferrals активные рекуррентные рефералы
func (s *Store) ListActiveRecurringReferrals(ctx context.Context) ([]domain.AffiliateReferral, error) {
	return s.filterReferrals(func(r domain.AffiliateReferral) bool {
		return r.Status == domain.ReferralStatusActive && r.IsRecurring
	}), nil
}

func (s *Store) filterReferrals(keep func(domain.AffiliateReferral) bool) []domain.AffiliateReferral {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AffiliateReferral{}
	for _, ref := range s.referrals {
		if keep(ref) {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ListPaymentsByAffiliate начисления партнера
func (s *Store) ListPaymentsByAffiliate(ctx context.Context, affiliateUserID string, status domain.PaymentStatus) ([]domain.CommissionPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.CommissionPayment{}
	for _, p := range s.payments {
		if p.AffiliateUserID != affiliateUserID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.After(out[j].PeriodStart)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// PaymentsBySubscription все начисления подписки (для проверок в тестах и отладки)
func (s *Store) PaymentsBySubscription(subscriptionID string) []domain.CommissionPayment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CommissionPayment
	for _, p := range s.payments {
		if p.SubscriptionID == subscriptionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out
}

// GetLinkStats агрегаты по журналу событий
func (s *Store) GetLinkStats(ctx context.Context, linkID string) (*domain.LinkStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stats := &domain.LinkStats{LinkID: link.ID, Code: link.Code, Revenue: decimal.Zero}
	for _, ev := range s.events {
		if ev.LinkID != linkID {
			continue
		}
		switch ev.Kind {
		case domain.LinkEventClick:
			stats.Clicks++
		case domain.LinkEventConversion:
			stats.Conversions++
			stats.Revenue = stats.Revenue.Add(ev.Amount)
		}
	}
	return stats, nil
}
