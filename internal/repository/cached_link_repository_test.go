package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/pkg/logger"
)

type stubLinks struct {
	byCode map[string]domain.AffiliateLink
	reads  int
}

func (s *stubLinks) CreateLink(ctx context.Context, link *domain.AffiliateLink) error {
	if _, ok := s.byCode[link.Code]; ok {
		return ErrDuplicate
	}
	s.byCode[link.Code] = *link
	return nil
}

func (s *stubLinks) GetLinkByCode(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	s.reads++
	link, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &link, nil
}

func (s *stubLinks) GetLinkByOwner(ctx context.Context, ownerUserID string) (*domain.AffiliateLink, error) {
	return nil, ErrNotFound
}

func (s *stubLinks) AppendLinkEvent(ctx context.Context, ev *domain.LinkEvent) error { return nil }

type mapCache struct {
	items map[string]domain.AffiliateLink
	fail  bool
}

func (m *mapCache) CacheLink(ctx context.Context, link *domain.AffiliateLink) error {
	if m.fail {
		return errors.New("redis down")
	}
	m.items[link.Code] = *link
	return nil
}

func (m *mapCache) GetCachedLink(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	if m.fail {
		return nil, errors.New("redis down")
	}
	link, ok := m.items[code]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func TestCachedLinkRepositoryReadThrough(t *testing.T) {
	ctx := context.Background()
	store := &stubLinks{byCode: map[string]domain.AffiliateLink{
		"ABC123": {ID: "link-1", OwnerUserID: "owner-1", Code: "ABC123"},
	}}
	cache := &mapCache{items: map[string]domain.AffiliateLink{}}
	repo := NewCachedLinkRepository(store, cache, logger.NewNop())

	for i := 0; i < 3; i++ {
		link, err := repo.GetLinkByCode(ctx, "ABC123")
		if err != nil {
			t.Fatalf("get link: %v", err)
		}
		if link.ID != "link-1" {
			t.Fatalf("unexpected link %+v", link)
		}
	}
	if store.reads != 1 {
		t.Fatalf("expected one store read, got %d", store.reads)
	}
}

func TestCachedLinkRepositoryNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := &stubLinks{byCode: map[string]domain.AffiliateLink{}}
	cache := &mapCache{items: map[string]domain.AffiliateLink{}}
	repo := NewCachedLinkRepository(store, cache, logger.NewNop())

	if _, err := repo.GetLinkByCode(ctx, "NOPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(cache.items) != 0 {
		t.Fatalf("miss must not be cached")
	}
}

func TestCachedLinkRepositoryCacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	store := &stubLinks{byCode: map[string]domain.AffiliateLink{}}
	cache := &mapCache{items: map[string]domain.AffiliateLink{}, fail: true}
	repo := NewCachedLinkRepository(store, cache, logger.NewNop())

	if err := repo.CreateLink(ctx, &domain.AffiliateLink{ID: "l", OwnerUserID: "o", Code: "XYZ"}); err != nil {
		t.Fatalf("create must succeed when cache is down: %v", err)
	}
	link, err := repo.GetLinkByCode(ctx, "XYZ")
	if err != nil || link.ID != "l" {
		t.Fatalf("expected store fallback, got %+v, %v", link, err)
	}
}
