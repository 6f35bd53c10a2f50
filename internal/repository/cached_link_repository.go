package repository

import (
	"context"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/pkg/logger"
)

// LinkCache кеш ссылок по коду. Реализуется RedisCacheRepository.
type LinkCache interface {
	CacheLink(ctx context.Context, link *domain.AffiliateLink) error
	GetCachedLink(ctx context.Context, code string) (*domain.AffiliateLink, error)
}

var _ LinkCache = (*RedisCacheRepository)(nil)

// CachedLinkRepository реализует LinkRepository с кешированием поиска по коду.
// Код ссылки не меняется после создания, поэтому инвалидация не нужна.
type CachedLinkRepository struct {
	repo  LinkRepository
	cache LinkCache
	log   *logger.Logger
}

// NewCachedLinkRepository создает репозиторий ссылок с кешированием
func NewCachedLinkRepository(repo LinkRepository, cache LinkCache, log *logger.Logger) LinkRepository {
	return &CachedLinkRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// CreateLink сохраняет ссылку в БД и кеширует ее
func (r *CachedLinkRepository) CreateLink(ctx context.Context, link *domain.AffiliateLink) error {
	if err := r.repo.CreateLink(ctx, link); err != nil {
		return err
	}

	if err := r.cache.CacheLink(ctx, link); err != nil {
		// Ошибка кеша не влияет на результат
		r.log.Warnw("Failed to cache link after creation", "error", err, "code", link.Code)
	}
	return nil
}

// GetLinkByCode ищет ссылку сначала в кеше, потом в БД
func (r *CachedLinkRepository) GetLinkByCode(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	cached, err := r.cache.GetCachedLink(ctx, code)
	if err != nil {
		r.log.Warnw("Error getting link from cache", "error", err, "code", code)
	}
	if cached != nil {
		return cached, nil
	}

	link, err := r.repo.GetLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheLink(ctx, link); err != nil {
		r.log.Warnw("Failed to cache link after fetching", "error", err, "code", code)
	}
	return link, nil
}

// GetLinkByOwner проксирует запрос в БД
func (r *CachedLinkRepository) GetLinkByOwner(ctx context.Context, ownerUserID string) (*domain.AffiliateLink, error) {
	return r.repo.GetLinkByOwner(ctx, ownerUserID)
}

// AppendLinkEvent проксирует запрос в БД
func (r *CachedLinkRepository) AppendLinkEvent(ctx context.Context, ev *domain.LinkEvent) error {
	return r.repo.AppendLinkEvent(ctx, ev)
}
