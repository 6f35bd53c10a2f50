package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	linkCodeLength   = 8
	linkCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 5
)

// GenerateLinkCode возвращает случайный код из заглавных букв и цифр
func GenerateLinkCode() (string, error) {
	buf := make([]byte, linkCodeLength)
	alphabetLen := big.NewInt(int64(len(linkCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate link code: %w", err)
		}
		buf[i] = linkCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateLink создает ссылку пользователя. Если ссылка уже есть, возвращает ее.
func (s *AffiliateService) CreateLink(ctx context.Context, actorID string) (*domain.AffiliateLink, bool, error) {
	if err := requireActor(actorID); err != nil {
		return nil, false, err
	}

	existing, err := s.links.GetLinkByOwner(ctx, actorID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("get link by owner: %w", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, false, err
		}

		link := &domain.AffiliateLink{
			ID:          s.newID(),
			OwnerUserID: actorID,
			Code:        code,
			CreatedAt:   s.now(),
		}
		err = s.links.CreateLink(ctx, link)
		if err == nil {
			s.log.Infow("Affiliate link created", "linkID", link.ID, "ownerUserID", actorID, "code", code)
			return link, true, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, false, fmt.Errorf("create link: %w", err)
		}

		// Параллельный запрос того же пользователя мог успеть первым
		if existing, err := s.links.GetLinkByOwner(ctx, actorID); err == nil {
			return existing, false, nil
		}
		s.log.Debugw("Link code collision, retrying", "attempt", attempt, "code", code)
	}

	s.log.Errorw("Could not allocate unique link code", "ownerUserID", actorID, "attempts", maxCodeAttempts)
	return nil, false, fmt.Errorf("allocate link code: %w", domain.ErrInternal)
}

// ListMyLinks ссылки пользователя вместе со статистикой
func (s *AffiliateService) ListMyLinks(ctx context.Context, actorID string) ([]domain.LinkWithStats, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	link, err := s.links.GetLinkByOwner(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.LinkWithStats{}, nil
		}
		return nil, fmt.Errorf("get link by owner: %w", err)
	}

	stats, err := s.reports.GetLinkStats(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("link stats: %w", err)
	}
	return []domain.LinkWithStats{{
		AffiliateLink: *link,
		Clicks:        stats.Clicks,
		Conversions:   stats.Conversions,
		Revenue:       stats.Revenue,
	}}, nil
}

// LinkStats агрегаты по ссылке. Доступны только владельцу.
func (s *AffiliateService) LinkStats(ctx context.Context, actorID, code string) (*domain.LinkStats, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	link, err := s.ResolveLink(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.OwnerUserID != actorID {
		return nil, domain.ErrForbidden
	}

	stats, err := s.reports.GetLinkStats(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("link stats: %w", err)
	}
	return stats, nil
}

// RecordClick добавляет событие клика по ссылке
func (s *AffiliateService) RecordClick(ctx context.Context, code string) error {
	link, err := s.ResolveLink(ctx, code)
	if err != nil {
		return err
	}

	ev := &domain.LinkEvent{
		ID:        s.newID(),
		LinkID:    link.ID,
		Kind:      domain.LinkEventClick,
		Amount:    decimal.Zero,
		CreatedAt: s.now(),
	}
	if err := s.links.AppendLinkEvent(ctx, ev); err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}
