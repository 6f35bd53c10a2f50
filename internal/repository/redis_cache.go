package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префикс ключей для ссылок по коду
	linkKeyPrefix = "affiliate_link:"

	// TTL для кэша по умолчанию
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository кеширует партнерские ссылки в Redis
type RedisCacheRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// RedisOptions параметры подключения к Redis
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCacheRepository подключается к Redis и проверяет соединение
func NewRedisCacheRepository(ctx context.Context, opts RedisOptions, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", opts.Addr)
	return NewRedisCacheFromClient(client, opts.TTL, log), nil
}

// NewRedisCacheFromClient оборачивает уже созданный клиент
func NewRedisCacheFromClient(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCacheRepository{client: client, ttl: ttl, log: log}
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// CacheLink кладет ссылку в кеш по ее коду
func (r *RedisCacheRepository) CacheLink(ctx context.Context, link *domain.AffiliateLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	if err := r.client.Set(ctx, linkKeyPrefix+link.Code, data, r.ttl).Err(); err != nil {
		r.log.Errorw("Failed to cache link in Redis", "error", err, "code", link.Code)
		return fmt.Errorf("failed to cache link: %w", err)
	}

	r.log.Debugw("Link cached", "code", link.Code)
	return nil
}

// GetCachedLink возвращает ссылку из кеша. Промах кеша дает (nil, nil).
func (r *RedisCacheRepository) GetCachedLink(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	data, err := r.client.Get(ctx, linkKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link from cache: %w", err)
	}

	var link domain.AffiliateLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached link: %w", err)
	}
	return &link, nil
}
