package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/models"
)

const (
	sessionKeyPrefix   = "checkout_session:"
	referenceKeyPrefix = "checkout_ref:"
	defaultSessionTTL  = time.Hour
)

// RedisSessionStore holds checkout sessions in Redis. The reference index
// (reference token -> session id) is what lets a redirect return find its
// session again; the session record itself is best-effort and expires with
// the TTL. Abandoned sessions need no compensating action - they simply
// age out.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(cfg config.RedisConfig, logger *zap.Logger) *RedisSessionStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultSessionTTL
	}

	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get retrieves a session by id. Returns (nil, nil) when absent or expired.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		s.logger.Debug("Session not in store", zap.String("session_id", id))
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Session get error",
			zap.String("session_id", id),
			zap.Error(err))
		return nil, err
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// Save stores a session, refreshing its TTL.
func (s *RedisSessionStore) Save(ctx context.Context, session *models.CheckoutSession) error {
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl).Err(); err != nil {
		s.logger.Error("Session save error",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return err
	}

	return nil
}

// IndexReference maps a provider reference token to a session id so the
// redirect return can resume with nothing but the token from the URL.
func (s *RedisSessionStore) IndexReference(ctx context.Context, reference, sessionID string) error {
	if err := s.client.Set(ctx, referenceKeyPrefix+reference, sessionID, s.ttl).Err(); err != nil {
		s.logger.Error("Reference index error",
			zap.String("reference", reference),
			zap.Error(err))
		return err
	}

	s.logger.Debug("Reference indexed",
		zap.String("reference", reference),
		zap.String("session_id", sessionID))
	return nil
}

// FindByReference resolves a reference token to its session. Returns
// (nil, nil) when the index entry or the session has expired.
func (s *RedisSessionStore) FindByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	sessionID, err := s.client.Get(ctx, referenceKeyPrefix+reference).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, sessionID)
}

// Ping verifies connectivity for readiness checks.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
