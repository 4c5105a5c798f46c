// Package store persists parsed templates in Redis as JSON documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/dago-node-template/internal/markup"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPrefix is prepended to template ids to build Redis keys
const DefaultPrefix = "template:doc:"

// ErrNotFound is returned when no template is stored under an id
var ErrNotFound = errors.New("template not found")

// RedisStore stores templates under <prefix><id>
type RedisStore struct {
	client   redis.Cmdable
	prefix   string
	ttl      time.Duration
	maxDepth int
	logger   *zap.Logger
}

// Option configures a RedisStore
type Option func(*RedisStore)

// WithPrefix overrides the key prefix
func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL sets an expiry applied on every Save; zero keeps keys forever
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithMaxDepth caps nesting accepted when loading templates
func WithMaxDepth(depth int) Option {
	return func(s *RedisStore) {
		s.maxDepth = depth
	}
}

// NewRedisStore creates a new Redis template store
func NewRedisStore(client redis.Cmdable, logger *zap.Logger, opts ...Option) *RedisStore {
	s := &RedisStore{
		client:   client,
		prefix:   DefaultPrefix,
		maxDepth: markup.DefaultMaxDepth,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save stores a template
func (s *RedisStore) Save(ctx context.Context, id string, tmpl *markup.Template) error {
	if id == "" {
		return fmt.Errorf("template id is required")
	}

	data, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	s.logger.Debug("template saved",
		zap.String("template_id", id),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load loads a template
func (s *RedisStore) Load(ctx context.Context, id string) (*markup.Template, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	tmpl, err := markup.Decode(data, s.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", id, err)
	}

	return tmpl, nil
}

// Delete deletes a template
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Exists checks if a template is stored under id
func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	result, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return result > 0, nil
}

// SetTTL sets a time-to-live for a stored template
func (s *RedisStore) SetTTL(ctx context.Context, id string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.key(id), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}
	return nil
}

// List returns the ids of all stored templates
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > len(s.prefix) {
			ids = append(ids, key[len(s.prefix):])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return ids, nil
}
