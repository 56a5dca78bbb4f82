package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/config"
)

type Service struct {
	client *redis.Client
}

// NewService connects to the configured redis. It returns nil when redis is
// not configured or not reachable, and callers fall back to memory.
func NewService() *Service {
	url := config.GetRedisURL()
	if url == "" {
		log.Debug().Msg("Redis URL not configured - sessions will stay in memory")
		return nil
	}

	client := redis.NewClient(options(url, config.GetRedisPassword()))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", url).
			Msg("Failed to establish Redis connection")
		_ = client.Close()
		return nil
	}

	log.Info().Str("addr", url).Msg("Connected to Redis")
	return &Service{
		client: client,
	}
}

// options accepts both redis:// URLs and bare host:port addresses
func options(url, password string) *redis.Options {
	if strings.Contains(url, "://") {
		opts, err := redis.ParseURL(url)
		if err == nil {
			if password != "" {
				opts.Password = password
			}
			return opts
		}
		log.Warn().Err(err).Msg("Invalid Redis URL, treating it as an address")
	}
	return &redis.Options{
		Addr:     url,
		Password: password,
		DB:       0,
	}
}

// Set stores a value in Redis with an optional expiration
func (s *Service) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := s.client.Set(ctx, key, value, expiration).Err(); err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("expiration", expiration).
			Msg("Redis SET operation failed")
		return err
	}
	return nil
}

// Get retrieves a value from Redis. A missing key returns redis.Nil.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		log.Error().
			Err(err).
			Str("key", key).
			Msg("Redis GET operation failed")
		return "", err
	}
	return val, err
}

// Push appends members to the list at key
func (s *Service) Push(ctx context.Context, key string, members ...interface{}) error {
	return s.client.RPush(ctx, key, members...).Err()
}

// Range returns every member of the list at key
func (s *Service) Range(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// Ping checks if Redis is accessible
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Service) Close() error {
	return s.client.Close()
}

// IsNil reports whether err means the key does not exist
func IsNil(err error) bool {
	return err == redis.Nil
}
