package cart

import (
	"context"
	"encoding/json"
	"time"

	"credential-storefront/shared/pkg/cache"
)

type RedisStore struct {
	Redis *cache.Redis
	TTL   time.Duration
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]Line, error) {
	raw, err := s.Redis.GetString(ctx, key)
	if cache.IsMiss(err) {
		return []Line{}, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, lines []Line) error {
	if len(lines) == 0 {
		return s.Redis.Del(ctx, key)
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.Redis.SetString(ctx, key, string(b), s.TTL)
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.Redis.Del(ctx, key)
}
