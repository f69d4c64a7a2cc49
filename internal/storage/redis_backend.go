// ABOUTME: Redis vector backend storing JSON vectors with id and per-URL membership sets
// ABOUTME: Ranks candidates client-side with cosine similarity
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harper/sitechat/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the backend writes
const DefaultRedisPrefix = "sitechat"

// RedisBackend implements Backend on plain Redis data structures
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects using a redis:// URL and verifies the connection
func NewRedisBackend(ctx context.Context, url, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisBackendFromClient(client, prefix), nil
}

// NewRedisBackendFromClient reuses an existing client
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) vectorKey(id string) string { return fmt.Sprintf("%s:vec:%s", r.prefix, id) }
func (r *RedisBackend) idsKey() string             { return r.prefix + ":ids" }
func (r *RedisBackend) urlKey(url string) string   { return fmt.Sprintf("%s:url:%s", r.prefix, url) }

// Close closes the client
func (r *RedisBackend) Close() error { return r.client.Close() }

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Upsert(ctx context.Context, vectors []models.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, v := range vectors {
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to marshal vector %s: %w", v.ID, err)
			}
			pipe.Set(ctx, r.vectorKey(v.ID), data, 0)
			pipe.SAdd(ctx, r.idsKey(), v.ID)
			pipe.SAdd(ctx, r.urlKey(v.Metadata.URL), v.ID)
		}
		return nil
	})
	return err
}

func (r *RedisBackend) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return models.RetrievalResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.vectorKey(id)
	}
	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	candidates := make([]models.IndexedVector, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		var v models.IndexedVector
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			continue
		}
		candidates = append(candidates, v)
	}
	return rankVectors(vector, candidates, topK), nil
}

// DeleteAll removes every key under the prefix
func (r *RedisBackend) DeleteAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 200 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *RedisBackend) DeleteByURL(ctx context.Context, url string) error {
	ids, err := r.client.SMembers(ctx, r.urlKey(url)).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			pipe.Del(ctx, r.vectorKey(id))
			members[i] = id
		}
		pipe.SRem(ctx, r.idsKey(), members...)
		pipe.Del(ctx, r.urlKey(url))
		return nil
	})
	return err
}

func (r *RedisBackend) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.idsKey()).Result()
	return int(n), err
}
