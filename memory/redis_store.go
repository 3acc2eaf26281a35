package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-based implementation of Store.
// Suitable for distributed production deployments.
// 每个 Crew 的记忆流存为一个 Redis List（RPush 追加保持写入顺序），
// 所有 Crew 标识符记录在一个 Set 中供枚举。
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-based crew memory store
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := opts.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "ados:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "memory:",
	}, nil
}

// crewKey returns the Redis key for a crew's memory list
func (s *RedisStore) crewKey(crew string) string {
	return s.keyPrefix + "crew:" + crew
}

// crewsKey returns the Redis key for the set of known crews
func (s *RedisStore) crewsKey() string {
	return s.keyPrefix + "crews"
}

// Append 追加一条记忆
func (s *RedisStore) Append(ctx context.Context, crew string, entry Entry) error {
	if crew == "" || entry.Content == "" {
		return ErrInvalidInput
	}

	fillEntry(&entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.crewKey(crew), data)
	pipe.SAdd(ctx, s.crewsKey(), crew)
	_, err = pipe.Exec(ctx)
	return err
}

// Entries 返回某 Crew 的全部记忆，按写入顺序
func (s *RedisStore) Entries(ctx context.Context, crew string) ([]Entry, error) {
	if crew == "" {
		return nil, ErrInvalidInput
	}

	items, err := s.client.LRange(ctx, s.crewKey(crew), 0, -1).Result()
	if err == redis.Nil {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Replace 整体替换某 Crew 的记忆
func (s *RedisStore) Replace(ctx context.Context, crew string, entries []Entry) error {
	if crew == "" {
		return ErrInvalidInput
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.crewKey(crew))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal memory entry: %w", err)
		}
		pipe.RPush(ctx, s.crewKey(crew), data)
	}
	pipe.SAdd(ctx, s.crewsKey(), crew)
	_, err := pipe.Exec(ctx)
	return err
}

// Crews 返回所有有记忆的 Crew，按字典序
func (s *RedisStore) Crews(ctx context.Context) ([]string, error) {
	crews, err := s.client.SMembers(ctx, s.crewsKey()).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(crews)
	return crews, nil
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
