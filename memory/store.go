package memory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common store errors
var (
	// ErrNotFound is returned when a crew has no stored memory
	ErrNotFound = errors.New("memory: not found")

	// ErrStoreClosed is returned when operating on a closed store
	ErrStoreClosed = errors.New("memory: store is closed")

	// ErrInvalidInput is returned when the input is invalid
	ErrInvalidInput = errors.New("memory: invalid input")
)

// StoreType represents the storage backend type
type StoreType string

const (
	// StoreTypeMemory is the in-memory storage backend
	StoreTypeMemory StoreType = "memory"

	// StoreTypeFile is the file-based storage backend
	StoreTypeFile StoreType = "file"

	// StoreTypeRedis is the Redis storage backend
	StoreTypeRedis StoreType = "redis"
)

// Entry 单条 Crew 记忆。Timestamp 与 ID 在写入时由存储补齐。
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// Store 是 Crew 记忆流的存储抽象。每个 Crew 对应一条按写入顺序
// 排列的 entry 列表；Replace 整体替换，供截断使用。
type Store interface {
	// Append 追加一条记忆。ID 为空时生成 uuid，时间戳为零值时取当前时间。
	Append(ctx context.Context, crew string, entry Entry) error

	// Entries 返回某 Crew 的全部记忆，按写入顺序（最老在前）。
	// 无记忆时返回空切片。
	Entries(ctx context.Context, crew string) ([]Entry, error)

	// Replace 用给定列表整体替换某 Crew 的记忆。空列表清空该 Crew。
	Replace(ctx context.Context, crew string, entries []Entry) error

	// Crews 返回所有有记忆的 Crew 标识符，按字典序升序。
	Crews(ctx context.Context) ([]string, error)

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error

	// Close closes the store and releases resources
	Close() error
}

// StoreConfig is the base configuration for all store implementations
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the base directory for file-based storage
	Directory string `json:"directory" yaml:"directory"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisOptions `json:"redis" yaml:"redis"`
}

// RedisOptions contains Redis-specific configuration
type RedisOptions struct {
	// Addr is the Redis server address (host:port)
	Addr string `json:"addr" yaml:"addr"`

	// Password is the Redis password (optional)
	Password string `json:"password" yaml:"password"`

	// DB is the Redis database number
	DB int `json:"db" yaml:"db"`

	// PoolSize is the connection pool size
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// KeyPrefix is the prefix for all Redis keys
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:      StoreTypeMemory,
		Directory: "./memory/crew_memory",
		Redis: RedisOptions{
			Addr:      "localhost:6379",
			DB:        0,
			PoolSize:  10,
			KeyPrefix: "ados:",
		},
	}
}

// NewStore creates a new Store based on the configuration
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile:
		return NewFileStore(config.Directory)
	case StoreTypeRedis:
		return NewRedisStore(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported memory store type: %s", config.Type)
	}
}
