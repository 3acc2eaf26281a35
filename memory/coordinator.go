package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/ados/types"
)

const (
	// DefaultMaxBytes 单个 Crew 记忆的默认体积上限（100 MB）
	DefaultMaxBytes int64 = 100 * 1024 * 1024

	// DefaultSessionMaxEntries 会话环形缓冲的默认容量
	DefaultSessionMaxEntries = 1000

	// recentLimit Recent 读取返回的条数上限
	recentLimit = 10

	// tokenEncoding token 统计使用的 tiktoken 编码
	tokenEncoding = "cl100k_base"
)

// CrewStats 单个 Crew 的记忆统计
type CrewStats struct {
	Crew      string  `json:"crew"`
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	Tokens    int     `json:"tokens"`
}

// SessionStats 单个 Crew 的会话记忆统计
type SessionStats struct {
	Crew       string `json:"crew"`
	Entries    int    `json:"entries"`
	MaxEntries int    `json:"max_entries"`
}

// Status 记忆系统的整体状态
type Status struct {
	Crews    []CrewStats    `json:"crews"`
	Sessions []SessionStats `json:"sessions"`
}

// Coordinator 在 Store 之上叠加记忆策略：
//
//   - Crew 记忆：持久化追加，超过体积上限时最老条目先被截断
//   - 会话记忆：进程内环形缓冲，容量固定，不落盘
//   - 统计：条目数、字节体积、token 占用（LLM 上下文预算用）
//
// 所有方法并发安全。
type Coordinator struct {
	store      Store
	logger     *zap.Logger
	maxBytes   int64
	sessionMax int

	mu       sync.Mutex
	sizes    map[string]int64
	sessions map[string][]Entry

	tokOnce sync.Once
	counter types.TokenCounter
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxBytes 设置单个 Crew 记忆的体积上限
func WithMaxBytes(n int64) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithSessionMaxEntries 设置会话环形缓冲容量
func WithSessionMaxEntries(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.sessionMax = n
		}
	}
}

// WithTokenCounter 注入自定义 token 计数器，默认 tiktoken cl100k_base
func WithTokenCounter(tc types.TokenCounter) CoordinatorOption {
	return func(c *Coordinator) {
		if tc != nil {
			c.counter = tc
		}
	}
}

// NewCoordinator creates a memory coordinator on top of the given store
func NewCoordinator(store Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:      store,
		logger:     zap.NewNop(),
		maxBytes:   DefaultMaxBytes,
		sessionMax: DefaultSessionMaxEntries,
		sizes:      make(map[string]int64),
		sessions:   make(map[string][]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "memory_coordinator"))
	return c
}

// Append 向某 Crew 的持久记忆追加一条内容，返回写入的条目。
// 追加后若体积超限，最老条目先被截断。
func (c *Coordinator) Append(ctx context.Context, crew, content string) (*Entry, error) {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Content:   content,
	}

	if err := c.store.Append(ctx, crew, entry); err != nil {
		return nil, types.NewError(types.ErrMemoryStore,
			fmt.Sprintf("failed to append crew memory: %v", err)).
			WithIDs(crew).WithCause(err)
	}

	// 追加日志携带调用链里的运行与追踪标识，便于关联一次 Run 的产出
	fields := []zap.Field{zap.String("crew", crew), zap.String("entry_id", entry.ID)}
	if runID, ok := types.RunID(ctx); ok {
		fields = append(fields, zap.String("run_id", runID))
	}
	if traceID, ok := types.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	c.logger.Debug("crew memory appended", fields...)

	c.mu.Lock()
	defer c.mu.Unlock()

	size, seeded := c.sizes[crew]
	if !seeded {
		// 首次接触该 Crew，从存储补齐体积账目（含刚写入的条目）
		entries, err := c.store.Entries(ctx, crew)
		if err != nil {
			return nil, types.NewError(types.ErrMemoryStore,
				fmt.Sprintf("failed to read crew memory: %v", err)).
				WithIDs(crew).WithCause(err)
		}
		for _, e := range entries {
			size += entrySize(e)
		}
	} else {
		size += entrySize(entry)
	}
	c.sizes[crew] = size

	if size > c.maxBytes {
		c.logger.Warn("crew memory exceeds size limit, truncating",
			zap.String("crew", crew),
			zap.Int64("size_bytes", size),
			zap.Int64("max_bytes", c.maxBytes))
		if err := c.truncateLocked(ctx, crew); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}

// truncateLocked 丢弃最老条目直到体积回到上限以内。调用方需持有锁。
func (c *Coordinator) truncateLocked(ctx context.Context, crew string) error {
	entries, err := c.store.Entries(ctx, crew)
	if err != nil {
		return types.NewError(types.ErrMemoryStore,
			fmt.Sprintf("failed to read crew memory: %v", err)).
			WithIDs(crew).WithCause(err)
	}

	var total int64
	sizes := make([]int64, len(entries))
	for i, e := range entries {
		sizes[i] = entrySize(e)
		total += sizes[i]
	}

	drop := 0
	for drop < len(entries) && total > c.maxBytes {
		total -= sizes[drop]
		drop++
	}
	if drop == 0 {
		c.sizes[crew] = total
		return nil
	}

	kept := entries[drop:]
	if err := c.store.Replace(ctx, crew, kept); err != nil {
		return types.NewError(types.ErrMemoryStore,
			fmt.Sprintf("failed to truncate crew memory: %v", err)).
			WithIDs(crew).WithCause(err)
	}
	c.sizes[crew] = total

	c.logger.Info("truncated crew memory",
		zap.String("crew", crew),
		zap.Int("dropped", drop),
		zap.Int("kept", len(kept)))
	return nil
}

// Recent 返回某 Crew 最近的记忆（至多 10 条），每条格式为
// "[时间戳] 内容"，按写入顺序换行拼接。无记忆时返回空串。
func (c *Coordinator) Recent(ctx context.Context, crew string) (string, error) {
	entries, err := c.store.Entries(ctx, crew)
	if err != nil {
		return "", types.NewError(types.ErrMemoryStore,
			fmt.Sprintf("failed to read crew memory: %v", err)).
			WithIDs(crew).WithCause(err)
	}
	return formatRecent(entries), nil
}

// AppendSession 向某 Crew 的会话环形缓冲追加一条内容。
// 超出容量时最老条目被挤出。会话记忆只存在于进程内。
func (c *Coordinator) AppendSession(crew, content string) {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Content:   content,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ring := append(c.sessions[crew], entry)
	if len(ring) > c.sessionMax {
		ring = ring[len(ring)-c.sessionMax:]
	}
	c.sessions[crew] = ring
}

// RecentSession 返回某 Crew 会话记忆中最近的条目（至多 10 条），
// 格式与 Recent 相同。无记忆时返回空串。
func (c *Coordinator) RecentSession(crew string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return formatRecent(c.sessions[crew])
}

// Stats 返回某 Crew 的记忆统计：条目数、字节体积与 token 估算
func (c *Coordinator) Stats(ctx context.Context, crew string) (*CrewStats, error) {
	entries, err := c.store.Entries(ctx, crew)
	if err != nil {
		return nil, types.NewError(types.ErrMemoryStore,
			fmt.Sprintf("failed to read crew memory: %v", err)).
			WithIDs(crew).WithCause(err)
	}

	var bytes int64
	tokens := 0
	for _, e := range entries {
		bytes += entrySize(e)
		tokens += c.countTokens(e.Content)
	}

	return &CrewStats{
		Crew:      crew,
		Entries:   len(entries),
		SizeBytes: bytes,
		SizeMB:    float64(bytes) / (1024 * 1024),
		Tokens:    tokens,
	}, nil
}

// MemoryStatus 返回记忆系统的整体状态：所有 Crew 的持久记忆统计
// 与会话缓冲占用，均按 Crew 标识符升序。
func (c *Coordinator) MemoryStatus(ctx context.Context) (*Status, error) {
	crews, err := c.store.Crews(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrMemoryStore,
			fmt.Sprintf("failed to list crews: %v", err)).WithCause(err)
	}

	status := &Status{
		Crews:    make([]CrewStats, 0, len(crews)),
		Sessions: make([]SessionStats, 0),
	}

	for _, crew := range crews {
		stats, err := c.Stats(ctx, crew)
		if err != nil {
			return nil, err
		}
		status.Crews = append(status.Crews, *stats)
	}

	c.mu.Lock()
	sessionCrews := make([]string, 0, len(c.sessions))
	for crew := range c.sessions {
		sessionCrews = append(sessionCrews, crew)
	}
	counts := make(map[string]int, len(c.sessions))
	for crew, ring := range c.sessions {
		counts[crew] = len(ring)
	}
	c.mu.Unlock()

	sort.Strings(sessionCrews)
	for _, crew := range sessionCrews {
		status.Sessions = append(status.Sessions, SessionStats{
			Crew:       crew,
			Entries:    counts[crew],
			MaxEntries: c.sessionMax,
		})
	}

	return status, nil
}

// Ping checks if the underlying store is healthy
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close closes the underlying store
func (c *Coordinator) Close() error {
	return c.store.Close()
}

// countTokens 估算一段内容的 token 数。未注入计数器时优先使用
// cl100k_base 编码，编码不可用时（离线环境）退回字符数估算器。
func (c *Coordinator) countTokens(content string) int {
	if content == "" {
		return 0
	}

	c.tokOnce.Do(func() {
		if c.counter != nil {
			return
		}
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			c.logger.Warn("tiktoken encoding unavailable, falling back to estimator",
				zap.String("encoding", tokenEncoding), zap.Error(err))
			c.counter = types.NewEstimateTokenizer()
			return
		}
		c.counter = &tiktokenCounter{enc: enc}
	})

	return c.counter.CountTokens(content)
}

// tiktokenCounter 基于 tiktoken 编码的精确计数
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenCounter) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

var _ types.TokenCounter = (*tiktokenCounter)(nil)

// entrySize 一条记忆的序列化字节体积
func entrySize(e Entry) int64 {
	data, err := json.Marshal(e)
	if err != nil {
		return int64(len(e.Content))
	}
	return int64(len(data))
}

// formatRecent 取最近 recentLimit 条格式化为多行文本
func formatRecent(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > recentLimit {
		entries = entries[len(entries)-recentLimit:]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s", e.Timestamp.Format(time.RFC3339), e.Content))
	}
	return strings.Join(lines, "\n")
}
