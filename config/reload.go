// 注册表热重载管理器。
//
// 监听 crews.yaml / agents.yaml 变更，按 "装载 → 校验 → 原子替换" 的
// 顺序整体重建注册表。校验失败时旧注册表保持生效，重载频率由令牌桶
// 限流，每次成功替换都会留下带校验和的版本快照，支持回滚。
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/ados/depgraph"
	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/types"
)

// --- 类型定义 ---

// ReloadCallback 在注册表成功替换后触发
type ReloadCallback func(oldReg, newReg *registry.Registry, order []string)

// RejectCallback 在一次重载被拒绝（校验失败或限流）时触发
type RejectCallback func(source string, err error)

// RegistrySnapshot 是一次成功装载的注册表快照
type RegistrySnapshot struct {
	// Version 单调递增的版本号
	Version int `json:"version"`

	// Timestamp 快照创建时间
	Timestamp time.Time `json:"timestamp"`

	// Source 快照来源: init, file, manual, rollback
	Source string `json:"source"`

	// Checksum 注册表内容校验和（FNV）
	Checksum string `json:"checksum"`

	// CrewCount / AgentCount 规模概要
	CrewCount  int `json:"crew_count"`
	AgentCount int `json:"agent_count"`

	// Order 该版本的 crew 执行顺序
	Order []string `json:"order"`

	// 注册表不可变，跨快照共享是安全的
	reg *registry.Registry
}

// Registry 返回快照持有的注册表
func (s RegistrySnapshot) Registry() *registry.Registry {
	return s.reg
}

// ReloadManager 管理注册表的整体热重载
type ReloadManager struct {
	mu sync.RWMutex

	// 当前生效状态
	current *registry.Registry
	order   []string

	// 版本历史（环形）
	history    []RegistrySnapshot
	maxHistory int

	// 文件来源
	crewsPath  string
	agentsPath string
	debounce   time.Duration
	poll       time.Duration

	// 协作组件
	loader    registry.Loader
	validator *depgraph.Validator
	limiter   *rate.Limiter
	watcher   *FileWatcher

	// 回调
	reloadCallbacks []ReloadCallback
	rejectCallbacks []RejectCallback

	// 运行状态
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	logger *zap.Logger
}

// --- 选项 ---

// ReloadOption configures the ReloadManager
type ReloadOption func(*ReloadManager)

// WithReloadLogger 设置日志
func WithReloadLogger(logger *zap.Logger) ReloadOption {
	return func(m *ReloadManager) {
		m.logger = logger.With(zap.String("component", "reload_manager"))
	}
}

// WithRegistryFiles 设置被监听的注册表文件
func WithRegistryFiles(crewsPath, agentsPath string) ReloadOption {
	return func(m *ReloadManager) {
		m.crewsPath = crewsPath
		m.agentsPath = agentsPath
	}
}

// WithHistorySize 设置快照历史容量
func WithHistorySize(size int) ReloadOption {
	return func(m *ReloadManager) {
		if size > 0 {
			m.maxHistory = size
		}
	}
}

// WithRateLimit 设置重载限流：两次重载的最小间隔与突发容量
func WithRateLimit(minInterval time.Duration, burst int) ReloadOption {
	return func(m *ReloadManager) {
		if minInterval > 0 && burst > 0 {
			m.limiter = rate.NewLimiter(rate.Every(minInterval), burst)
		}
	}
}

// WithReloadDebounce 设置文件事件防抖时间
func WithReloadDebounce(d time.Duration) ReloadOption {
	return func(m *ReloadManager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithReloadPollInterval 设置文件轮询间隔
func WithReloadPollInterval(d time.Duration) ReloadOption {
	return func(m *ReloadManager) {
		if d > 0 {
			m.poll = d
		}
	}
}

// WithReloadLoader 替换注册表装载器
func WithReloadLoader(loader registry.Loader) ReloadOption {
	return func(m *ReloadManager) {
		m.loader = loader
	}
}

// --- 构造与生命周期 ---

// NewReloadManager 以已校验的初始注册表创建重载管理器
func NewReloadManager(initial *registry.Registry, order []string, opts ...ReloadOption) *ReloadManager {
	m := &ReloadManager{
		current:         initial,
		order:           append([]string(nil), order...),
		history:         make([]RegistrySnapshot, 0, 10),
		maxHistory:      10,
		debounce:        500 * time.Millisecond,
		poll:            1 * time.Second,
		loader:          registry.NewYAMLLoader(),
		limiter:         rate.NewLimiter(rate.Every(2*time.Second), 1),
		reloadCallbacks: make([]ReloadCallback, 0),
		rejectCallbacks: make([]RejectCallback, 0),
		logger:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.validator = depgraph.NewValidator(m.logger)

	// 初始注册表作为第一个历史快照
	m.pushHistory(initial, m.order, "init")

	return m
}

// Start 启动重载管理器，配置了注册表文件时开始监听变更
func (m *ReloadManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("reload manager already running")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	if m.crewsPath != "" {
		paths := []string{m.crewsPath}
		if m.agentsPath != "" {
			paths = append(paths, m.agentsPath)
		}

		watcher, err := NewFileWatcher(paths,
			WithWatcherLogger(m.logger),
			WithDebounceDelay(m.debounce),
			WithPollInterval(m.poll),
		)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}

		watcher.OnChange(m.handleFileChange)

		if err := watcher.Start(m.ctx); err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}

		m.watcher = watcher
	}

	m.running = true
	m.logger.Info("reload manager started",
		zap.String("crews_path", m.crewsPath),
		zap.String("agents_path", m.agentsPath))

	return nil
}

// Stop 停止重载管理器
func (m *ReloadManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	if m.cancel != nil {
		m.cancel()
	}

	if m.watcher != nil {
		if err := m.watcher.Stop(); err != nil {
			m.logger.Error("failed to stop file watcher", zap.Error(err))
		}
	}

	m.running = false
	m.logger.Info("reload manager stopped")

	return nil
}

// handleFileChange 文件变更触发整体重载
func (m *ReloadManager) handleFileChange(event FileEvent) {
	m.logger.Info("registry file changed",
		zap.String("path", event.Path),
		zap.String("op", event.Op.String()))

	if err := m.ReloadFromFiles(); err != nil {
		m.logger.Error("registry reload rejected, previous registry stays live",
			zap.Error(err))
	}
}

// --- 重载操作 ---

// ReloadFromFiles 从配置文件整体重建注册表。装载或校验失败时当前
// 注册表保持生效，限流拒绝报 RELOAD_REJECTED。
func (m *ReloadManager) ReloadFromFiles() error {
	if m.crewsPath == "" {
		return fmt.Errorf("no registry files configured")
	}

	if !m.limiter.Allow() {
		err := types.NewError(types.ErrReloadRejected, "reload rate limit exceeded")
		m.notifyReject("file", err)
		return err
	}

	newReg, err := m.loader.LoadFiles(m.crewsPath, m.agentsPath)
	if err != nil {
		m.notifyReject("file", err)
		return err
	}

	return m.apply(newReg, "file")
}

// Apply 以程序方式替换注册表（同样经过校验与限流）
func (m *ReloadManager) Apply(newReg *registry.Registry) error {
	if !m.limiter.Allow() {
		err := types.NewError(types.ErrReloadRejected, "reload rate limit exceeded")
		m.notifyReject("manual", err)
		return err
	}
	return m.apply(newReg, "manual")
}

// apply 校验新注册表并原子替换，失败时旧注册表保持生效
func (m *ReloadManager) apply(newReg *registry.Registry, source string) error {
	order, err := m.validator.Validate(newReg)
	if err != nil {
		m.notifyReject(source, err)
		return err
	}

	m.mu.Lock()
	oldReg := m.current
	m.current = newReg
	m.order = order
	m.pushHistory(newReg, order, source)
	version := m.history[len(m.history)-1].Version
	callbacks := make([]ReloadCallback, len(m.reloadCallbacks))
	copy(callbacks, m.reloadCallbacks)
	m.mu.Unlock()

	m.logger.Info("registry reloaded",
		zap.String("source", source),
		zap.Int("version", version),
		zap.Int("crews", newReg.NumCrews()),
		zap.Int("agents", newReg.NumAgents()),
	)

	for _, cb := range callbacks {
		cb(oldReg, newReg, order)
	}

	return nil
}

// Rollback 回滚到上一个历史版本
func (m *ReloadManager) Rollback() error {
	m.mu.Lock()

	if len(m.history) < 2 {
		m.mu.Unlock()
		return fmt.Errorf("no previous registry version to roll back to")
	}

	target := m.history[len(m.history)-2]
	oldReg := m.current
	m.current = target.reg
	m.order = append([]string(nil), target.Order...)
	m.pushHistory(target.reg, target.Order, "rollback")
	callbacks := make([]ReloadCallback, len(m.reloadCallbacks))
	copy(callbacks, m.reloadCallbacks)
	m.mu.Unlock()

	m.logger.Warn("registry rolled back",
		zap.Int("to_version", target.Version),
		zap.String("checksum", target.Checksum))

	for _, cb := range callbacks {
		cb(oldReg, target.reg, target.Order)
	}

	return nil
}

// --- 回调注册 ---

// OnReload 注册成功重载回调
func (m *ReloadManager) OnReload(cb ReloadCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadCallbacks = append(m.reloadCallbacks, cb)
}

// OnReject 注册拒绝回调
func (m *ReloadManager) OnReject(cb RejectCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectCallbacks = append(m.rejectCallbacks, cb)
}

func (m *ReloadManager) notifyReject(source string, err error) {
	m.mu.RLock()
	callbacks := make([]RejectCallback, len(m.rejectCallbacks))
	copy(callbacks, m.rejectCallbacks)
	m.mu.RUnlock()

	for _, cb := range callbacks {
		cb(source, err)
	}
}

// --- 状态访问 ---

// Registry 返回当前生效的注册表
func (m *ReloadManager) Registry() *registry.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Order 返回当前生效的 crew 执行顺序
func (m *ReloadManager) Order() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Version 返回当前版本号
func (m *ReloadManager) Version() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return 0
	}
	return m.history[len(m.history)-1].Version
}

// History 返回快照历史（最老在前）
func (m *ReloadManager) History() []RegistrySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]RegistrySnapshot, len(m.history))
	copy(history, m.history)
	return history
}

// IsRunning 报告管理器是否在运行
func (m *ReloadManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// --- 内部工具 ---

// pushHistory 推入版本快照（环形，调用方需持有写锁或处于构造期）
func (m *ReloadManager) pushHistory(reg *registry.Registry, order []string, source string) {
	version := 1
	if len(m.history) > 0 {
		version = m.history[len(m.history)-1].Version + 1
	}
	snapshot := RegistrySnapshot{
		Version:    version,
		Timestamp:  time.Now(),
		Source:     source,
		Checksum:   registryChecksum(reg),
		CrewCount:  reg.NumCrews(),
		AgentCount: reg.NumAgents(),
		Order:      append([]string(nil), order...),
		reg:        reg,
	}
	m.history = append(m.history, snapshot)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

// registryChecksum 计算注册表内容校验和（FNV hash）。
// 记录按标识符排序后序列化，同一内容必得同一校验和。
func registryChecksum(reg *registry.Registry) string {
	payload := struct {
		Crews  []registry.Crew  `json:"crews"`
		Agents []registry.Agent `json:"agents"`
	}{
		Crews:  reg.Crews(),
		Agents: reg.Agents(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	var hash uint64
	for _, b := range data {
		hash ^= uint64(b)
		hash *= 1099511628211
	}
	return fmt.Sprintf("%016x", hash)
}
