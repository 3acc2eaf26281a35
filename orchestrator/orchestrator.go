package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/ados/capability"
	"github.com/BaSui01/ados/config"
	"github.com/BaSui01/ados/decomposer"
	"github.com/BaSui01/ados/depgraph"
	"github.com/BaSui01/ados/internal/database"
	"github.com/BaSui01/ados/internal/metrics"
	"github.com/BaSui01/ados/internal/telemetry"
	"github.com/BaSui01/ados/memory"
	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/types"
	"github.com/BaSui01/ados/workspace"
)

// =============================================================================
// 🎯 ADOS 编排器
// =============================================================================

// Orchestrator 系统门面：装载注册表、校验依赖图、供给工作区、
// 初始化 Crew 记忆与运行历史库，并对外提供拆解、查询与热重载入口。
//
// Initialize 之后所有方法并发安全；注册表被热重载整体替换时，
// 访问器始终看到一致的注册表与执行顺序。
type Orchestrator struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	loader  registry.Loader

	mu          sync.RWMutex
	initialized bool
	reg         *registry.Registry
	order       []string
	matcher     *capability.Matcher
	decomp      *decomposer.Decomposer

	provisioner *workspace.Provisioner
	coordinator *memory.Coordinator
	runStore    *database.RunStore
	reloader    *config.ReloadManager
}

// Option 配置编排器
type Option func(*Orchestrator)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = collector
	}
}

// WithLoader 替换注册表装载器
func WithLoader(loader registry.Loader) Option {
	return func(o *Orchestrator) {
		if loader != nil {
			o.loader = loader
		}
	}
}

// New 创建编排器。构造是轻量的，重活都在 Initialize 里。
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrMalformedConfig, "configuration is nil")
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: telemetry.Tracer(),
		loader: registry.NewYAMLLoader(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))

	return o, nil
}

// =============================================================================
// 🚀 生命周期
// =============================================================================

// Initialize 装载并校验注册表，然后并行初始化工作区、Crew 记忆
// 与运行历史库。任何阶段失败都会在派发任何任务之前返回结构化错误。
// 已初始化时再次调用是空操作。
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.RLock()
	ready := o.initialized
	o.mu.RUnlock()
	if ready {
		o.logger.Debug("orchestrator already initialized")
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.initialize")
	defer span.End()

	o.logger.Info("initializing ADOS orchestrator",
		zap.String("crews_path", o.cfg.Registry.CrewsPath()),
		zap.String("agents_path", o.cfg.Registry.AgentsPath()))

	// 装载注册表
	reg, err := o.loader.LoadFiles(o.cfg.Registry.CrewsPath(), o.cfg.Registry.AgentsPath())
	if err != nil {
		o.recordRegistryLoad("error")
		span.RecordError(err)
		return err
	}
	o.recordRegistryLoad("ok")

	// 校验依赖图
	start := time.Now()
	order, err := depgraph.NewValidator(o.logger).Validate(reg)
	elapsed := time.Since(start)
	if err != nil {
		o.recordValidation(outcomeOf(err), elapsed)
		o.persistFailedValidation(ctx, err, elapsed)
		span.RecordError(err)
		return err
	}
	o.recordValidation("ok", elapsed)

	for _, warning := range reg.IntegrityWarnings() {
		o.logger.Warn(warning)
	}

	// 工作区、记忆与运行历史库并行初始化
	var (
		prov  *workspace.Provisioner
		coord *memory.Coordinator
		store *database.RunStore
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p := workspace.NewProvisioner(o.cfg.Workspace.Directory,
			workspace.WithKnowledgeDir(o.cfg.Workspace.KnowledgeDir),
			workspace.WithLogger(o.logger))
		if _, err := p.Provision(gctx, order, false); err != nil {
			return err
		}
		prov = p
		return nil
	})

	g.Go(func() error {
		st, err := memory.NewStore(storeConfig(o.cfg))
		if err != nil {
			return types.NewError(types.ErrMemoryStore,
				fmt.Sprintf("failed to open memory store: %v", err)).WithCause(err)
		}
		opts := append(coordinatorOptions(o.cfg), memory.WithLogger(o.logger))
		c := memory.NewCoordinator(st, opts...)
		if err := c.Ping(gctx); err != nil {
			_ = c.Close()
			return types.NewError(types.ErrMemoryStore,
				fmt.Sprintf("memory store ping failed: %v", err)).WithCause(err)
		}
		coord = c
		return nil
	})

	g.Go(func() error {
		s, err := o.openRunStore(gctx)
		if err != nil {
			return err
		}
		store = s
		return nil
	})

	if err := g.Wait(); err != nil {
		if coord != nil {
			_ = coord.Close()
		}
		if store != nil {
			_ = store.Close()
		}
		span.RecordError(err)
		return err
	}

	matcher := capability.NewMatcher(reg, o.logger)
	decomp := decomposer.New(order, decomposer.WithLogger(o.logger))

	o.mu.Lock()
	o.reg = reg
	o.order = append([]string(nil), order...)
	o.matcher = matcher
	o.decomp = decomp
	o.provisioner = prov
	o.coordinator = coord
	o.runStore = store
	o.initialized = true
	o.mu.Unlock()

	// 校验报告落库，失败只降级为告警
	report := &database.ValidationReport{
		OK:         true,
		CrewOrder:  database.JoinCrews(order),
		DurationMS: elapsed.Milliseconds(),
	}
	if err := store.RecordValidation(ctx, report); err != nil {
		o.recordRunStoreQuery("record_validation", "error")
		o.logger.Warn("failed to persist validation report", zap.Error(err))
	} else {
		o.recordRunStoreQuery("record_validation", "ok")
	}

	if o.cfg.Reload.Enabled {
		if err := o.startReloader(reg, order); err != nil {
			span.RecordError(err)
			o.logger.Warn("registry hot reload unavailable", zap.Error(err))
		}
	}

	span.SetAttributes(
		attribute.Int("crews", reg.NumCrews()),
		attribute.Int("agents", reg.NumAgents()),
	)
	o.logger.Info("ADOS orchestrator initialized",
		zap.Int("crews", reg.NumCrews()),
		zap.Int("agents", reg.NumAgents()),
		zap.Strings("order", order))

	return nil
}

// Shutdown 停止热重载、关闭记忆存储与运行历史库并刷新日志。
// 未初始化时是空操作。
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.initialized {
		o.mu.Unlock()
		return nil
	}
	o.initialized = false
	rm := o.reloader
	coord := o.coordinator
	store := o.runStore
	o.reloader = nil
	o.coordinator = nil
	o.runStore = nil
	o.mu.Unlock()

	o.logger.Info("shutting down ADOS orchestrator")

	var errs []error
	if rm != nil {
		if err := rm.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop reload manager: %w", err))
		}
	}
	if coord != nil {
		if err := coord.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close memory coordinator: %w", err))
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close run store: %w", err))
		}
	}

	o.logger.Info("ADOS orchestrator shutdown complete")
	_ = o.logger.Sync()

	return errors.Join(errs...)
}

// Reload 整体重建注册表。启用热重载时走重载管理器（限流、快照
// 历史），否则直接装载加校验后原子替换；失败时旧注册表保持生效。
func (o *Orchestrator) Reload(ctx context.Context) error {
	o.mu.RLock()
	if !o.initialized {
		o.mu.RUnlock()
		return errNotInitialized()
	}
	rm := o.reloader
	o.mu.RUnlock()

	_, span := o.tracer.Start(ctx, "orchestrator.reload")
	defer span.End()

	if rm != nil {
		if err := rm.ReloadFromFiles(); err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}

	reg, err := o.loader.LoadFiles(o.cfg.Registry.CrewsPath(), o.cfg.Registry.AgentsPath())
	if err != nil {
		o.recordReload("rejected", "manual")
		span.RecordError(err)
		return err
	}
	order, err := depgraph.NewValidator(o.logger).Validate(reg)
	if err != nil {
		o.recordReload("rejected", "manual")
		span.RecordError(err)
		return err
	}

	o.swap(reg, order)
	o.recordReload("applied", "manual")
	o.logger.Info("registry reloaded",
		zap.Int("crews", reg.NumCrews()),
		zap.Int("agents", reg.NumAgents()))
	return nil
}

// =============================================================================
// 🧩 任务入口
// =============================================================================

// Run 拆解任务、持久化运行记录并把子任务写入各 Crew 的记忆流。
// 运行记录与记忆写入失败只降级为告警，计划照常返回。
func (o *Orchestrator) Run(ctx context.Context, task string) (*decomposer.Plan, error) {
	o.mu.RLock()
	if !o.initialized {
		o.mu.RUnlock()
		return nil, errNotInitialized()
	}
	decomp := o.decomp
	coord := o.coordinator
	store := o.runStore
	o.mu.RUnlock()

	ctx, span := o.tracer.Start(ctx, "orchestrator.run")
	defer span.End()

	plan, err := decomp.Decompose(task)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	o.recordDecomposition(plan.Complexity, len(plan.Subtasks))
	span.SetAttributes(
		attribute.String("complexity", plan.Complexity),
		attribute.Int("subtasks", len(plan.Subtasks)),
	)

	// 运行与追踪标识下传，让落库与记忆写入的日志可以关联回本次 Run
	ctx = types.WithRunID(ctx, plan.ID)
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = types.WithTraceID(ctx, sc.TraceID().String())
	}

	run := &database.Run{
		ID:           plan.ID,
		Task:         plan.Task,
		Complexity:   plan.Complexity,
		Priority:     plan.Priority,
		SubtaskCount: len(plan.Subtasks),
		Crews:        database.JoinCrews(plan.ExecutionOrder),
		CreatedAt:    plan.CreatedAt,
	}
	if err := store.RecordRun(ctx, run); err != nil {
		o.recordRunStoreQuery("record_run", "error")
		o.logger.Warn("failed to persist run record",
			zap.String("run_id", plan.ID), zap.Error(err))
	} else {
		o.recordRunStoreQuery("record_run", "ok")
	}

	for _, st := range plan.Subtasks {
		content := fmt.Sprintf("[%s] %s", st.Priority, st.Description)
		if _, err := coord.Append(ctx, st.Crew, content); err != nil {
			o.recordMemoryOp("append", "error")
			o.logger.Warn("failed to append crew memory",
				zap.String("crew", st.Crew), zap.Error(err))
			continue
		}
		o.recordMemoryOp("append", "ok")
		coord.AppendSession(st.Crew, st.Description)
	}

	o.logger.Info("task decomposed",
		zap.String("run_id", plan.ID),
		zap.String("complexity", plan.Complexity),
		zap.Int("subtasks", len(plan.Subtasks)),
		zap.Strings("execution_order", plan.ExecutionOrder))

	return plan, nil
}

// =============================================================================
// 🔍 访问器
// =============================================================================

// IsInitialized 报告编排器是否已完成初始化
func (o *Orchestrator) IsInitialized() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.initialized
}

// Crew 返回指定 Crew 的声明记录
func (o *Orchestrator) Crew(id string) (registry.Crew, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.initialized {
		return registry.Crew{}, errNotInitialized()
	}
	crew, ok := o.reg.Crew(id)
	if !ok {
		return registry.Crew{}, types.NewError(types.ErrUnknownCrewRef,
			fmt.Sprintf("crew %q not found", id)).WithIDs(id)
	}
	return crew, nil
}

// Agent 返回指定 Agent 的声明记录
func (o *Orchestrator) Agent(id string) (registry.Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.initialized {
		return registry.Agent{}, errNotInitialized()
	}
	agent, ok := o.reg.Agent(id)
	if !ok {
		return registry.Agent{}, types.NewError(types.ErrUnknownAgent,
			fmt.Sprintf("agent %q not found", id)).WithIDs(id)
	}
	return agent, nil
}

// AgentsInCrew 返回属于指定 Crew 的所有 Agent
func (o *Orchestrator) AgentsInCrew(crewID string) ([]registry.Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.initialized {
		return nil, errNotInitialized()
	}
	if !o.reg.HasCrew(crewID) {
		return nil, types.NewError(types.ErrUnknownCrewRef,
			fmt.Sprintf("crew %q not found", crewID)).WithIDs(crewID)
	}
	return o.reg.AgentsInCrew(crewID), nil
}

// ListCrews 返回全部 Crew 标识符，未初始化时为空
func (o *Orchestrator) ListCrews() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.initialized {
		return nil
	}
	return o.reg.CrewIDs()
}

// ListAgents 返回全部 Agent 标识符，未初始化时为空
func (o *Orchestrator) ListAgents() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.initialized {
		return nil
	}
	return o.reg.AgentIDs()
}

// Order 返回当前生效的 Crew 执行顺序
func (o *Orchestrator) Order() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.order...)
}

// Registry 返回当前生效的注册表，未初始化时为 nil
func (o *Orchestrator) Registry() *registry.Registry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reg
}

// Capabilities 解析指定 Agent 的有效能力
func (o *Orchestrator) Capabilities(agentID string) (*capability.Capabilities, error) {
	o.mu.RLock()
	if !o.initialized {
		o.mu.RUnlock()
		return nil, errNotInitialized()
	}
	matcher := o.matcher
	o.mu.RUnlock()

	caps, err := matcher.Resolve(agentID)
	if err != nil {
		o.recordCapabilityResolution("error")
		return nil, err
	}
	o.recordCapabilityResolution("ok")
	return caps, nil
}

// Memory 返回 Crew 记忆协调器，未初始化时为 nil
func (o *Orchestrator) Memory() *memory.Coordinator {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.coordinator
}

// RunStore 返回运行历史存储，未初始化时为 nil
func (o *Orchestrator) RunStore() *database.RunStore {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.runStore
}

// =============================================================================
// 🔧 内部
// =============================================================================

// openRunStore 打开运行历史库。sqlite 默认零配置，自动建表；
// mysql/postgres 的版本化建表走 ados migrate。
func (o *Orchestrator) openRunStore(ctx context.Context) (*database.RunStore, error) {
	pool, err := database.NewPool(o.cfg.Database, o.logger)
	if err != nil {
		return nil, types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to open run history database: %v", err)).WithCause(err)
	}
	if o.cfg.Database.Driver == "sqlite" {
		if err := pool.DB().AutoMigrate(&database.Run{}, &database.ValidationReport{}); err != nil {
			_ = pool.Close()
			return nil, types.NewError(types.ErrRunStore,
				fmt.Sprintf("failed to migrate run history schema: %v", err)).WithCause(err)
		}
	}
	store := database.NewRunStore(pool, o.logger)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, types.NewError(types.ErrRunStore,
			fmt.Sprintf("run history database ping failed: %v", err)).WithCause(err)
	}
	return store, nil
}

// persistFailedValidation 尽力把失败的校验报告落库。
// 运行历史库此刻尚未打开，临时开一条连接，写不进去只记 Debug。
func (o *Orchestrator) persistFailedValidation(ctx context.Context, verr error, elapsed time.Duration) {
	store, err := o.openRunStore(ctx)
	if err != nil {
		o.logger.Debug("run store unavailable for failed validation report", zap.Error(err))
		return
	}
	defer func() { _ = store.Close() }()

	report := &database.ValidationReport{
		OK:         false,
		ErrorCode:  string(types.GetErrorCode(verr)),
		Detail:     verr.Error(),
		DurationMS: elapsed.Milliseconds(),
	}
	if err := store.RecordValidation(ctx, report); err != nil {
		o.logger.Debug("failed to persist failed validation report", zap.Error(err))
	}
}

// startReloader 构建并启动注册表热重载，重载成功后整体换入新注册表
func (o *Orchestrator) startReloader(reg *registry.Registry, order []string) error {
	rm := config.NewReloadManager(reg, order,
		config.WithReloadLogger(o.logger),
		config.WithRegistryFiles(o.cfg.Registry.CrewsPath(), o.cfg.Registry.AgentsPath()),
		config.WithReloadLoader(o.loader),
		config.WithHistorySize(o.cfg.Reload.MaxHistorySize),
		config.WithRateLimit(o.cfg.Reload.MinInterval, o.cfg.Reload.Burst),
		config.WithReloadDebounce(o.cfg.Reload.DebounceDelay),
	)

	rm.OnReload(func(_, newReg *registry.Registry, newOrder []string) {
		o.swap(newReg, newOrder)
		source := "file"
		version := 0
		if history := rm.History(); len(history) > 0 {
			last := history[len(history)-1]
			source = last.Source
			version = last.Version
		}
		o.recordReload("applied", source)
		o.logger.Info("orchestrator adopted reloaded registry",
			zap.Int("version", version),
			zap.String("source", source),
			zap.Strings("order", newOrder))
	})
	rm.OnReject(func(source string, err error) {
		o.recordReload("rejected", source)
		o.logger.Warn("registry reload rejected, previous registry stays live",
			zap.String("source", source), zap.Error(err))
	})

	// 监听与编排器同寿命，不随 Initialize 的 ctx 取消
	if err := rm.Start(context.Background()); err != nil {
		return err
	}

	o.mu.Lock()
	o.reloader = rm
	o.mu.Unlock()
	return nil
}

// swap 原子换入新注册表及其派生组件
func (o *Orchestrator) swap(reg *registry.Registry, order []string) {
	matcher := capability.NewMatcher(reg, o.logger)
	decomp := decomposer.New(order, decomposer.WithLogger(o.logger))

	o.mu.Lock()
	o.reg = reg
	o.order = append([]string(nil), order...)
	o.matcher = matcher
	o.decomp = decomp
	o.mu.Unlock()
}

// storeConfig 把应用配置映射为记忆存储配置
func storeConfig(cfg *config.Config) memory.StoreConfig {
	sc := memory.DefaultStoreConfig()
	if cfg.Memory.Backend != "" {
		sc.Type = memory.StoreType(cfg.Memory.Backend)
	}
	if cfg.Memory.Directory != "" {
		sc.Directory = cfg.Memory.Directory
	}
	if cfg.Redis.Addr != "" {
		sc.Redis.Addr = cfg.Redis.Addr
	}
	sc.Redis.Password = cfg.Redis.Password
	sc.Redis.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		sc.Redis.PoolSize = cfg.Redis.PoolSize
	}
	return sc
}

// coordinatorOptions 把应用配置映射为记忆协调器选项
func coordinatorOptions(cfg *config.Config) []memory.CoordinatorOption {
	opts := []memory.CoordinatorOption{}
	if cfg.Memory.MaxSizeMB > 0 {
		opts = append(opts, memory.WithMaxBytes(int64(cfg.Memory.MaxSizeMB)*1024*1024))
	}
	if cfg.Memory.SessionMaxEntries > 0 {
		opts = append(opts, memory.WithSessionMaxEntries(cfg.Memory.SessionMaxEntries))
	}
	return opts
}

func errNotInitialized() error {
	return types.NewError(types.ErrInternalError,
		"orchestrator not initialized, call Initialize first")
}

// outcomeOf 把校验错误映射为指标 outcome 标签（小写错误码）
func outcomeOf(err error) string {
	code := types.GetErrorCode(err)
	if code == "" {
		code = types.ErrInternalError
	}
	return strings.ToLower(string(code))
}

// --- 指标封装（收集器未配置时为空操作） ---

func (o *Orchestrator) recordRegistryLoad(status string) {
	if o.metrics != nil {
		o.metrics.RecordRegistryLoad(status)
	}
}

func (o *Orchestrator) recordValidation(outcome string, duration time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordValidation(outcome, duration)
	}
}

func (o *Orchestrator) recordCapabilityResolution(status string) {
	if o.metrics != nil {
		o.metrics.RecordCapabilityResolution(status)
	}
}

func (o *Orchestrator) recordReload(result, source string) {
	if o.metrics != nil {
		o.metrics.RecordReload(result, source)
	}
}

func (o *Orchestrator) recordMemoryOp(operation, status string) {
	if o.metrics != nil {
		o.metrics.RecordMemoryOp(operation, status)
	}
}

func (o *Orchestrator) recordDecomposition(complexity string, subtasks int) {
	if o.metrics != nil {
		o.metrics.RecordDecomposition(complexity, subtasks)
	}
}

func (o *Orchestrator) recordRunStoreQuery(operation, status string) {
	if o.metrics != nil {
		o.metrics.RecordRunStoreQuery(operation, status)
	}
}
