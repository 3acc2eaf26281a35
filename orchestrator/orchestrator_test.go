package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/ados/config"
	"github.com/BaSui01/ados/decomposer"
	"github.com/BaSui01/ados/internal/database"
	"github.com/BaSui01/ados/types"
)

// --- 测试辅助 ---

const testCrewsYAML = `
orchestrator:
  goal: "Coordinate all crews"
  agents: [OrchestratorAgent]
  constraints: [single_source_of_truth]
  tools: [orchestration.task_decomposer]
security:
  goal: "Harden the platform"
  agents: [AuthAgent]
  constraints: [least_privilege]
  dependencies: [orchestrator]
  tools: [sectools.scanner]
backend:
  goal: "Deliver backend services"
  agents: [APIAgent]
  constraints: [tdd_required]
  dependencies: [security]
  tools: [codegen.generator]
`

const testAgentsYAML = `
orchestrator:
  - role: OrchestratorAgent
    goal: "Plan and dispatch work"
    backstory: "Coordinator of the system."
    tools: [orchestration.task_decomposer]
security:
  - role: AuthAgent
    goal: "Implement authentication"
    backstory: "Security engineer."
    tools: [sectools.scanner]
backend:
  - role: APIAgent
    goal: "Build REST endpoints"
    backstory: "API engineer."
    tools: [codegen.generator]
`

const frontendCrewYAML = `
frontend:
  goal: "Build user interfaces"
  agents: [UIAgent]
  constraints: [accessibility]
  dependencies: [backend]
  tools: [uitools.builder]
`

const frontendAgentYAML = `
frontend:
  - role: UIAgent
    goal: "Build components"
    backstory: "Frontend engineer."
    tools: [uitools.builder]
`

const cyclicCrewsYAML = `
backend:
  goal: "Deliver backend services"
  agents: [APIAgent]
  constraints: [tdd_required]
  dependencies: [security]
  tools: [codegen.generator]
security:
  goal: "Harden the platform"
  agents: [AuthAgent]
  constraints: [least_privilege]
  dependencies: [backend]
  tools: [sectools.scanner]
`

// cyclicAgentsYAML 与 cyclicCrewsYAML 配套：只保留环上两个 crew 的
// agent，避免孤儿检查先于环检测报错。
const cyclicAgentsYAML = `
backend:
  - role: APIAgent
    goal: "Build REST endpoints"
    backstory: "API engineer."
    tools: [codegen.generator]
security:
  - role: AuthAgent
    goal: "Implement authentication"
    backstory: "Security engineer."
    tools: [sectools.scanner]
`

// testConfig 构造指向临时目录的配置：内存记忆后端、
// 临时 sqlite 运行历史库、热重载默认关闭。
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "crews.yaml"), []byte(testCrewsYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.yaml"), []byte(testAgentsYAML), 0644))

	cfg := config.DefaultConfig()
	cfg.Registry.ConfigDir = dir
	cfg.Workspace.Directory = filepath.Join(dir, "workspace")
	cfg.Memory.Backend = "memory"
	cfg.Database.Name = filepath.Join(dir, "history.db")
	cfg.Reload.Enabled = false
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	o, err := New(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })
	return o
}

func initialized(t *testing.T) (*Orchestrator, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg)
	require.NoError(t, o.Initialize(context.Background()))
	return o, cfg
}

// --- 构造与初始化 ---

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMalformedConfig))
}

func TestInitialize(t *testing.T) {
	o, cfg := initialized(t)
	ctx := context.Background()

	assert.True(t, o.IsInitialized())
	assert.Equal(t, []string{"orchestrator", "security", "backend"}, o.Order())

	// 工作区已供给
	assert.FileExists(t, filepath.Join(cfg.Workspace.Directory, "todo.md"))
	assert.DirExists(t, filepath.Join(cfg.Workspace.Directory, "backend", "kb"))
	assert.FileExists(t, filepath.Join(cfg.Workspace.Directory, "security", "runtime.md"))

	// 校验报告已落库
	last, err := o.RunStore().LastValidation(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.OK)
	assert.Equal(t, []string{"orchestrator", "security", "backend"}, last.OrderList())
	assert.GreaterOrEqual(t, last.DurationMS, int64(0))

	// 再次初始化是空操作
	require.NoError(t, o.Initialize(ctx))
}

func TestInitialize_MissingCrewsFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.Registry.CrewsPath()))

	o := newTestOrchestrator(t, cfg)
	err := o.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigNotFound))
	assert.False(t, o.IsInitialized())
}

func TestInitialize_CyclicDependency(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Registry.CrewsPath(), []byte(cyclicCrewsYAML), 0644))
	require.NoError(t, os.WriteFile(cfg.Registry.AgentsPath(), []byte(cyclicAgentsYAML), 0644))

	o := newTestOrchestrator(t, cfg)
	err := o.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCyclicDependency))
	assert.False(t, o.IsInitialized())

	// 失败的校验报告也会尽力落库
	pool, err := database.NewPool(cfg.Database, zaptest.NewLogger(t))
	require.NoError(t, err)
	store := database.NewRunStore(pool, zaptest.NewLogger(t))
	defer store.Close()

	last, err := store.LastValidation(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.False(t, last.OK)
	assert.Equal(t, string(types.ErrCyclicDependency), last.ErrorCode)
	assert.NotEmpty(t, last.Detail)
}

// --- 任务入口 ---

func TestRun(t *testing.T) {
	o, _ := initialized(t)
	ctx := context.Background()

	plan, err := o.Run(ctx, "implement user authentication with jwt")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.NotEmpty(t, plan.ID)
	assert.Contains(t, plan.ExecutionOrder, "security")

	// 运行记录已持久化
	runs, err := o.RunStore().RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, plan.ID, runs[0].ID)
	assert.Equal(t, plan.Complexity, runs[0].Complexity)
	assert.Equal(t, len(plan.Subtasks), runs[0].SubtaskCount)
	assert.Equal(t, plan.ExecutionOrder, runs[0].CrewList())

	// 子任务进入各 Crew 的记忆流
	recent, err := o.Memory().Recent(ctx, "security")
	require.NoError(t, err)
	assert.Contains(t, recent, "Implement security measures for")
	assert.NotEmpty(t, o.Memory().RecentSession("security"))
}

func TestRun_NotInitialized(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))

	_, err := o.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInternalError))
}

func TestRun_EmptyTask(t *testing.T) {
	o, _ := initialized(t)

	_, err := o.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, decomposer.ErrEmptyTask))
}

// --- 访问器 ---

func TestAccessors(t *testing.T) {
	o, _ := initialized(t)

	crew, err := o.Crew("backend")
	require.NoError(t, err)
	assert.Equal(t, "backend", crew.ID)
	assert.Equal(t, []string{"security"}, crew.Dependencies)

	_, err = o.Crew("ghost")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownCrewRef))
	assert.Equal(t, []string{"ghost"}, types.ErrorIDs(err))

	agent, err := o.Agent("APIAgent")
	require.NoError(t, err)
	assert.Equal(t, "backend", agent.Crew)

	_, err = o.Agent("NobodyAgent")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownAgent))

	agents, err := o.AgentsInCrew("security")
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "AuthAgent", agents[0].ID)

	_, err = o.AgentsInCrew("ghost")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownCrewRef))

	assert.Equal(t, []string{"backend", "orchestrator", "security"}, o.ListCrews())
	assert.Len(t, o.ListAgents(), 3)
	assert.NotNil(t, o.Registry())
}

func TestAccessors_NotInitialized(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))

	_, err := o.Crew("backend")
	assert.True(t, types.IsCode(err, types.ErrInternalError))
	_, err = o.Agent("APIAgent")
	assert.True(t, types.IsCode(err, types.ErrInternalError))
	_, err = o.Capabilities("APIAgent")
	assert.True(t, types.IsCode(err, types.ErrInternalError))
	assert.Nil(t, o.ListCrews())
	assert.Nil(t, o.ListAgents())
	assert.Nil(t, o.Registry())
	assert.Nil(t, o.Memory())
	assert.Nil(t, o.RunStore())
}

func TestCapabilities(t *testing.T) {
	o, _ := initialized(t)

	caps, err := o.Capabilities("APIAgent")
	require.NoError(t, err)
	assert.Equal(t, "APIAgent", caps.AgentID)
	assert.Equal(t, "backend", caps.Crew)
	assert.Contains(t, caps.Tools, "codegen.generator")

	_, err = o.Capabilities("NobodyAgent")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownAgent))
}

// --- 整体重载 ---

func TestReload_Inline(t *testing.T) {
	o, cfg := initialized(t)
	ctx := context.Background()

	// 注册表扩充一个 frontend crew
	require.NoError(t, os.WriteFile(cfg.Registry.CrewsPath(),
		[]byte(testCrewsYAML+frontendCrewYAML), 0644))
	require.NoError(t, os.WriteFile(cfg.Registry.AgentsPath(),
		[]byte(testAgentsYAML+frontendAgentYAML), 0644))

	require.NoError(t, o.Reload(ctx))
	assert.Contains(t, o.Order(), "frontend")

	crew, err := o.Crew("frontend")
	require.NoError(t, err)
	assert.Equal(t, []string{"backend"}, crew.Dependencies)
}

func TestReload_Inline_RejectedKeepsPrevious(t *testing.T) {
	o, cfg := initialized(t)
	ctx := context.Background()
	before := o.Order()

	require.NoError(t, os.WriteFile(cfg.Registry.CrewsPath(), []byte(cyclicCrewsYAML), 0644))
	require.NoError(t, os.WriteFile(cfg.Registry.AgentsPath(), []byte(cyclicAgentsYAML), 0644))

	err := o.Reload(ctx)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCyclicDependency))

	// 旧注册表保持生效
	assert.Equal(t, before, o.Order())
	_, err = o.Crew("backend")
	assert.NoError(t, err)
}

func TestReload_NotInitialized(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))
	err := o.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInternalError))
}

func TestReload_WithManager(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reload.Enabled = true
	o := newTestOrchestrator(t, cfg)
	ctx := context.Background()

	require.NoError(t, o.Initialize(ctx))

	status, err := o.Status(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, status.ReloadVersion)

	require.NoError(t, os.WriteFile(cfg.Registry.CrewsPath(),
		[]byte(testCrewsYAML+frontendCrewYAML), 0644))
	require.NoError(t, os.WriteFile(cfg.Registry.AgentsPath(),
		[]byte(testAgentsYAML+frontendAgentYAML), 0644))

	require.NoError(t, o.Reload(ctx))
	assert.Contains(t, o.Order(), "frontend")

	status, err = o.Status(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, status.ReloadVersion)

	// 限流：紧随其后的第二次重载被拒绝
	err = o.Reload(ctx)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrReloadRejected))
	assert.Contains(t, o.Order(), "frontend")
}

// --- 状态与关停 ---

func TestStatus(t *testing.T) {
	o, _ := initialized(t)

	status, err := o.Status(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, status.Initialized)
	assert.Equal(t, 3, status.Crews.Total)
	assert.Equal(t, 3, status.Agents.Total)
	assert.Equal(t, []string{"orchestrator", "security", "backend"}, status.ExecutionOrder)
	assert.Equal(t, 1, status.CrewDistribution["backend"])
	assert.Zero(t, status.ReloadVersion)

	// 非详细模式不带统计
	assert.Nil(t, status.Memory)
	assert.Nil(t, status.RecentRuns)
	assert.Nil(t, status.LastValidation)
}

func TestStatus_Detailed(t *testing.T) {
	o, _ := initialized(t)
	ctx := context.Background()

	_, err := o.Run(ctx, "implement user authentication with jwt")
	require.NoError(t, err)

	status, err := o.Status(ctx, true)
	require.NoError(t, err)
	assert.True(t, status.Initialized)
	assert.Empty(t, status.Warnings)

	require.NotNil(t, status.Workspace)
	assert.True(t, status.Workspace.Ready)
	assert.Empty(t, status.Workspace.Missing)

	require.NotNil(t, status.Memory)
	assert.NotEmpty(t, status.Memory.Crews)

	require.Len(t, status.RecentRuns, 1)
	require.NotNil(t, status.LastValidation)
	assert.True(t, status.LastValidation.OK)
}

func TestStatus_NotInitialized(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))

	status, err := o.Status(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, status.Initialized)
	assert.Zero(t, status.Crews.Total)
}

func TestShutdown(t *testing.T) {
	o, _ := initialized(t)
	ctx := context.Background()

	require.NoError(t, o.Shutdown(ctx))
	assert.False(t, o.IsInitialized())

	// 关停后任务入口关闭
	_, err := o.Run(ctx, "anything")
	assert.True(t, types.IsCode(err, types.ErrInternalError))

	// 再次关停是空操作
	require.NoError(t, o.Shutdown(ctx))
}
