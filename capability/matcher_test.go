// 能力匹配器测试。
package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/types"
)

func buildRegistry(t *testing.T, crews []registry.Crew, agents []registry.Agent) *registry.Registry {
	t.Helper()
	reg, err := registry.New(crews, agents)
	require.NoError(t, err)
	return reg
}

func crewWith(id string, tools, knowledge []string) registry.Crew {
	return registry.Crew{
		ID:          id,
		Goal:        "deliver " + id + " work",
		Agents:      []string{id + "Agent"},
		Constraints: []string{"tdd_required"},
		Tools:       tools,
		Knowledge:   knowledge,
	}
}

func agentWith(id, crew string, tools []string) registry.Agent {
	return registry.Agent{
		ID:        id,
		Crew:      crew,
		Goal:      "support the " + crew + " crew",
		Backstory: "Engineer on the " + crew + " crew.",
		Tools:     tools,
		LLM:       registry.DefaultLLM,
		MaxIter:   registry.DefaultMaxIter,
	}
}

// --- 基本合并 ---

func TestResolve_UnionOfCrewAndAgentTools(t *testing.T) {
	// crew 声明 backend_tools.build_api，agent 追加 testing_tools.pytest_runner，
	// 有效集合为两者之并
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("backend",
			[]string{"backend_tools.build_api"},
			[]string{"rest_api_design"})},
		[]registry.Agent{agentWith("APIAgent", "backend",
			[]string{"testing_tools.pytest_runner"})},
	)

	caps, err := Resolve(reg, "APIAgent")
	require.NoError(t, err)
	assert.Equal(t, "APIAgent", caps.AgentID)
	assert.Equal(t, "backend", caps.Crew)
	assert.Equal(t, []string{"backend_tools.build_api", "testing_tools.pytest_runner"}, caps.Tools)
	assert.Equal(t, []string{"rest_api_design"}, caps.Knowledge)
}

func TestResolve_AgentOverridesSameBareName(t *testing.T) {
	// crew 与 agent 各声明一个裸名称同为 generator 的工具，agent 胜出
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("backend",
			[]string{"codegen.generator", "schema.migrator"}, nil)},
		[]registry.Agent{agentWith("APIAgent", "backend",
			[]string{"custom.generator"})},
	)

	caps, err := Resolve(reg, "APIAgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom.generator", "schema.migrator"}, caps.Tools)
	assert.NotContains(t, caps.Tools, "codegen.generator")
}

func TestResolve_BareNameOverridesNamespaced(t *testing.T) {
	// 裸引用与命名空间引用同名时同样按名称覆盖
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("quality",
			[]string{"quality_tools.task_decomposer"}, nil)},
		[]registry.Agent{agentWith("TestAgent", "quality",
			[]string{"task_decomposer"})},
	)

	caps, err := Resolve(reg, "TestAgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"task_decomposer"}, caps.Tools)
}

func TestResolve_DuplicateDeclarationsCollapse(t *testing.T) {
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("backend",
			[]string{"codegen.generator", "codegen.generator"}, nil)},
		[]registry.Agent{agentWith("APIAgent", "backend",
			[]string{"codegen.generator"})},
	)

	caps, err := Resolve(reg, "APIAgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"codegen.generator"}, caps.Tools)
}

// --- 排序与集合语义 ---

func TestResolve_OutputSorted(t *testing.T) {
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("backend",
			[]string{"zeta.tool_z", "alpha.tool_a"},
			[]string{"zookeeping", "api_design", "migrations"})},
		[]registry.Agent{agentWith("APIAgent", "backend",
			[]string{"mike.tool_m"})},
	)

	caps, err := Resolve(reg, "APIAgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.tool_a", "mike.tool_m", "zeta.tool_z"}, caps.Tools)
	assert.Equal(t, []string{"api_design", "migrations", "zookeeping"}, caps.Knowledge)
}

func TestResolve_DeclarationOrderIrrelevant(t *testing.T) {
	build := func(tools []string) *Capabilities {
		reg := buildRegistry(t,
			[]registry.Crew{crewWith("backend", tools, nil)},
			[]registry.Agent{agentWith("APIAgent", "backend",
				[]string{"testing_tools.pytest_runner"})},
		)
		caps, err := Resolve(reg, "APIAgent")
		require.NoError(t, err)
		return caps
	}

	forward := build([]string{"alpha.one", "beta.two"})
	reversed := build([]string{"beta.two", "alpha.one"})
	assert.Equal(t, forward.Tools, reversed.Tools)
}

// --- 错误路径 ---

func TestResolve_UnknownAgent(t *testing.T) {
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("backend", []string{"codegen.generator"}, nil)},
		[]registry.Agent{agentWith("APIAgent", "backend", []string{"codegen.generator"})},
	)

	caps, err := Resolve(reg, "NoSuchAgent")
	require.Error(t, err)
	assert.Nil(t, caps)
	assert.True(t, types.IsCode(err, types.ErrUnknownAgent))
	assert.Equal(t, []string{"NoSuchAgent"}, types.ErrorIDs(err))
}

func TestResolve_OrphanAgentSurfaces(t *testing.T) {
	// 匹配器被绕过依赖图校验直接调用时也能定位孤儿 agent
	reg := buildRegistry(t,
		[]registry.Crew{crewWith("backend", []string{"codegen.generator"}, nil)},
		[]registry.Agent{agentWith("GhostAgent", "nonexistent", []string{"codegen.generator"})},
	)

	_, err := Resolve(reg, "GhostAgent")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrOrphanAgentCrew))
	assert.Equal(t, []string{"GhostAgent", "nonexistent"}, types.ErrorIDs(err))
}

// --- Matcher 复用 ---

func TestMatcher_ResolveMultipleAgents(t *testing.T) {
	reg := buildRegistry(t,
		[]registry.Crew{
			crewWith("backend", []string{"codegen.generator"}, []string{"rest_api_design"}),
			crewWith("security", []string{"sectools.scanner"}, []string{"owasp_top_10"}),
		},
		[]registry.Agent{
			agentWith("APIAgent", "backend", []string{"schema.migrator"}),
			agentWith("AuthAgent", "security", []string{"sectools.jwt_kit"}),
		},
	)

	m := NewMatcher(reg, nil)

	api, err := m.Resolve("APIAgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"codegen.generator", "schema.migrator"}, api.Tools)

	auth, err := m.Resolve("AuthAgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"sectools.jwt_kit", "sectools.scanner"}, auth.Tools)
	assert.Equal(t, []string{"owasp_top_10"}, auth.Knowledge)
}
