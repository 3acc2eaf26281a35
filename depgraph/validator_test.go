// 依赖图校验器测试。
package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/types"
)

// --- 测试辅助 ---

func testCrew(id string, deps ...string) registry.Crew {
	return registry.Crew{
		ID:           id,
		Goal:         "deliver " + id + " work",
		Agents:       []string{id + "_agent"},
		Constraints:  []string{"tdd_required"},
		Dependencies: deps,
		Tools:        []string{"codegen.generator"},
	}
}

func testAgent(id, crew string) registry.Agent {
	return registry.Agent{
		ID:        id,
		Crew:      crew,
		Goal:      "support the " + crew + " crew",
		Backstory: "Seasoned engineer embedded in the " + crew + " crew.",
		Tools:     []string{"codegen.generator"},
		LLM:       registry.DefaultLLM,
		MaxIter:   registry.DefaultMaxIter,
	}
}

func mustRegistry(t *testing.T, crews []registry.Crew, agents []registry.Agent) *registry.Registry {
	t.Helper()
	reg, err := registry.New(crews, agents)
	require.NoError(t, err)
	return reg
}

// --- 线性依赖链 ---

func TestValidate_LinearChain(t *testing.T) {
	// quality -> backend -> security：安全层先行，质量层殿后
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("security"),
			testCrew("backend", "security"),
			testCrew("quality", "backend"),
		},
		[]registry.Agent{
			testAgent("SecAgent", "security"),
			testAgent("APIAgent", "backend"),
			testAgent("TestAgent", "quality"),
		},
	)

	order, err := Validate(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"security", "backend", "quality"}, order)
}

// --- 环检测 ---

func TestValidate_TwoCrewCycle(t *testing.T) {
	// deployment 与 integration 互相依赖
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("deployment", "integration"),
			testCrew("integration", "deployment"),
		},
		[]registry.Agent{
			testAgent("DeployAgent", "deployment"),
			testAgent("CIAgent", "integration"),
		},
	)

	order, err := Validate(reg)
	require.Error(t, err)
	assert.Nil(t, order, "校验失败时不得产出顺序")
	assert.True(t, types.IsCode(err, types.ErrCyclicDependency))

	ids := types.ErrorIDs(err)
	assert.ElementsMatch(t, []string{"deployment", "integration"}, ids,
		"环错误必须准确点名两个成员")
}

func TestValidate_ThreeCrewCycle(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("alpha", "beta"),
			testCrew("beta", "gamma"),
			testCrew("gamma", "alpha"),
		},
		[]registry.Agent{
			testAgent("A1", "alpha"),
			testAgent("B1", "beta"),
			testAgent("G1", "gamma"),
		},
	)

	_, err := Validate(reg)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCyclicDependency))
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma"}, types.ErrorIDs(err))
}

func TestValidate_SelfDependency(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{testCrew("backend", "backend")},
		[]registry.Agent{testAgent("APIAgent", "backend")},
	)

	_, err := Validate(reg)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCyclicDependency))
	assert.Equal(t, []string{"backend"}, types.ErrorIDs(err))
}

func TestValidate_CycleBesideValidChain(t *testing.T) {
	// 合法链与依赖环并存时仍然整体失败
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("security"),
			testCrew("backend", "security"),
			testCrew("deployment", "integration"),
			testCrew("integration", "deployment"),
		},
		[]registry.Agent{
			testAgent("SecAgent", "security"),
			testAgent("APIAgent", "backend"),
			testAgent("DeployAgent", "deployment"),
			testAgent("CIAgent", "integration"),
		},
	)

	order, err := Validate(reg)
	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, types.IsCode(err, types.ErrCyclicDependency))
	assert.ElementsMatch(t, []string{"deployment", "integration"}, types.ErrorIDs(err))
}

// --- 引用完整性 ---

func TestValidate_OrphanAgent(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{testCrew("backend")},
		[]registry.Agent{
			testAgent("APIAgent", "backend"),
			testAgent("GhostAgent", "nonexistent"),
		},
	)

	order, err := Validate(reg)
	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, types.IsCode(err, types.ErrOrphanAgentCrew))
	assert.Equal(t, []string{"GhostAgent", "nonexistent"}, types.ErrorIDs(err),
		"错误必须同时点名 agent 与缺失的 crew")
}

func TestValidate_UnknownCrewReference(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{testCrew("backend", "missing")},
		[]registry.Agent{testAgent("APIAgent", "backend")},
	)

	_, err := Validate(reg)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownCrewRef))
	assert.Equal(t, []string{"backend", "missing"}, types.ErrorIDs(err))
}

// --- 确定性排序 ---

func TestValidate_IndependentCrewsSortAscending(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("zeta"),
			testCrew("alpha"),
			testCrew("mike"),
		},
		[]registry.Agent{
			testAgent("Z1", "zeta"),
			testAgent("A1", "alpha"),
			testAgent("M1", "mike"),
		},
	)

	order, err := Validate(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mike", "zeta"}, order)
}

func TestValidate_DiamondTieBreak(t *testing.T) {
	// apex 依赖 left 与 right，两者都依赖 base；
	// left 与 right 互不依赖，按标识符升序排列。
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("apex", "right", "left"),
			testCrew("left", "base"),
			testCrew("right", "base"),
			testCrew("base"),
		},
		[]registry.Agent{
			testAgent("Apex1", "apex"),
			testAgent("Left1", "left"),
			testAgent("Right1", "right"),
			testAgent("Base1", "base"),
		},
	)

	order, err := Validate(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "left", "right", "apex"}, order)
}

func TestValidate_RepeatedRunsIdentical(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{
			testCrew("security"),
			testCrew("backend", "security"),
			testCrew("frontend", "backend"),
			testCrew("quality", "backend", "frontend"),
			testCrew("deployment", "quality"),
		},
		[]registry.Agent{
			testAgent("SecAgent", "security"),
			testAgent("APIAgent", "backend"),
			testAgent("UIAgent", "frontend"),
			testAgent("TestAgent", "quality"),
			testAgent("DeployAgent", "deployment"),
		},
	)

	first, err := Validate(reg)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Validate(reg)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// --- 单 crew 与空依赖 ---

func TestValidate_SingleCrew(t *testing.T) {
	reg := mustRegistry(t,
		[]registry.Crew{testCrew("backend")},
		[]registry.Agent{testAgent("APIAgent", "backend")},
	)

	order, err := Validate(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"backend"}, order)
}
