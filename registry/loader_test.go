// YAML 加载器测试。
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/ados/types"
)

const crewsYAML = `
backend:
  goal: "Deliver backend services"
  agents:
    - APIAgent
    - DBAgent
  constraints:
    - tdd_required
    - no_direct_db_access
  dependencies:
    - security
  tools:
    - codegen.generator
    - task_decomposer
  knowledge:
    - rest_api_design

security:
  goal: "Harden the platform"
  agents:
    - AuthAgent
  constraints:
    - least_privilege
  tools:
    - sectools.scanner
  knowledge:
    - owasp_top_10
`

const agentsYAML = `
backend:
  - role: APIAgent
    goal: "Build REST endpoints"
    backstory: "Veteran API engineer."
    tools:
      - codegen.generator
    llm: gpt-4-turbo
    max_iter: 8
  - role: DBAgent
    goal: "Design schemas"
    backstory: "Database specialist."
    tools:
      - schema.migrator
    verbose: false

security:
  - role: AuthAgent
    goal: "Implement authentication"
    backstory: "Security engineer focused on identity."
    tools:
      - sectools.scanner
`

// --- 基本加载 ---

func TestYAMLLoader_LoadBytes(t *testing.T) {
	loader := NewYAMLLoader()
	reg, err := loader.LoadBytes([]byte(crewsYAML), []byte(agentsYAML))
	require.NoError(t, err)
	require.NotNil(t, reg)

	assert.Equal(t, 2, reg.NumCrews())
	assert.Equal(t, 3, reg.NumAgents())
	assert.Equal(t, []string{"backend", "security"}, reg.CrewIDs())

	backend, ok := reg.Crew("backend")
	require.True(t, ok)
	assert.Equal(t, "Deliver backend services", backend.Goal)
	assert.Equal(t, []string{"APIAgent", "DBAgent"}, backend.Agents)
	assert.Equal(t, []string{"security"}, backend.Dependencies)
	assert.Contains(t, backend.Tools, "task_decomposer")
	assert.Equal(t, []string{"rest_api_design"}, backend.Knowledge)

	api, ok := reg.Agent("APIAgent")
	require.True(t, ok)
	assert.Equal(t, "backend", api.Crew, "映射键必须成为 agent 的所属 crew")
	assert.Equal(t, "gpt-4-turbo", api.LLM)
	assert.Equal(t, 8, api.MaxIter)
	assert.True(t, api.Verbose, "未显式关闭时保持默认开启")
}

func TestYAMLLoader_AgentDefaults(t *testing.T) {
	reg, err := NewYAMLLoader().LoadBytes([]byte(crewsYAML), []byte(agentsYAML))
	require.NoError(t, err)

	// AuthAgent 未声明 llm / max_iter，应落到默认值
	auth, ok := reg.Agent("AuthAgent")
	require.True(t, ok)
	assert.Equal(t, DefaultLLM, auth.LLM)
	assert.Equal(t, DefaultMaxIter, auth.MaxIter)

	// DBAgent 显式声明 verbose: false，不得被默认值覆盖
	db, ok := reg.Agent("DBAgent")
	require.True(t, ok)
	assert.False(t, db.Verbose)
}

func TestYAMLLoader_MissingAgentsTolerated(t *testing.T) {
	reg, err := NewYAMLLoader().LoadBytes([]byte(crewsYAML), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.NumCrews())
	assert.Equal(t, 0, reg.NumAgents())

	// 状态报告层面以警告形式暴露 roster 缺口
	warnings := reg.IntegrityWarnings()
	assert.NotEmpty(t, warnings)
}

// --- 文件与目录加载 ---

func TestYAMLLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CrewsFileName), []byte(crewsYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, AgentsFileName), []byte(agentsYAML), 0o644))

	reg, err := NewYAMLLoader().LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.NumCrews())
	assert.Equal(t, 3, reg.NumAgents())
}

func TestYAMLLoader_LoadDirWithoutAgentsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CrewsFileName), []byte(crewsYAML), 0o644))

	reg, err := NewYAMLLoader().LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.NumAgents())
}

func TestYAMLLoader_CrewsFileMissing(t *testing.T) {
	_, err := NewYAMLLoader().LoadDir(t.TempDir())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigNotFound))
}

// --- 畸形配置 ---

func TestYAMLLoader_MalformedYAML(t *testing.T) {
	_, err := NewYAMLLoader().LoadBytes([]byte("backend: [unclosed"), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMalformedConfig))
}

func TestYAMLLoader_EmptyCrews(t *testing.T) {
	_, err := NewYAMLLoader().LoadBytes([]byte(""), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMalformedConfig))
}

func TestYAMLLoader_CrewsNotAMapping(t *testing.T) {
	_, err := NewYAMLLoader().LoadBytes([]byte("- backend\n- security\n"), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMalformedConfig))
}

func TestYAMLLoader_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		crews string
	}{
		{
			name: "缺少 goal",
			crews: `
backend:
  agents: [APIAgent]
  constraints: [tdd_required]
  tools: [codegen.generator]
`,
		},
		{
			name: "roster 为空",
			crews: `
backend:
  goal: "Deliver backend services"
  agents: []
  constraints: [tdd_required]
  tools: [codegen.generator]
`,
		},
		{
			name: "tools 为空",
			crews: `
backend:
  goal: "Deliver backend services"
  agents: [APIAgent]
  constraints: [tdd_required]
  tools: []
`,
		},
		{
			name: "工具引用语法非法",
			crews: `
backend:
  goal: "Deliver backend services"
  agents: [APIAgent]
  constraints: [tdd_required]
  tools: ["code gen.run"]
`,
		},
		{
			name: "工具引用多级命名空间",
			crews: `
backend:
  goal: "Deliver backend services"
  agents: [APIAgent]
  constraints: [tdd_required]
  tools: ["a.b.c"]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLLoader().LoadBytes([]byte(tt.crews), nil)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrMalformedConfig),
				"got %v", err)
		})
	}
}

func TestYAMLLoader_AgentsNotAList(t *testing.T) {
	agents := `
backend:
  role: APIAgent
`
	_, err := NewYAMLLoader().LoadBytes([]byte(crewsYAML), []byte(agents))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMalformedConfig))
	assert.Equal(t, []string{"backend"}, types.ErrorIDs(err))
}

// --- 重复标识符 ---

func TestYAMLLoader_DuplicateCrewKey(t *testing.T) {
	// YAML 重复映射键必须报 DUPLICATE_IDENTIFIER，而不是静默取末值
	dup := `
backend:
  goal: "First declaration"
  agents: [APIAgent]
  constraints: [tdd_required]
  tools: [codegen.generator]
backend:
  goal: "Second declaration"
  agents: [OtherAgent]
  constraints: [tdd_required]
  tools: [codegen.generator]
`
	_, err := NewYAMLLoader().LoadBytes([]byte(dup), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrDuplicateIdentifier))
	assert.Equal(t, []string{"backend"}, types.ErrorIDs(err))
}

func TestYAMLLoader_DuplicateAgentAcrossCrews(t *testing.T) {
	agents := `
backend:
  - role: SharedAgent
    goal: "Build APIs"
    backstory: "Engineer."
    tools: [codegen.generator]
security:
  - role: SharedAgent
    goal: "Harden APIs"
    backstory: "Engineer."
    tools: [sectools.scanner]
`
	_, err := NewYAMLLoader().LoadBytes([]byte(crewsYAML), []byte(agents))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrDuplicateIdentifier))
	assert.Equal(t, []string{"SharedAgent"}, types.ErrorIDs(err))
}

// --- 幂等性 ---

func TestYAMLLoader_Idempotent(t *testing.T) {
	loader := NewYAMLLoader()

	first, err := loader.LoadBytes([]byte(crewsYAML), []byte(agentsYAML))
	require.NoError(t, err)
	second, err := loader.LoadBytes([]byte(crewsYAML), []byte(agentsYAML))
	require.NoError(t, err)

	assert.Equal(t, first.CrewIDs(), second.CrewIDs())
	assert.Equal(t, first.AgentIDs(), second.AgentIDs())
	assert.Equal(t, first.Crews(), second.Crews())
	assert.Equal(t, first.Agents(), second.Agents())
}
