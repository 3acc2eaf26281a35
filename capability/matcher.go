package capability

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/types"
)

// Capabilities 是一个 agent 的有效能力集。
type Capabilities struct {
	AgentID   string   `json:"agent_id"`
	Crew      string   `json:"crew"`
	Tools     []string `json:"tools"`     // 有效工具引用，字典序
	Knowledge []string `json:"knowledge"` // 知识域，字典序
}

// Matcher 在一个注册表上解析 agent 能力。
type Matcher struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewMatcher 创建能力匹配器。logger 传 nil 时静默运行。
func NewMatcher(reg *registry.Registry, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		reg:    reg,
		logger: logger.With(zap.String("component", "capability_matcher")),
	}
}

// Resolve 解析 agent 的有效工具集与知识域集。
//
// 工具按裸名称做分层覆盖：crew 条目先写入，agent 条目后写入并在同名
// 时胜出。知识域取所属 crew 的声明。两个结果切片均按字典序排序。
func (m *Matcher) Resolve(agentID string) (*Capabilities, error) {
	agent, ok := m.reg.Agent(agentID)
	if !ok {
		return nil, types.NewError(types.ErrUnknownAgent,
			fmt.Sprintf("agent %q is not registered", agentID)).WithIDs(agentID)
	}

	crew, ok := m.reg.Crew(agent.Crew)
	if !ok {
		// 依赖图校验会先行拦截；直接调用时同样给出定位信息。
		return nil, types.NewError(types.ErrOrphanAgentCrew,
			fmt.Sprintf("agent %q references undeclared crew %q", agentID, agent.Crew)).
			WithIDs(agentID, agent.Crew)
	}

	overlay := make(map[string]string, len(crew.Tools)+len(agent.Tools))
	layerTools(overlay, crew.Tools)
	layerTools(overlay, agent.Tools)

	tools := make([]string, 0, len(overlay))
	for _, full := range overlay {
		tools = append(tools, full)
	}
	sort.Strings(tools)

	knowledge := append([]string(nil), crew.Knowledge...)
	sort.Strings(knowledge)

	m.logger.Debug("capabilities resolved",
		zap.String("agent", agentID),
		zap.String("crew", agent.Crew),
		zap.Int("tools", len(tools)),
	)

	return &Capabilities{
		AgentID:   agentID,
		Crew:      agent.Crew,
		Tools:     tools,
		Knowledge: knowledge,
	}, nil
}

// layerTools 把一层工具引用写入覆盖表，键为裸名称，后写入者胜出。
func layerTools(overlay map[string]string, tools []string) {
	for _, tool := range tools {
		ref, err := registry.ParseToolRef(tool)
		if err != nil {
			// 注册表构建阶段已拒绝非法引用，此处不可达。
			continue
		}
		overlay[ref.Name] = tool
	}
}

// Resolve 是 NewMatcher(reg, nil).Resolve 的便捷入口。
func Resolve(reg *registry.Registry, agentID string) (*Capabilities, error) {
	return NewMatcher(reg, nil).Resolve(agentID)
}
