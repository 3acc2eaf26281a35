package depgraph

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/types"
)

// Validator 校验注册表的引用完整性与依赖图，并产出 crew 执行顺序。
type Validator struct {
	logger *zap.Logger
}

// NewValidator 创建校验器。logger 传 nil 时静默运行。
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		logger: logger.With(zap.String("component", "depgraph")),
	}
}

// Validate 依次执行孤儿 agent 检查、依赖引用检查与环检测，全部通过后
// 返回叶子优先的 crew 执行顺序。任一检查失败即整体失败，不产出顺序。
func (v *Validator) Validate(reg *registry.Registry) ([]string, error) {
	if err := v.checkAgentCrews(reg); err != nil {
		return nil, err
	}

	g, err := v.buildGraph(reg)
	if err != nil {
		return nil, err
	}

	if cycle := g.findCycle(); len(cycle) > 0 {
		return nil, types.NewError(types.ErrCyclicDependency,
			fmt.Sprintf("dependency cycle among crews: %s", strings.Join(cycle, " -> "))).
			WithIDs(cycle...)
	}

	order := g.topoOrder()
	v.logger.Info("dependency graph validated",
		zap.Int("crews", reg.NumCrews()),
		zap.Int("agents", reg.NumAgents()),
		zap.Strings("order", order),
	)
	return order, nil
}

// checkAgentCrews 确认每个 agent 的所属 crew 均已声明。
func (v *Validator) checkAgentCrews(reg *registry.Registry) error {
	for _, a := range reg.Agents() {
		if !reg.HasCrew(a.Crew) {
			return types.NewError(types.ErrOrphanAgentCrew,
				fmt.Sprintf("agent %q references undeclared crew %q", a.ID, a.Crew)).
				WithIDs(a.ID, a.Crew)
		}
	}
	return nil
}

// buildGraph 由注册表构建依赖图，依赖指向未声明 crew 时报错。
func (v *Validator) buildGraph(reg *registry.Registry) (*Graph, error) {
	g := NewGraph()
	for _, id := range reg.CrewIDs() {
		g.AddNode(id)
	}
	for _, c := range reg.Crews() {
		for _, dep := range c.Dependencies {
			if !reg.HasCrew(dep) {
				return nil, types.NewError(types.ErrUnknownCrewRef,
					fmt.Sprintf("crew %q depends on undeclared crew %q", c.ID, dep)).
					WithIDs(c.ID, dep)
			}
			g.AddEdge(c.ID, dep)
		}
	}
	return g, nil
}

// Validate 是 NewValidator(nil).Validate 的便捷入口。
func Validate(reg *registry.Registry) ([]string, error) {
	return NewValidator(nil).Validate(reg)
}
