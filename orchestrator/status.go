package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/ados/internal/database"
	"github.com/BaSui01/ados/memory"
	"github.com/BaSui01/ados/workspace"
)

// =============================================================================
// 📊 系统状态
// =============================================================================

// CrewsStatus Crew 侧的计数与名单
type CrewsStatus struct {
	Total int      `json:"total"`
	Names []string `json:"names"`
}

// AgentsStatus Agent 侧的计数与名单
type AgentsStatus struct {
	Total int      `json:"total"`
	Names []string `json:"names"`
}

// Status 系统状态汇总。详细模式追加完整性告警、工作区检查、
// 记忆统计、最近运行记录与最近一次校验报告。
type Status struct {
	Initialized      bool           `json:"initialized"`
	Crews            CrewsStatus    `json:"crews"`
	Agents           AgentsStatus   `json:"agents"`
	CrewDistribution map[string]int `json:"crew_distribution,omitempty"`
	ExecutionOrder   []string       `json:"execution_order,omitempty"`
	ReloadVersion    int            `json:"reload_version,omitempty"`

	// 详细模式
	Warnings       []string                   `json:"warnings,omitempty"`
	Workspace      *workspace.Report          `json:"workspace,omitempty"`
	Memory         *memory.Status             `json:"memory,omitempty"`
	RecentRuns     []database.Run             `json:"recent_runs,omitempty"`
	LastValidation *database.ValidationReport `json:"last_validation,omitempty"`
}

// recentRunsShown 详细状态里展示的最近运行条数
const recentRunsShown = 5

// Status 汇总系统状态。未初始化时只报告 initialized=false；
// 详细模式的统计查询失败降级为告警，不阻断状态输出。
func (o *Orchestrator) Status(ctx context.Context, detailed bool) (*Status, error) {
	o.mu.RLock()
	if !o.initialized {
		o.mu.RUnlock()
		return &Status{Initialized: false}, nil
	}
	reg := o.reg
	order := append([]string(nil), o.order...)
	rm := o.reloader
	prov := o.provisioner
	coord := o.coordinator
	store := o.runStore
	o.mu.RUnlock()

	status := &Status{
		Initialized: true,
		Crews: CrewsStatus{
			Total: reg.NumCrews(),
			Names: reg.CrewIDs(),
		},
		Agents: AgentsStatus{
			Total: reg.NumAgents(),
			Names: reg.AgentIDs(),
		},
		CrewDistribution: make(map[string]int, reg.NumCrews()),
		ExecutionOrder:   order,
	}
	for _, id := range reg.CrewIDs() {
		status.CrewDistribution[id] = len(reg.AgentsInCrew(id))
	}
	if rm != nil {
		status.ReloadVersion = rm.Version()
	}

	// 连接池水位随状态查询刷新
	if o.metrics != nil {
		stats := store.Pool().Stats()
		o.metrics.RecordDBConnections(o.cfg.Database.Driver, stats.OpenConnections, stats.Idle)
	}

	if !detailed {
		return status, nil
	}

	status.Warnings = reg.IntegrityWarnings()

	if report, err := prov.Check(ctx, order); err != nil {
		o.logger.Warn("failed to check workspace", zap.Error(err))
	} else {
		status.Workspace = report
	}

	if mem, err := coord.MemoryStatus(ctx); err != nil {
		o.logger.Warn("failed to collect memory status", zap.Error(err))
	} else {
		status.Memory = mem
		if o.metrics != nil {
			for _, cs := range mem.Crews {
				o.metrics.SetMemoryBytes(cs.Crew, cs.SizeBytes)
			}
		}
	}

	if runs, err := store.RecentRuns(ctx, recentRunsShown); err != nil {
		o.recordRunStoreQuery("recent_runs", "error")
		o.logger.Warn("failed to list recent runs", zap.Error(err))
	} else {
		o.recordRunStoreQuery("recent_runs", "ok")
		status.RecentRuns = runs
	}

	if last, err := store.LastValidation(ctx); err != nil {
		o.recordRunStoreQuery("last_validation", "error")
		o.logger.Warn("failed to load last validation report", zap.Error(err))
	} else {
		o.recordRunStoreQuery("last_validation", "ok")
		status.LastValidation = last
	}

	return status, nil
}
