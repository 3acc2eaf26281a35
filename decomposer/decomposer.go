package decomposer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 📋 档位与关键词表
// =============================================================================

// 复杂度档位
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
	ComplexityEpic    = "epic"
)

// MoSCoW 优先级
const (
	PriorityMust   = "must"
	PriorityShould = "should"
	PriorityCould  = "could"
	PriorityWont   = "wont"
)

// 协调 Crew 的约定名，存在时始终参与计划
const crewOrchestrator = "orchestrator"

var (
	// ErrEmptyTask 任务描述为空
	ErrEmptyTask = errors.New("task description is empty")

	// ErrNoCrews 执行顺序为空，无 Crew 可路由
	ErrNoCrews = errors.New("no crews available for routing")
)

// crewKeywords 七个标准 Crew 的匹配关键词。
// 表外的 Crew（自定义注册表）按自身名字匹配。
var crewKeywords = map[string][]string{
	"orchestrator": {"coordinate", "orchestrate", "manage", "plan", "decompose", "workflow"},
	"backend":      {"api", "database", "server", "fastapi", "flask", "sql", "orm", "sqlalchemy", "endpoint", "rest", "graphql"},
	"security":     {"auth", "authentication", "authorization", "jwt", "oauth", "security", "login", "password", "token", "encrypt"},
	"quality":      {"test", "testing", "unit test", "coverage", "lint", "review", "quality", "validation", "pytest"},
	"integration":  {"ci/cd", "pipeline", "integration", "deploy", "build", "continuous", "automation", "workflow"},
	"deployment":   {"docker", "kubernetes", "k8s", "container", "cloud", "infrastructure", "devops", "release"},
	"frontend":     {"ui", "frontend", "react", "vue", "component", "interface", "design", "user", "html", "css", "javascript"},
}

// priorityLevels 优先级判定顺序，先命中先得
var priorityLevels = []string{PriorityMust, PriorityShould, PriorityCould, PriorityWont}

var priorityKeywords = map[string][]string{
	PriorityMust:   {"critical", "essential", "required", "mandatory", "core", "primary"},
	PriorityShould: {"important", "needed", "recommended", "significant"},
	PriorityCould:  {"optional", "nice to have", "enhancement", "improvement"},
	PriorityWont:   {"future", "later", "not needed", "exclude", "skip"},
}

var complexityKeywords = map[string][]string{
	ComplexitySimple:  {"fix", "update", "change", "modify", "simple"},
	ComplexityMedium:  {"create", "implement", "build", "add", "develop"},
	ComplexityComplex: {"system", "architecture", "full", "complete", "entire", "comprehensive"},
	ComplexityEpic:    {"project", "application", "platform", "multi", "end-to-end", "workflow"},
}

// subtaskTemplates 标准 Crew 的子任务描述模板与类型
var subtaskTemplates = map[string]struct {
	format string
	typ    string
}{
	"orchestrator": {"Coordinate and plan: %s", "coordination"},
	"backend":      {"Implement backend services for: %s", "implementation"},
	"security":     {"Implement security measures for: %s", "security"},
	"quality":      {"Test and validate: %s", "testing"},
	"integration":  {"Set up CI/CD for: %s", "automation"},
	"deployment":   {"Deploy and configure: %s", "deployment"},
	"frontend":     {"Build user interface for: %s", "ui"},
}

// =============================================================================
// 🧩 计划结构
// =============================================================================

// Subtask 路由到单个 Crew 的子任务
type Subtask struct {
	Crew        string `json:"crew"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

// Plan 一次任务拆解的完整结果
type Plan struct {
	// 计划 ID（uuid）
	ID string `json:"id"`

	// 原始任务描述
	Task string `json:"task"`

	// 复杂度档位与工时估计
	Complexity    string `json:"complexity"`
	EstimatedTime string `json:"estimated_time"`

	// 任务整体的 MoSCoW 优先级语境
	Priority string `json:"priority"`

	// 参与 Crew，按注册表校验给出的执行顺序
	ExecutionOrder []string `json:"execution_order"`

	// 子任务，与 ExecutionOrder 同序
	Subtasks []Subtask `json:"subtasks"`

	// Crew 到子任务描述的路由表
	Routing map[string][]string `json:"routing"`

	CreatedAt time.Time `json:"created_at"`
}

// ComplexityAnalysis 复杂度分析结果
type ComplexityAnalysis struct {
	Complexity    string   `json:"complexity"`
	EstimatedTime string   `json:"estimated_time"`
	RequiredCrews []string `json:"required_crews"`
	CrewCount     int      `json:"crew_count"`
}

// =============================================================================
// ⚙️ 拆解器
// =============================================================================

// Decomposer 基于关键词表与执行顺序的任务拆解器
type Decomposer struct {
	order  []string
	logger *zap.Logger
}

// Option 配置拆解器
type Option func(*Decomposer)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decomposer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New 用已校验的 Crew 执行顺序构建拆解器
func New(order []string, opts ...Option) *Decomposer {
	d := &Decomposer{
		order:  append([]string(nil), order...),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("component", "task_decomposer"))
	d.logger.Debug("task decomposer initialized", zap.Int("crews", len(d.order)))
	return d
}

// Order 返回拆解器使用的执行顺序
func (d *Decomposer) Order() []string {
	return append([]string(nil), d.order...)
}

// Decompose 将任务拆解为子任务计划
func (d *Decomposer) Decompose(task string) (*Plan, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, ErrEmptyTask
	}
	if len(d.order) == 0 {
		return nil, ErrNoCrews
	}

	analysis := d.AnalyzeComplexity(task)

	crews := analysis.RequiredCrews
	if len(crews) == 0 {
		// 没有任何 Crew 命中时由执行顺序里的第一个兜底
		crews = []string{d.order[0]}
	}

	priority := priorityContext(task)
	subtasks := buildSubtasks(task, crews, priority)

	plan := &Plan{
		ID:             uuid.New().String(),
		Task:           task,
		Complexity:     analysis.Complexity,
		EstimatedTime:  analysis.EstimatedTime,
		Priority:       priority,
		ExecutionOrder: crews,
		Subtasks:       subtasks,
		Routing:        routingInfo(subtasks),
		CreatedAt:      time.Now().UTC(),
	}

	d.logger.Info("task decomposed",
		zap.String("plan_id", plan.ID),
		zap.String("complexity", plan.Complexity),
		zap.String("priority", plan.Priority),
		zap.Int("subtasks", len(plan.Subtasks)))
	return plan, nil
}

// Route 将单条描述路由到得分最高的 Crew。
// 平分时取执行顺序靠前者，无命中时交给 orchestrator，
// 注册表没有 orchestrator 则取第一个 Crew。
func (d *Decomposer) Route(description string) string {
	lower := strings.ToLower(description)

	best := ""
	bestScore := 0
	for _, crew := range d.order {
		if score := matchScore(lower, crew); score > bestScore {
			best, bestScore = crew, score
		}
	}
	if best != "" {
		d.logger.Debug("task routed", zap.String("crew", best), zap.Int("score", bestScore))
		return best
	}

	for _, crew := range d.order {
		if crew == crewOrchestrator {
			return crew
		}
	}
	if len(d.order) > 0 {
		return d.order[0]
	}
	return ""
}

// AnalyzeComplexity 按关键词与命中 Crew 数量给出复杂度档位
func (d *Decomposer) AnalyzeComplexity(task string) ComplexityAnalysis {
	lower := strings.ToLower(task)
	crews := d.RelevantCrews(task)
	count := len(crews)

	scores := make(map[string]int, len(complexityKeywords))
	for level, kws := range complexityKeywords {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				scores[level]++
			}
		}
	}

	var complexity, estimate string
	switch {
	case count >= 5 || scores[ComplexityEpic] > 0:
		complexity, estimate = ComplexityEpic, "1-2 weeks"
	case count >= 3 || scores[ComplexityComplex] > 0:
		complexity, estimate = ComplexityComplex, "3-5 days"
	case count >= 2 || scores[ComplexityMedium] > 0:
		complexity, estimate = ComplexityMedium, "1-2 days"
	default:
		complexity, estimate = ComplexitySimple, "2-6 hours"
	}

	return ComplexityAnalysis{
		Complexity:    complexity,
		EstimatedTime: estimate,
		RequiredCrews: crews,
		CrewCount:     count,
	}
}

// RelevantCrews 返回任务命中的 Crew，按执行顺序排列。
// orchestrator 存在时始终包含。
func (d *Decomposer) RelevantCrews(task string) []string {
	lower := strings.ToLower(task)

	var crews []string
	for _, crew := range d.order {
		if crew == crewOrchestrator || matchScore(lower, crew) > 0 {
			crews = append(crews, crew)
		}
	}
	return crews
}

// =============================================================================
// 🛠️ 内部函数
// =============================================================================

// matchScore 统计关键词命中数，表外 Crew 以自身名字记一分
func matchScore(lowerTask, crew string) int {
	kws, ok := crewKeywords[crew]
	if !ok {
		if strings.Contains(lowerTask, strings.ToLower(crew)) {
			return 1
		}
		return 0
	}

	score := 0
	for _, kw := range kws {
		if strings.Contains(lowerTask, kw) {
			score++
		}
	}
	return score
}

// priorityContext 从任务描述判定整体 MoSCoW 语境，默认 should
func priorityContext(task string) string {
	lower := strings.ToLower(task)
	for _, level := range priorityLevels {
		for _, kw := range priorityKeywords[level] {
			if strings.Contains(lower, kw) {
				return level
			}
		}
	}
	return PriorityShould
}

// subtaskPriority 按 Crew 角色定子任务优先级。
// 基础设施 Crew 恒为 must，交付面 Crew 跟随语境降档。
func subtaskPriority(crew, context string) string {
	switch crew {
	case "orchestrator", "security", "backend":
		return PriorityMust
	case "quality", "integration":
		return PriorityShould
	case "deployment", "frontend":
		if context == PriorityCould {
			return PriorityCould
		}
		return PriorityShould
	default:
		return context
	}
}

// buildSubtasks 为每个 Crew 生成模板化子任务
func buildSubtasks(task string, crews []string, context string) []Subtask {
	subtasks := make([]Subtask, 0, len(crews))
	for _, crew := range crews {
		var description, typ string
		if tpl, ok := subtaskTemplates[crew]; ok {
			description = fmt.Sprintf(tpl.format, task)
			typ = tpl.typ
		} else {
			description = fmt.Sprintf("Process %s tasks for: %s", crew, task)
			typ = "general"
		}

		subtasks = append(subtasks, Subtask{
			Crew:        crew,
			Description: description,
			Type:        typ,
			Priority:    subtaskPriority(crew, context),
		})
	}
	return subtasks
}

// routingInfo 汇总 Crew 到子任务描述的路由表
func routingInfo(subtasks []Subtask) map[string][]string {
	routing := make(map[string][]string, len(subtasks))
	for _, st := range subtasks {
		routing[st.Crew] = append(routing[st.Crew], st.Description)
	}
	return routing
}
