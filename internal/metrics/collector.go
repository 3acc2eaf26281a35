// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector ADOS 各阶段的 Prometheus 指标
type Collector struct {
	// 注册表指标
	registryLoadsTotal *prometheus.CounterVec
	validationsTotal   *prometheus.CounterVec
	validationDuration prometheus.Histogram

	// 能力解析指标
	capabilityResolutionsTotal *prometheus.CounterVec

	// 热重载指标
	reloadsTotal *prometheus.CounterVec

	// 记忆指标
	memoryOpsTotal *prometheus.CounterVec
	memoryBytes    *prometheus.GaugeVec

	// 任务拆解指标
	decompositionsTotal *prometheus.CounterVec
	planSubtasks        prometheus.Histogram

	// 运行历史库指标
	runStoreQueriesTotal *prometheus.CounterVec
	dbConnectionsOpen    *prometheus.GaugeVec
	dbConnectionsIdle    *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 注册表指标
	c.registryLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_loads_total",
			Help:      "Total number of registry load attempts",
		},
		[]string{"status"},
	)

	c.validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of dependency graph validations",
		},
		[]string{"outcome"},
	)

	c.validationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Dependency graph validation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// 能力解析指标
	c.capabilityResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_resolutions_total",
			Help:      "Total number of capability resolutions",
		},
		[]string{"status"},
	)

	// 热重载指标
	c.reloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Total number of registry reload attempts",
		},
		[]string{"result", "source"},
	)

	// 记忆指标
	c.memoryOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_ops_total",
			Help:      "Total number of crew memory operations",
		},
		[]string{"operation", "status"},
	)

	c.memoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Serialized crew memory size in bytes",
		},
		[]string{"crew"},
	)

	// 任务拆解指标
	c.decompositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decompositions_total",
			Help:      "Total number of task decompositions",
		},
		[]string{"complexity"},
	)

	c.planSubtasks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_subtasks",
			Help:      "Number of subtasks per decomposition plan",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
	)

	// 运行历史库指标
	c.runStoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_store_queries_total",
			Help:      "Total number of run store queries",
		},
		[]string{"operation", "status"},
	)

	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 📇 注册表指标记录
// =============================================================================

// RecordRegistryLoad 记录一次注册表装载
func (c *Collector) RecordRegistryLoad(status string) {
	c.registryLoadsTotal.WithLabelValues(status).Inc()
}

// RecordValidation 记录一次依赖图校验
func (c *Collector) RecordValidation(outcome string, duration time.Duration) {
	c.validationsTotal.WithLabelValues(outcome).Inc()
	c.validationDuration.Observe(duration.Seconds())
}

// RecordCapabilityResolution 记录一次能力解析
func (c *Collector) RecordCapabilityResolution(status string) {
	c.capabilityResolutionsTotal.WithLabelValues(status).Inc()
}

// RecordReload 记录一次热重载结果
func (c *Collector) RecordReload(result, source string) {
	c.reloadsTotal.WithLabelValues(result, source).Inc()
}

// =============================================================================
// 🧠 记忆指标记录
// =============================================================================

// RecordMemoryOp 记录一次记忆操作
func (c *Collector) RecordMemoryOp(operation, status string) {
	c.memoryOpsTotal.WithLabelValues(operation, status).Inc()
}

// SetMemoryBytes 更新单个 Crew 的记忆体积
func (c *Collector) SetMemoryBytes(crew string, bytes int64) {
	c.memoryBytes.WithLabelValues(crew).Set(float64(bytes))
}

// =============================================================================
// 🧩 任务拆解指标记录
// =============================================================================

// RecordDecomposition 记录一次任务拆解
func (c *Collector) RecordDecomposition(complexity string, subtasks int) {
	c.decompositionsTotal.WithLabelValues(complexity).Inc()
	c.planSubtasks.Observe(float64(subtasks))
}

// =============================================================================
// 🗄️ 运行历史库指标记录
// =============================================================================

// RecordRunStoreQuery 记录一次运行历史库操作
func (c *Collector) RecordRunStoreQuery(operation, status string) {
	c.runStoreQueriesTotal.WithLabelValues(operation, status).Inc()
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}
