// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Aggregation outcome label values.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomePending   = "pending"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 规划周期指标
	cyclesTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec

	// 聚合与约束指标
	aggregationsTotal    *prometheus.CounterVec
	constraintViolations *prometheus.GaugeVec
	pendingConstraints   *prometheus.GaugeVec

	// 组合任务指标
	distributionsTotal *prometheus.CounterVec
	cascadesTotal      *prometheus.CounterVec

	// 结果存储指标
	storeOpsTotal   *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec

	// 数据库连接池指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry prometheus.Registerer
	logger   *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg。reg 为 nil 时使用默认 Registerer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// 规划周期指标
	c.cyclesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_cycles_total",
			Help:      "Total number of planning cycles",
		},
		[]string{"agent_id", "status"},
	)

	c.cycleDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "planner_cycle_duration_seconds",
			Help:      "Planning cycle duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"agent_id"},
	)

	// 聚合与约束指标
	c.aggregationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_aggregations_total",
			Help:      "Total number of workflow aggregations by outcome",
		},
		[]string{"agent_id", "aggregator", "outcome"},
	)

	c.constraintViolations = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "constraint_violations",
			Help:      "Number of violated constraints seen in the last cycle",
		},
		[]string{"agent_id"},
	)

	c.pendingConstraints = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "constraints_pending",
			Help:      "Number of constraints whose constrained task has no result yet",
		},
		[]string{"agent_id"},
	)

	// 组合任务指标
	c.distributionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "composition_distributions_total",
			Help:      "Total number of composition result distributions",
		},
		[]string{"agent_id", "status"},
	)

	c.cascadesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_removals_total",
			Help:      "Total number of tasks removed by cascading retraction",
		},
		[]string{"source"}, // source: workflow, composition
	)

	// 结果存储指标
	c.storeOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_store_operations_total",
			Help:      "Total number of result store operations",
		},
		[]string{"driver", "operation", "status"},
	)

	c.storeOpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_store_operation_duration_seconds",
			Help:      "Result store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	// 数据库连接池指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Registerer 返回指标注册的目标
func (c *Collector) Registerer() prometheus.Registerer {
	return c.registry
}

// =============================================================================
// 🔄 规划周期指标记录
// =============================================================================

// RecordCycle 记录一次规划周期
func (c *Collector) RecordCycle(agentID string, err error, duration time.Duration) {
	c.cyclesTotal.WithLabelValues(agentID, statusOf(err)).Inc()
	c.cycleDuration.WithLabelValues(agentID).Observe(duration.Seconds())
}

// RecordAggregation 记录一次工作流聚合结果
func (c *Collector) RecordAggregation(agentID, aggregator, outcome string) {
	c.aggregationsTotal.WithLabelValues(agentID, aggregator, outcome).Inc()
}

// SetConstraintState 记录最近一次周期的约束状态
func (c *Collector) SetConstraintState(agentID string, violated, pending int) {
	c.constraintViolations.WithLabelValues(agentID).Set(float64(violated))
	c.pendingConstraints.WithLabelValues(agentID).Set(float64(pending))
}

// =============================================================================
// 🧩 组合任务指标记录
// =============================================================================

// RecordDistribution 记录一次组合结果分发
func (c *Collector) RecordDistribution(agentID string, err error) {
	c.distributionsTotal.WithLabelValues(agentID, statusOf(err)).Inc()
}

// RecordCascade 记录级联移除的任务数
func (c *Collector) RecordCascade(source string, removed int) {
	if removed <= 0 {
		return
	}
	c.cascadesTotal.WithLabelValues(source).Add(float64(removed))
}

// =============================================================================
// 💾 存储指标记录
// =============================================================================

// RecordStoreOp 记录结果存储操作
func (c *Collector) RecordStoreOp(driver, operation string, err error, duration time.Duration) {
	c.storeOpsTotal.WithLabelValues(driver, operation, statusOf(err)).Inc()
	c.storeOpDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🌐 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
