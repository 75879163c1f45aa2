package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", reg, zap.NewNop()), reg
}

func TestNewCollector(t *testing.T) {
	collector, reg := newTestCollector(t)

	assert.NotNil(t, collector.cyclesTotal)
	assert.NotNil(t, collector.aggregationsTotal)
	assert.NotNil(t, collector.storeOpsTotal)
	assert.Same(t, reg, collector.Registerer())

	// 同一 registry 重复注册会 panic
	assert.Panics(t, func() { NewCollector("test", reg, nil) })
}

func TestCollector_RecordCycle(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordCycle("agent-1", nil, 5*time.Millisecond)
	collector.RecordCycle("agent-1", nil, 7*time.Millisecond)
	collector.RecordCycle("agent-1", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cyclesTotal.WithLabelValues("agent-1", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cyclesTotal.WithLabelValues("agent-1", StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.cycleDuration))
}

func TestCollector_RecordAggregation(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordAggregation("a", "default", OutcomeChanged)
	collector.RecordAggregation("a", "default", OutcomeUnchanged)
	collector.RecordAggregation("a", "default", OutcomeUnchanged)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.aggregationsTotal.WithLabelValues("a", "default", OutcomeChanged)))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.aggregationsTotal.WithLabelValues("a", "default", OutcomeUnchanged)))
}

func TestCollector_SetConstraintState(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.SetConstraintState("a", 3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.constraintViolations.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.pendingConstraints.WithLabelValues("a")))

	// gauge 反映最新周期
	collector.SetConstraintState("a", 0, 0)
	assert.Zero(t, testutil.ToFloat64(collector.constraintViolations.WithLabelValues("a")))
}

func TestCollector_Composition(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordDistribution("a", nil)
	collector.RecordDistribution("a", errors.New("x"))
	collector.RecordCascade("composition", 3)
	collector.RecordCascade("workflow", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.distributionsTotal.WithLabelValues("a", StatusError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.cascadesTotal.WithLabelValues("composition")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.cascadesTotal))
}

func TestCollector_RecordStoreOp(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordStoreOp("redis", "save", nil, 2*time.Millisecond)
	collector.RecordStoreOp("redis", "save", errors.New("down"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.storeOpsTotal.WithLabelValues("redis", "save", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.storeOpsTotal.WithLabelValues("redis", "save", StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.storeOpDuration))
}

func TestCollector_RecordDBConnections(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordDBConnections("sqlite", 10, 5)
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("sqlite")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("sqlite")))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordHTTPRequest("GET", "/metrics", 200, 10*time.Millisecond)
	collector.RecordHTTPRequest("GET", "/health", 503, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "5xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.httpRequestsTotal))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(500))
	assert.Equal(t, "unknown", statusCode(100))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector, reg := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordCycle("agent", nil, time.Millisecond)
			collector.RecordStoreOp("memory", "load", nil, time.Microsecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.cyclesTotal.WithLabelValues("agent", StatusSuccess)))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
