// Package metrics provides the Prometheus collector for flow execution.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records flow and node execution metrics. It implements
// flow.MetricsRecorder.
type Collector struct {
	flowsTotal   *prometheus.CounterVec
	flowDuration *prometheus.HistogramVec
	nodesTotal   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on reg, or on the default
// registerer when reg is nil.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		flowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flow_executions_total",
				Help:      "Total number of flow executions",
			},
			[]string{"flow", "status"},
		),
		flowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "flow_execution_duration_seconds",
				Help:      "Flow execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"flow", "status"},
		),
		nodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of node executions",
			},
			[]string{"flow", "node", "action"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_execution_duration_seconds",
				Help:      "Node execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"flow", "node"},
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// FlowCompleted records one finished flow run.
func (c *Collector) FlowCompleted(flowName, status string, duration time.Duration) {
	c.flowsTotal.WithLabelValues(flowName, status).Inc()
	c.flowDuration.WithLabelValues(flowName, status).Observe(duration.Seconds())
}

// NodeExecuted records one executed node.
func (c *Collector) NodeExecuted(flowName, node, action string, duration time.Duration) {
	c.nodesTotal.WithLabelValues(flowName, node, action).Inc()
	c.nodeDuration.WithLabelValues(flowName, node).Observe(duration.Seconds())
}
