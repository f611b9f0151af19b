// Package metrics 提供节点级指标收集
//
// 每个节点持有独立的 Registry，多节点同进程（测试场景）互不串扰。
// Registry 由 Node.Metrics() 暴露，如何导出（promhttp、推送）由应用层决定。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weave"

// Metrics 节点指标集合
type Metrics struct {
	Registry *prometheus.Registry

	// 路由器：按协议统计连接
	ConnsAccepted  *prometheus.CounterVec
	ConnsCompleted *prometheus.CounterVec
	ConnsFailed    *prometheus.CounterVec

	// 事件桥：回调投递
	EventsDelivered prometheus.Counter
	EventsDropped   prometheus.Counter
	CallbackErrors  prometheus.Counter

	// gossip
	GossipPublished *prometheus.CounterVec
	GossipReceived  prometheus.Counter
	GossipNeighbors prometheus.Gauge

	// blobs
	BlobBytesSent     prometheus.Counter
	BlobBytesReceived prometheus.Counter

	// docs
	DocEntriesApplied prometheus.Counter
	DocSyncs          *prometheus.CounterVec

	// ping
	PingRTT prometheus.Histogram
}

// New 创建指标集合并注册到私有 Registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		ConnsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_conns_accepted_total",
			Help:      "Connections accepted, by protocol tag.",
		}, []string{"protocol"}),
		ConnsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_conns_completed_total",
			Help:      "Connections whose handler returned without error.",
		}, []string{"protocol"}),
		ConnsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_conns_failed_total",
			Help:      "Connections whose handler returned an error.",
		}, []string{"protocol"}),

		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_events_delivered_total",
			Help:      "Events delivered to foreign callbacks.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_events_dropped_total",
			Help:      "Events dropped because a subscriber channel was full.",
		}),
		CallbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_callback_errors_total",
			Help:      "Errors returned by foreign callbacks.",
		}),

		GossipPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gossip_published_total",
			Help:      "Messages published locally, by scope.",
		}, []string{"scope"}),
		GossipReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gossip_received_total",
			Help:      "Gossip messages received from neighbors.",
		}),
		GossipNeighbors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gossip_neighbors",
			Help:      "Current number of gossip neighbor links.",
		}),

		BlobBytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_bytes_sent_total",
			Help:      "Blob content bytes served to peers, pre-compression.",
		}),
		BlobBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_bytes_received_total",
			Help:      "Blob content bytes downloaded from peers, post-decompression.",
		}),

		DocEntriesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "doc_entries_applied_total",
			Help:      "Document entries merged into the local store.",
		}),
		DocSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "doc_syncs_total",
			Help:      "Document sync rounds, by local role.",
		}, []string{"role"}),

		PingRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ping_rtt_seconds",
			Help:      "Round trip time of ping probes.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	m.Registry.MustRegister(
		m.ConnsAccepted, m.ConnsCompleted, m.ConnsFailed,
		m.EventsDelivered, m.EventsDropped, m.CallbackErrors,
		m.GossipPublished, m.GossipReceived, m.GossipNeighbors,
		m.BlobBytesSent, m.BlobBytesReceived,
		m.DocEntriesApplied, m.DocSyncs,
		m.PingRTT,
	)

	return m
}
