// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsReadTotal counts packets handed over by the packet source
	PacketsReadTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfprobe_packets_read_total",
			Help: "Total number of packets read from the packet source",
		},
	)

	// ParseFailuresTotal counts packets skipped because their headers could not be decoded
	ParseFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfprobe_parse_failures_total",
			Help: "Total number of packets that failed header decoding",
		},
		[]string{"reason"},
	)

	// NonIPv4PacketsTotal counts decoded packets ignored by flow accounting
	NonIPv4PacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfprobe_non_ipv4_packets_total",
			Help: "Total number of decoded packets that were not IPv4",
		},
	)

	// FlowsCreatedTotal counts flow records created in the flow table
	FlowsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfprobe_flows_created_total",
			Help: "Total number of flow records created",
		},
	)

	// FlowsRetiredTotal counts flow records removed from the flow table by reason
	FlowsRetiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfprobe_flows_retired_total",
			Help: "Total number of flow records retired (active, inactive, capacity, flush)",
		},
		[]string{"reason"},
	)

	// FlowsActive tracks the number of live flow records
	FlowsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nfprobe_flows_active",
			Help: "Current number of live flow records in the flow table",
		},
	)

	// DatagramsSentTotal counts NetFlow datagrams handed to the transport successfully
	DatagramsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfprobe_datagrams_sent_total",
			Help: "Total number of NetFlow v5 datagrams sent",
		},
	)

	// SendFailuresTotal counts datagrams the transport failed to send
	SendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfprobe_send_failures_total",
			Help: "Total number of NetFlow v5 datagrams that failed to send",
		},
	)

	// RecordsExportedTotal counts export records placed into datagrams
	RecordsExportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfprobe_records_exported_total",
			Help: "Total number of flow records exported",
		},
	)

	// DatagramRecords tracks the record count distribution per datagram
	DatagramRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nfprobe_datagram_records",
			Help:    "Number of flow records per NetFlow v5 datagram",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 25, 30},
		},
	)
)

// Retirement reasons used as the "reason" label of FlowsRetiredTotal.
const (
	ReasonActive   = "active"
	ReasonInactive = "inactive"
	ReasonCapacity = "capacity"
	ReasonFlush    = "flush"
)
