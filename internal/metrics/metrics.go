// Package metrics exposes the engine's diagnostic counters as Prometheus
// metrics. The collector reads a fresh Stats snapshot on every scrape, so
// registration has no ongoing cost between scrapes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vk/propgrid/internal/database"
)

// Collector adapts a Database's stats snapshot to the Prometheus collector
// contract.
type Collector struct {
	db *database.Database

	properties *prometheus.Desc
	patterns   *prometheus.Desc
	patternOps *prometheus.Desc
	inputs     *prometheus.Desc
	nodes      *prometheus.Desc
	relNodes   *prometheus.Desc
}

// NewCollector creates a collector for db. Register it on a prometheus
// registry; it is safe to scrape concurrently with engine activity.
func NewCollector(db *database.Database) *Collector {
	return &Collector{
		db: db,
		properties: prometheus.NewDesc(
			"propgrid_properties",
			"Number of property slots by evaluation phase.",
			[]string{"phase"}, nil,
		),
		patterns: prometheus.NewDesc(
			"propgrid_patterns",
			"Number of interned dependency patterns currently cached.",
			nil, nil,
		),
		patternOps: prometheus.NewDesc(
			"propgrid_pattern_cache_operations_total",
			"Cumulative pattern cache operations by result.",
			[]string{"result"}, nil,
		),
		inputs: prometheus.NewDesc(
			"propgrid_inputs",
			"Number of externally supplied input values currently stored.",
			nil, nil,
		),
		nodes: prometheus.NewDesc(
			"propgrid_nodes_allocated_total",
			"Total node IDs allocated since process start.",
			nil, nil,
		),
		relNodes: prometheus.NewDesc(
			"propgrid_relationship_nodes",
			"Number of nodes carrying at least one structural edge.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.properties
	ch <- c.patterns
	ch <- c.patternOps
	ch <- c.inputs
	ch <- c.nodes
	ch <- c.relNodes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.db.Stats()

	ch <- prometheus.MustNewConstMetric(c.properties, prometheus.GaugeValue,
		float64(st.Properties.Evaluated), "evaluated")
	ch <- prometheus.MustNewConstMetric(c.properties, prometheus.GaugeValue,
		float64(st.Properties.Computing), "computing")
	ch <- prometheus.MustNewConstMetric(c.properties, prometheus.GaugeValue,
		float64(st.Properties.Unevaluated), "unevaluated")

	ch <- prometheus.MustNewConstMetric(c.patterns, prometheus.GaugeValue,
		float64(st.Patterns.Size))
	ch <- prometheus.MustNewConstMetric(c.patternOps, prometheus.CounterValue,
		float64(st.Patterns.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(c.patternOps, prometheus.CounterValue,
		float64(st.Patterns.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(c.patternOps, prometheus.CounterValue,
		float64(st.Patterns.Released), "released")

	ch <- prometheus.MustNewConstMetric(c.inputs, prometheus.GaugeValue,
		float64(st.Inputs))
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.CounterValue,
		float64(st.Nodes))
	ch <- prometheus.MustNewConstMetric(c.relNodes, prometheus.GaugeValue,
		float64(st.RelNodes))
}
