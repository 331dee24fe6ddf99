package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolSource is implemented by store connections backed by a pgx pool.
type PoolSource interface {
	Pool() *pgxpool.Pool
}

// poolCollector reports pgxpool occupancy at scrape time.
type poolCollector struct {
	src PoolSource

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

// NewPoolCollector returns a collector for the pool behind src.
func NewPoolCollector(src PoolSource) prometheus.Collector {
	return &poolCollector{
		src:      src,
		acquired: prometheus.NewDesc("pg_pool_acquired_conns", "Connections currently in use", nil, nil),
		idle:     prometheus.NewDesc("pg_pool_idle_conns", "Idle connections", nil, nil),
		total:    prometheus.NewDesc("pg_pool_total_conns", "Open connections", nil, nil),
		max:      prometheus.NewDesc("pg_pool_max_conns", "Configured connection limit", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	pool := c.src.Pool()
	if pool == nil {
		return
	}
	stat := pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()))
}
