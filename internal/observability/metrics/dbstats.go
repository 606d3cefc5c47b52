package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// dbStatsCollector expone gauges del pool database/sql.
type dbStatsCollector struct {
	db *sql.DB

	openDesc  *prometheus.Desc
	inUseDesc *prometheus.Desc
	idleDesc  *prometheus.Desc
	waitDesc  *prometheus.Desc
}

// NewDBStatsCollector crea un collector para el pool SQL del record store.
func NewDBStatsCollector(db *sql.DB, adapter string) prometheus.Collector {
	labels := prometheus.Labels{"adapter": adapter}
	return &dbStatsCollector{
		db:        db,
		openDesc:  prometheus.NewDesc("cms_db_open_connections", "Conexiones abiertas", nil, labels),
		inUseDesc: prometheus.NewDesc("cms_db_in_use_connections", "Conexiones en uso", nil, labels),
		idleDesc:  prometheus.NewDesc("cms_db_idle_connections", "Conexiones inactivas", nil, labels),
		waitDesc:  prometheus.NewDesc("cms_db_wait_count_total", "Esperas por conexión", nil, labels),
	}
}

func (c *dbStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openDesc
	ch <- c.inUseDesc
	ch <- c.idleDesc
	ch <- c.waitDesc
}

func (c *dbStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.db.Stats()
	ch <- prometheus.MustNewConstMetric(c.openDesc, prometheus.GaugeValue, float64(s.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.inUseDesc, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.waitDesc, prometheus.CounterValue, float64(s.WaitCount))
}
