package db

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolMetrics exposes pool gauges on reg, sampled at scrape time.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"db_pool_total_conns", "Total connections currently held by the pool.",
			func() float64 { return float64(pool.Stat().TotalConns()) }},
		{"db_pool_idle_conns", "Idle connections in the pool.",
			func() float64 { return float64(pool.Stat().IdleConns()) }},
		{"db_pool_acquired_conns", "Connections currently checked out of the pool.",
			func() float64 { return float64(pool.Stat().AcquiredConns()) }},
		{"db_pool_max_conns", "Configured maximum pool size.",
			func() float64 { return float64(pool.Stat().MaxConns()) }},
	}

	for _, g := range gauges {
		if err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, g.fn)); err != nil {
			return err
		}
	}
	return nil
}
