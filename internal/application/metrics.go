package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultpanel_account_syncs_total",
			Help: "Account sync attempts by trigger and outcome",
		},
		[]string{"mode", "outcome"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaultpanel_sync_duration_seconds",
			Help:    "Wall time of single-account and full syncs",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	cachedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultpanel_cached_accounts",
		Help: "Accounts currently held in the store cache",
	})
)

const (
	modeSingle = "single"
	modeAll    = "all"
)

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
