package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pigeon_ticks_total",
		Help: "Completed evaluation ticks.",
	})
	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pigeon_tick_errors_total",
		Help: "Ticks that aborted before completing.",
	})
	instrumentErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pigeon_instrument_errors_total",
		Help: "Per-instrument evaluation failures, skipped within the tick.",
	})
	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pigeon_signals_total",
		Help: "Strategy verdicts by pool and signal.",
	}, []string{"pool", "signal"})
	fillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pigeon_fills_total",
		Help: "Executed fills by pool and side.",
	}, []string{"pool", "side"})
	equityGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pigeon_equity_quote",
		Help: "Total marked equity across pools in quote units.",
	})
)
