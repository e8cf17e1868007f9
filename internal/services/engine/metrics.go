package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var evaluationsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nsfwbot_evaluations_processed_total",
	Help: "Total number of media items evaluated.",
})

var itemsFlagged = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nsfwbot_items_flagged_total",
	Help: "Total number of media items flagged as NSFW.",
})

var whitelistSkips = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nsfwbot_whitelist_skips_total",
	Help: "Media items skipped because the sender is whitelisted.",
})

var signalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nsfwbot_signal_failures_total",
	Help: "Scoring source failures by source.",
}, []string{"source"})

var allSignalsDown = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nsfwbot_all_signals_down_total",
	Help: "Evaluations where every scoring source failed.",
})
