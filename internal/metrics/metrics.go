package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StrategyResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "web_offline_strategy_results_total",
		Help: "Intercepted requests by strategy and how they were answered",
	}, []string{"strategy", "outcome"})

	CacheWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "web_offline_cache_write_errors_total",
		Help: "Failed writes into a cache partition",
	}, []string{"partition"})

	Installs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "web_offline_installs_total",
		Help: "Install attempts by result",
	}, []string{"result"})

	PrunedPartitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "web_offline_pruned_partitions_total",
		Help: "Stale cache partitions deleted at activation",
	})

	ReplayedSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "web_offline_replayed_submissions_total",
		Help: "Queued form submissions replayed, by queue and result",
	}, []string{"queue", "result"})

	QueuedSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "web_offline_queued_submissions_total",
		Help: "Form submissions deferred to the offline queue",
	}, []string{"queue"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "web_offline_notifications_total",
		Help: "Push notification events by kind",
	}, []string{"event"})
)

// Outcome labels for StrategyResults.
const (
	OutcomeCache    = "cache"
	OutcomeNetwork  = "network"
	OutcomeShell    = "shell"
	OutcomeOffline  = "offline"
	OutcomeBypassed = "bypassed"
)
