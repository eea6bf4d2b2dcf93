// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the points ledger.
var (
	// Ledger counters.
	PointsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_granted_total",
			Help: "Total points granted, by source",
		},
		[]string{"source"},
	)

	PointsDeductedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_deducted_total",
			Help: "Total points deducted, by source",
		},
		[]string{"source"},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total ledger operations by kind and outcome",
		},
		[]string{"operation", "status"},
	)

	// Trigger counters.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Total committed status changes of pickups, donations and redemptions",
		},
		[]string{"entity", "status"},
	)

	VoucherRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_redemptions_total",
			Help: "Total voucher redemption attempts",
		},
		[]string{"status"},
	)

	CashoutAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cashout_amount_total",
			Help: "Total cash paid out through completed redemption requests",
		},
	)

	// Badge metrics.
	BadgesGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_granted_total",
			Help: "Total number of badges granted",
		},
		[]string{"badge_name"},
	)

	BadgesRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_revoked_total",
			Help: "Total number of badges revoked",
		},
		[]string{"badge_name"},
	)

	// Notification metrics.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total notifications delivered, by channel",
		},
		[]string{"channel"},
	)

	NotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total failed notification attempts, by channel",
		},
		[]string{"channel"},
	)

	// Reconcile job metrics.
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Total balance reconcile job executions",
		},
		[]string{"status"},
	)

	ReconcileMismatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_balance_mismatches",
			Help: "Balances that disagree with their points log in the last reconcile run",
		},
	)

	ReconcileLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_last_run_timestamp",
			Help: "Unix timestamp of last reconcile run",
		},
	)

	ReconcileDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Time taken to execute the reconcile job",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)
)

// RecordPointsGranted records points added to a balance.
func RecordPointsGranted(source string, points int64) {
	PointsGrantedTotal.WithLabelValues(source).Add(float64(points))
}

// RecordPointsDeducted records points removed from a balance.
func RecordPointsDeducted(source string, points int64) {
	PointsDeductedTotal.WithLabelValues(source).Add(float64(points))
}

// RecordLedgerOperation records the outcome of a ledger operation.
func RecordLedgerOperation(operation, status string) {
	LedgerOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordStatusTransition records a committed status change.
func RecordStatusTransition(entity, status string) {
	StatusTransitionsTotal.WithLabelValues(entity, status).Inc()
}

// RecordVoucherRedemption records a voucher redemption attempt.
func RecordVoucherRedemption(status string) {
	VoucherRedemptionsTotal.WithLabelValues(status).Inc()
}

// RecordCashout adds a completed cash-out amount.
func RecordCashout(amount float64) {
	CashoutAmountTotal.Add(amount)
}

// RecordBadgeGranted records a badge grant.
func RecordBadgeGranted(badgeName string) {
	BadgesGrantedTotal.WithLabelValues(badgeName).Inc()
}

// RecordBadgeRevoked records a badge revocation.
func RecordBadgeRevoked(badgeName string) {
	BadgesRevokedTotal.WithLabelValues(badgeName).Inc()
}

// RecordNotificationSent records a delivered notification.
func RecordNotificationSent(channel string) {
	NotificationsSentTotal.WithLabelValues(channel).Inc()
}

// RecordNotificationFailed records a failed notification.
func RecordNotificationFailed(channel string) {
	NotificationsFailedTotal.WithLabelValues(channel).Inc()
}

// RecordReconcileRun records a reconcile job execution.
func RecordReconcileRun(status string) {
	ReconcileRunsTotal.WithLabelValues(status).Inc()
}

// SetReconcileMismatches sets the mismatch count of the last reconcile run.
func SetReconcileMismatches(count int) {
	ReconcileMismatches.Set(float64(count))
}

// SetReconcileLastRun sets the timestamp of the last reconcile run.
func SetReconcileLastRun() {
	ReconcileLastRunTimestamp.SetToCurrentTime()
}

// ObserveReconcileDuration observes the duration of a reconcile run.
func ObserveReconcileDuration(seconds float64) {
	ReconcileDurationSeconds.Observe(seconds)
}
