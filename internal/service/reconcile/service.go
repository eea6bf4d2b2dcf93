// Package reconcile periodically audits that every balance equals the sum of its points
// log. The job only reads; mismatches are reported through logs, metrics and an optional
// ops webhook message, never corrected automatically.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ecohood/points-ledger/internal/config"
	prommetrics "github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// Auditor finds balances that disagree with the log.
type Auditor interface {
	FindMismatches() ([]repository.BalanceMismatch, error)
	CountBalances() (int64, error)
}

// Alerter posts an operations message.
type Alerter interface {
	SendMessage(ctx context.Context, msg *notify.Message) error
}

// Report is the result of one audit run.
type Report struct {
	Checked    int64                        `json:"checked"`
	Mismatches []repository.BalanceMismatch `json:"mismatches"`
	RanAt      time.Time                    `json:"ran_at"`
	Duration   time.Duration                `json:"duration"`
}

// OK reports whether the ledger invariant held for every balance.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Service runs the audit on a cron schedule.
type Service struct {
	config  *config.SchedulerConfig
	auditor Auditor
	alerter Alerter
	log     *logger.Logger
	cron    *cron.Cron
}

// NewService creates a new reconcile service. alerter may be nil.
func NewService(cfg *config.SchedulerConfig, auditor Auditor, alerter Alerter, log *logger.Logger) *Service {
	return &Service{
		config:  cfg,
		auditor: auditor,
		alerter: alerter,
		log:     log.Component("reconcile"),
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Reconcile scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	_, err = s.cron.AddFunc(s.config.ReconcileCron, func() {
		_, _ = s.Run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	s.cron.Start()

	nextRun := ""
	if entries := s.cron.Entries(); len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", s.config.ReconcileCron).
		Str("timezone", s.config.Timezone).
		Str("next_run", nextRun).
		Msg("Reconcile scheduler started")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running job.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Reconcile scheduler stopped")
	}
}

// Run executes one audit.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveReconcileDuration(time.Since(start).Seconds())
		prommetrics.SetReconcileLastRun()
	}()

	checked, err := s.auditor.CountBalances()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to count balances")
		prommetrics.RecordReconcileRun("error")
		return nil, fmt.Errorf("failed to count balances: %w", err)
	}

	mismatches, err := s.auditor.FindMismatches()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compare balances with points log")
		prommetrics.RecordReconcileRun("error")
		return nil, fmt.Errorf("failed to reconcile balances: %w", err)
	}

	report := &Report{
		Checked:    checked,
		Mismatches: mismatches,
		RanAt:      start.UTC(),
		Duration:   time.Since(start),
	}
	prommetrics.SetReconcileMismatches(len(mismatches))

	if report.OK() {
		prommetrics.RecordReconcileRun("success")
		s.log.Info().
			Int64("checked", checked).
			Dur("duration", report.Duration).
			Msg("Balances reconciled")
		return report, nil
	}

	prommetrics.RecordReconcileRun("mismatch")
	for _, m := range mismatches {
		s.log.Error().
			Uint("user_id", m.UserID).
			Int64("balance", m.PointsBalance).
			Int64("log_total", m.LogTotal).
			Msg("Balance does not match points log")
	}

	if s.alerter != nil {
		if err := s.alerter.SendMessage(ctx, &notify.Message{Text: alertText(report)}); err != nil {
			s.log.Warn().Err(err).Msg("Failed to send reconcile alert")
		}
	}

	return report, nil
}

func alertText(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Points ledger mismatch\n\n%d of %d balances disagree with the points log:\n\n", len(r.Mismatches), r.Checked)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "- user #%d: balance %d, log total %d\n", m.UserID, m.PointsBalance, m.LogTotal)
	}
	return b.String()
}
