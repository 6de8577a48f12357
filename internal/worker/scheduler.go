package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudgovern/policyaudit/internal/config"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/services"
)

// RecordSource fetches the raw records one assessment run consumes.
type RecordSource interface {
	ListAssignments(ctx context.Context) ([]normalizer.RawAssignment, error)
	ListExemptions(ctx context.Context) ([]normalizer.RawExemption, error)
}

// Scheduler runs assessments on a cron schedule, persisting each snapshot
// and logging the delta against the previous one.
type Scheduler struct {
	service *services.AssessmentService
	source  RecordSource
	cfg     config.AssessmentConfig
	cron    *cron.Cron
	logger  *logger.Logger
}

// NewScheduler creates a scheduler. The schedule is a standard cron
// expression; an empty schedule disables the worker.
func NewScheduler(service *services.AssessmentService, source RecordSource, cfg config.AssessmentConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		source:  source,
		cfg:     cfg,
		cron:    cron.New(),
		logger:  log,
	}
}

// Start registers the cron entry and begins running. Returns without error
// when no schedule is configured.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Schedule == "" {
		s.logger.Info("no assessment schedule configured, scheduler idle")
		return nil
	}
	if _, err := cron.ParseStandard(s.cfg.Schedule); err != nil {
		return err
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.runOnce(ctx) })
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithFields(map[string]interface{}{
		"schedule": s.cfg.Schedule,
		"tenant":   s.cfg.TenantID,
	}).Info("assessment scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("assessment scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	assignments, err := s.source.ListAssignments(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "scheduled assessment: cannot fetch assignments")
		return
	}
	exemptions, err := s.source.ListExemptions(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "scheduled assessment: cannot fetch exemptions")
		return
	}

	result, err := s.service.Run(ctx, services.AssessmentInput{
		TenantID:      s.cfg.TenantID,
		ScopeFilter:   s.cfg.ScopeFilter,
		VersionTag:    s.cfg.VersionTag,
		Assignments:   assignments,
		Exemptions:    exemptions,
		Persist:       true,
		CompareLatest: true,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "scheduled assessment failed")
		return
	}

	if result.Delta != nil {
		s.logger.WithFields(map[string]interface{}{
			"trend":   result.Delta.Trend,
			"new":     len(result.Delta.NewAssignments),
			"removed": len(result.Delta.RemovedAssignments),
			"changed": len(result.Delta.ChangedAssignments),
		}).Info("scheduled assessment delta")
	}

	if s.cfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
		pruned, err := s.service.Snapshots().Prune(ctx, s.cfg.TenantID, cutoff)
		if err != nil {
			s.logger.ErrorWithErr(err, "snapshot pruning failed")
		} else if pruned > 0 {
			s.logger.Infof("pruned %d snapshots older than %d days", pruned, s.cfg.RetentionDays)
		}
	}
}
