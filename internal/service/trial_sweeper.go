package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
	"github.com/tallerhub/tallerhub/internal/ports"
)

const (
	DefaultSweepSchedule  = "@hourly"
	DefaultSweepBatchSize = 100
)

// TrialSweeperOptions groups dependencies for TrialSweeper.
type TrialSweeperOptions struct {
	Tenants   ports.TenantStore     // Required
	Publisher ports.ChangePublisher // Optional
	Schedule  string                // cron spec or descriptor; defaults to @hourly
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.Registry
	Now       func() time.Time
}

// TrialSweeper expires elapsed trials on a schedule. Resolution expires trials
// lazily on read; the sweeper covers shops nobody has opened since their
// window closed.
type TrialSweeper struct {
	tenants   ports.TenantStore
	publisher ports.ChangePublisher
	schedule  cron.Schedule
	spec      string
	batch     int
	logger    *slog.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewTrialSweeper constructs a TrialSweeper.
func NewTrialSweeper(opts TrialSweeperOptions) (*TrialSweeper, error) {
	if opts.Tenants == nil {
		return nil, errors.New("TenantStore is required")
	}
	spec := opts.Schedule
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultSweepBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TrialSweeper{
		tenants:   opts.Tenants,
		publisher: opts.Publisher,
		schedule:  sched,
		spec:      spec,
		batch:     batch,
		logger:    logger.With("component", "trial_sweeper"),
		metrics:   opts.Metrics,
		now:       now,
	}, nil
}

// Run sweeps once, then on every scheduled tick until ctx is cancelled.
// Returns nil on graceful shutdown.
func (s *TrialSweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting trial sweeper", "schedule", s.spec, "batch_size", s.batch)

	s.sweepAndLog(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.sweepAndLog(ctx) }))
	c.Start()

	<-ctx.Done()
	s.logger.InfoContext(ctx, "trial sweeper stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

func (s *TrialSweeper) sweepAndLog(ctx context.Context) {
	n, err := s.Sweep(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		// shutting down
	case err != nil:
		s.logger.ErrorContext(ctx, "trial sweep failed", "expired", n, "error", err)
	case n > 0:
		s.logger.InfoContext(ctx, "trial sweep completed", "expired", n)
	}
}

// Sweep expires every trial whose window closed before now, in batches.
// It returns the number of tenants that changed state.
func (s *TrialSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now()
	total := 0
	for {
		ids, err := s.tenants.ListTrialsEndedBefore(ctx, cutoff, s.batch)
		if err != nil {
			s.metrics.Sweep(total, err)
			return total, fmt.Errorf("list ended trials: %w", err)
		}

		n, err := s.expireBatch(ctx, ids)
		total += n
		// A failed row would be listed again; stop rather than spin on it.
		if err != nil {
			s.metrics.Sweep(total, err)
			return total, err
		}
		if len(ids) < s.batch {
			break
		}
		if err := ctx.Err(); err != nil {
			s.metrics.Sweep(total, err)
			return total, err
		}
	}
	s.metrics.Sweep(total, nil)
	return total, nil
}

func (s *TrialSweeper) expireBatch(ctx context.Context, ids []string) (int, error) {
	var (
		expired int
		errs    []error
	)
	for _, id := range ids {
		changed, err := s.tenants.MarkExpired(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire tenant %s: %w", id, err))
			continue
		}
		if !changed {
			continue
		}
		expired++
		if s.publisher != nil {
			ev := change.Event{Table: change.TableTenants, TenantID: id}
			if err := s.publisher.Publish(ctx, ev); err != nil {
				s.logger.WarnContext(ctx, "publish trial expiry failed", "tenant_id", id, "error", err)
			}
		}
	}
	return expired, errors.Join(errs...)
}
