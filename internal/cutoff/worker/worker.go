// Package worker runs the periodic cutoff job.
package worker

import (
	"context"
	"time"

	batchdomain "github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/HDZ65/crm-final-sub010/internal/clock"
	cutoffdomain "github.com/HDZ65/crm-final-sub010/internal/cutoff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Cutoffs cutoffdomain.Repository
	Batches batchdomain.Service
	Config  Config `optional:"true"`
}

// Worker scans organisations with active cutoff configurations and locks any
// open batch whose cutoff has passed.
type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	clk     clock.Clock
	cutoffs cutoffdomain.Repository
	batches batchdomain.Service
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("cutoff.worker"),
		clk:     p.Clock,
		cutoffs: p.Cutoffs,
		batches: p.Batches,
		cfg:     p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("cutoff run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes one sweep across every organisation with active
// configurations. A failure in one organisation does not stop the sweep.
func (w *Worker) RunOnce(ctx context.Context) error {
	orgIDs, err := w.cutoffs.ListOrganisationsWithActive(ctx, w.db)
	if err != nil {
		return err
	}

	now := w.clk.Now()
	var lastErr error
	total := 0
	for _, orgID := range orgIDs {
		if w.cfg.BatchLimit > 0 && total >= w.cfg.BatchLimit {
			w.log.Info("batch limit reached, deferring to next sweep",
				zap.Int("limit", w.cfg.BatchLimit),
			)
			break
		}
		locked, err := w.batches.RunCutoffJob(ctx, orgID, now)
		if err != nil {
			w.log.Warn("cutoff job failed",
				zap.String("organisation_id", orgID),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		total += len(locked)
		if len(locked) > 0 {
			w.log.Info("cutoff job locked batches",
				zap.String("organisation_id", orgID),
				zap.Int("locked", len(locked)),
			)
		}
	}
	return lastErr
}
