package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/pkg/enums"
	"github.com/velora/velora-backend/pkg/logger"
	"github.com/velora/velora-backend/pkg/metrics"
)

const expiryBatchSize = 500

// ExpiryJobParams configure the ledger expiry sweep.
type ExpiryJobParams struct {
	Logger  *logger.Logger
	DB      *gorm.DB
	Metrics *metrics.SweepJobMetrics
}

// NewExpiryJob builds the job that evicts ledger entries past their
// expiry deadline. Eviction goes strictly by expires_at regardless of
// status; eligibility has no other condition.
func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	return &expiryJob{
		logg:    params.Logger,
		db:      params.DB,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type expiryJob struct {
	logg    *logger.Logger
	db      *gorm.DB
	metrics *metrics.SweepJobMetrics
	now     func() time.Time
}

func (j *expiryJob) Name() string { return "ledger-expiry" }

func (j *expiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var errs []error
	if err := j.warnUnresolved(ctx, cutoff); err != nil {
		errs = append(errs, err)
	}
	if err := j.evictExpired(ctx, cutoff); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// warnUnresolved surfaces entries that hit their deadline while still
// pending or processing. They get evicted like everything else, but an
// open transaction aging out usually means an operator never closed it.
func (j *expiryJob) warnUnresolved(ctx context.Context, cutoff time.Time) error {
	var unresolved int64
	err := j.db.WithContext(ctx).
		Table("ledger_entries").
		Where("expires_at < ? AND status IN ?", cutoff, []string{
			string(enums.TransactionStatusPending),
			string(enums.TransactionStatusProcessing),
		}).
		Count(&unresolved).Error
	if err != nil {
		return fmt.Errorf("count unresolved expired entries: %w", err)
	}
	if unresolved > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{"unresolved": unresolved})
		j.logg.Warn(logCtx, "evicting entries that expired without resolution")
	}
	return nil
}

func (j *expiryJob) evictExpired(ctx context.Context, cutoff time.Time) error {
	var total int64
	for {
		res := j.db.WithContext(ctx).Exec(
			`DELETE FROM ledger_entries WHERE id IN (
				SELECT id FROM ledger_entries WHERE expires_at < ? LIMIT ?
			)`, cutoff, expiryBatchSize)
		if res.Error != nil {
			return fmt.Errorf("evict expired entries: %w", res.Error)
		}
		total += res.RowsAffected
		if res.RowsAffected < expiryBatchSize {
			break
		}
	}
	if j.metrics != nil {
		j.metrics.AddEvicted(total)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"evicted": total})
	j.logg.Info(logCtx, "ledger expiry sweep complete")
	return nil
}
