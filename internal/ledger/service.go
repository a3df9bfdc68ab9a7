package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/db/types"
	"github.com/velora/velora-backend/pkg/enums"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
	"github.com/velora/velora-backend/pkg/logger"
	"github.com/velora/velora-backend/pkg/metrics"
)

// RetryCap is the advisory ceiling on failure retries. The cap is not
// enforced: a failure past the cap is still recorded, but it is surfaced as
// an anomaly through logs, metrics, and reporting.
const RetryCap = 5

// Service drives ledger entry lifecycle transitions.
type Service interface {
	MarkProcessing(ctx context.Context, input TransitionInput) (*models.LedgerEntry, error)
	MarkCompleted(ctx context.Context, input CompleteInput) (*models.LedgerEntry, error)
	MarkFailed(ctx context.Context, input FailInput) (*models.LedgerEntry, error)
}

// TransitionInput identifies the entry and the operator moving it.
type TransitionInput struct {
	EntryID    uuid.UUID
	OperatorID uuid.UUID
	Notes      *string
}

// CompleteInput carries provider response fields to fold into the entry.
type CompleteInput struct {
	EntryID    uuid.UUID
	OperatorID uuid.UUID
	Metadata   types.JSONMap
}

// FailInput records why an attempt failed. The operator is optional: expiry
// or automated settlement failures carry no human actor.
type FailInput struct {
	EntryID    uuid.UUID
	Reason     string
	OperatorID *uuid.UUID
}

// ServiceParams groups dependencies for the lifecycle service.
type ServiceParams struct {
	Repo    Repository
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
	Now     func() time.Time
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires a lifecycle service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) MarkProcessing(ctx context.Context, input TransitionInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}

	entry, err := s.load(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.guardTransition(entry, enums.TransactionStatusProcessing); err != nil {
		return nil, err
	}
	if entry.Status != enums.TransactionStatusPending {
		s.reject("not_pending")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry can only start processing from pending").
			WithDetails(map[string]any{"status": entry.Status})
	}

	now := s.now().UTC()
	entry.Status = enums.TransactionStatusProcessing
	entry.AttemptedAt = &now
	operator := input.OperatorID
	entry.ProcessedBy = &operator
	if input.Notes != nil {
		entry.Notes = input.Notes
	}

	if err := s.repo.UpdateChecked(ctx, entry); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.transition(entry.Status)
	return entry, nil
}

func (s *service) MarkCompleted(ctx context.Context, input CompleteInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}

	entry, err := s.load(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.guardTransition(entry, enums.TransactionStatusCompleted); err != nil {
		return nil, err
	}
	// Completion is tolerated straight from pending: manual and
	// cash-on-delivery flows have no distinct processing step.
	switch entry.Status {
	case enums.TransactionStatusPending, enums.TransactionStatusProcessing:
	default:
		s.reject("bad_source_status")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry cannot complete from its current status").
			WithDetails(map[string]any{"status": entry.Status})
	}

	now := s.now().UTC()
	entry.Status = enums.TransactionStatusCompleted
	entry.CompletedAt = &now
	operator := input.OperatorID
	entry.ProcessedBy = &operator
	entry.Metadata = entry.Metadata.Merge(input.Metadata)

	if err := s.repo.UpdateChecked(ctx, entry); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.transition(entry.Status)
	return entry, nil
}

func (s *service) MarkFailed(ctx context.Context, input FailInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}

	entry, err := s.load(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.guardTransition(entry, enums.TransactionStatusFailed); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry.Status = enums.TransactionStatusFailed
	entry.FailedAt = &now
	entry.Metadata = entry.Metadata.Merge(types.JSONMap{"failure_reason": input.Reason})
	if input.OperatorID != nil {
		entry.ProcessedBy = input.OperatorID
	}
	entry.RetryCount++

	if entry.RetryCount > RetryCap {
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"entry_id":    entry.ID.String(),
			"retry_count": entry.RetryCount,
		})
		s.logg.Warn(warnCtx, "ledger entry failed past the advisory retry cap")
		if s.metrics != nil {
			s.metrics.IncRetryAnomaly()
		}
	}

	if err := s.repo.UpdateChecked(ctx, entry); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.transition(entry.Status)
	return entry, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	return entry, nil
}

// guardTransition rejects any movement out of a terminal status.
func (s *service) guardTransition(entry *models.LedgerEntry, target enums.TransactionStatus) error {
	if !entry.Status.IsTerminal() {
		return nil
	}
	s.reject("terminal_status")
	return pkgerrors.New(pkgerrors.CodeStateConflict, "ledger entry is in a terminal status").
		WithDetails(map[string]any{"status": entry.Status, "target": target})
}

func (s *service) mapWriteError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	if pkgerrors.HasCode(err, pkgerrors.CodeStaleWrite) {
		s.reject("stale_write")
		return err
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger entry")
}

func (s *service) transition(to enums.TransactionStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(to.String())
	}
}

func (s *service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.IncRejection(reason)
	}
}
