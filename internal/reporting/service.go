package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/velora/velora-backend/internal/commission"
	"github.com/velora/velora-backend/internal/ledger"
	"github.com/velora/velora-backend/pkg/db/models"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
)

const (
	defaultFailureWindowHours = 24
	maxFailureWindowHours     = 24 * 30
)

// StatusReport is the operational dashboard view over the ledger.
type StatusReport struct {
	Counts         []ledger.StatusCount `json:"counts"`
	RetryAnomalies int64                `json:"retry_anomalies"`
}

// FailureReport lists recent failures inside the requested window.
type FailureReport struct {
	WindowHours int                  `json:"window_hours"`
	Entries     []models.LedgerEntry `json:"entries"`
}

// Service composes read-only aggregations for administrative surfaces.
type Service interface {
	TransactionStatus(ctx context.Context) (*StatusReport, error)
	RecentFailures(ctx context.Context, windowHours int) (*FailureReport, error)
	StorePayouts(ctx context.Context) ([]commission.PayoutSummary, error)
}

// ServiceParams groups dependencies for the reporting service.
type ServiceParams struct {
	LedgerRepo     ledger.Repository
	CommissionRepo commission.Repository
}

type service struct {
	ledgerRepo     ledger.Repository
	commissionRepo commission.Repository
}

// NewService builds a reporting service.
func NewService(params ServiceParams) (Service, error) {
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.CommissionRepo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	return &service{
		ledgerRepo:     params.LedgerRepo,
		commissionRepo: params.CommissionRepo,
	}, nil
}

func (s *service) TransactionStatus(ctx context.Context) (*StatusReport, error) {
	counts, err := s.ledgerRepo.StatusCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate status counts")
	}
	anomalies, err := s.ledgerRepo.CountRetryAnomalies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count retry anomalies")
	}
	return &StatusReport{Counts: counts, RetryAnomalies: anomalies}, nil
}

func (s *service) RecentFailures(ctx context.Context, windowHours int) (*FailureReport, error) {
	if windowHours <= 0 {
		windowHours = defaultFailureWindowHours
	}
	if windowHours > maxFailureWindowHours {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure window too large").
			WithDetails(map[string]any{"max_hours": maxFailureWindowHours})
	}

	entries, err := s.ledgerRepo.RecentFailures(ctx, time.Duration(windowHours)*time.Hour)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent failures")
	}
	return &FailureReport{WindowHours: windowHours, Entries: entries}, nil
}

func (s *service) StorePayouts(ctx context.Context) ([]commission.PayoutSummary, error) {
	summaries, err := s.commissionRepo.PayoutSummaries(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate store payouts")
	}
	return summaries, nil
}
