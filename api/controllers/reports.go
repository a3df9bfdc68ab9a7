package controllers

import (
	"net/http"

	"github.com/velora/velora-backend/api/responses"
	"github.com/velora/velora-backend/api/validators"
	"github.com/velora/velora-backend/internal/reporting"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
	"github.com/velora/velora-backend/pkg/logger"
)

// TransactionStatusReport aggregates entries per status plus retry anomalies.
func TransactionStatusReport(service reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		report, err := service.TransactionStatus(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// RecentFailuresReport lists failed entries inside the requested window.
func RecentFailuresReport(service reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		hours, err := validators.ParseQueryInt(r, "hours", 24, 1, 24*30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := service.RecentFailures(r.Context(), hours)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// StorePayoutsReport summarizes commission splits grouped by store and status.
func StorePayoutsReport(service reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		summaries, err := service.StorePayouts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summaries)
	}
}
