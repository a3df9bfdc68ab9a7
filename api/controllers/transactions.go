package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/api/middleware"
	"github.com/velora/velora-backend/api/responses"
	"github.com/velora/velora-backend/api/validators"
	"github.com/velora/velora-backend/internal/ledger"
	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/db/types"
	"github.com/velora/velora-backend/pkg/enums"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
	"github.com/velora/velora-backend/pkg/logger"
	"github.com/velora/velora-backend/pkg/pagination"
)

type transitionRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type completeRequest struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

type failRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListTransactions returns ledger entries filtered by the query string.
func ListTransactions(repo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository unavailable"))
			return
		}

		query, err := buildListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := repo.List(r.Context(), *query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries"))
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// GetTransaction returns a single ledger entry. The path segment is the
// entry uuid or, when it does not parse as one, the external transaction id.
func GetTransaction(repo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "transactionId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required"))
			return
		}

		var entry *models.LedgerEntry
		var err error
		if entryID, parseErr := uuid.Parse(raw); parseErr == nil {
			entry, err = repo.FindByID(r.Context(), entryID)
		} else {
			entry, err = repo.FindByTransactionID(r.Context(), raw)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch ledger entry"))
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ProcessTransaction moves an entry from pending into processing.
func ProcessTransaction(service ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := entryIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		operatorID, err := operatorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := service.MarkProcessing(r.Context(), ledger.TransitionInput{
			EntryID:    entryID,
			OperatorID: operatorID,
			Notes:      req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// CompleteTransaction settles an entry.
func CompleteTransaction(service ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := entryIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		operatorID, err := operatorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req completeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := service.MarkCompleted(r.Context(), ledger.CompleteInput{
			EntryID:    entryID,
			OperatorID: operatorID,
			Metadata:   types.JSONMap(req.Metadata),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// FailTransaction records a failed attempt.
func FailTransaction(service ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := entryIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req failRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.FailInput{
			EntryID: entryID,
			Reason:  req.Reason,
		}
		// failures may arrive from automated settlement; operator is optional
		if raw := middleware.OperatorIDFromContext(r.Context()); raw != "" {
			if operatorID, parseErr := uuid.Parse(raw); parseErr == nil {
				input.OperatorID = &operatorID
			}
		}

		entry, err := service.MarkFailed(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func buildListQuery(r *http.Request) (*ledger.ListQuery, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}
	query := ledger.ListQuery{Limit: limit}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		typ, err := enums.ParseTransactionType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		query.Type = &typ
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id filter")
		}
		query.UserID = &userID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("store_id")); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id filter")
		}
		query.StoreID = &storeID
	}
	return &query, nil
}

func entryIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	entryID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id")
	}
	return entryID, nil
}

func operatorFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.OperatorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}
	operatorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid operator identity")
	}
	return operatorID, nil
}
