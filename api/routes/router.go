package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velora/velora-backend/api/controllers"
	"github.com/velora/velora-backend/api/middleware"
	"github.com/velora/velora-backend/internal/ledger"
	"github.com/velora/velora-backend/internal/payments"
	"github.com/velora/velora-backend/internal/reporting"
	"github.com/velora/velora-backend/pkg/config"
	"github.com/velora/velora-backend/pkg/db"
	"github.com/velora/velora-backend/pkg/enums"
	"github.com/velora/velora-backend/pkg/logger"
	"github.com/velora/velora-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         db.Pinger
	Redis            *redis.Client
	LedgerRepo       ledger.Repository
	LedgerService    ledger.Service
	PaymentsService  payments.Service
	ReportingService reporting.Service
	MetricsGatherer  prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	var redisPinger redis.Pinger
	var idempotencyStore redis.IdempotencyStore
	if params.Redis != nil {
		redisPinger = params.Redis
		idempotencyStore = params.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, redisPinger))
	})

	if params.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	operatorRoles := []string{
		string(enums.OperatorRoleAdmin),
		string(enums.OperatorRoleOperator),
		string(enums.OperatorRoleService),
	}
	adminRoles := []string{string(enums.OperatorRoleAdmin)}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.With(middleware.RequireRole(logg, operatorRoles...)).Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.CapturePayment(params.PaymentsService, logg))
		})

		r.With(middleware.RequireRole(logg, operatorRoles...)).Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(params.LedgerRepo, logg))
			r.Get("/{transactionId}", controllers.GetTransaction(params.LedgerRepo, logg))
			r.Post("/{transactionId}/process", controllers.ProcessTransaction(params.LedgerService, logg))
			r.Post("/{transactionId}/complete", controllers.CompleteTransaction(params.LedgerService, logg))
			r.Post("/{transactionId}/fail", controllers.FailTransaction(params.LedgerService, logg))
		})

		r.With(middleware.RequireRole(logg, adminRoles...)).Route("/reports", func(r chi.Router) {
			r.Get("/transactions/status", controllers.TransactionStatusReport(params.ReportingService, logg))
			r.Get("/transactions/failures", controllers.RecentFailuresReport(params.ReportingService, logg))
			r.Get("/commissions/payouts", controllers.StorePayoutsReport(params.ReportingService, logg))
		})
	})

	return r
}
