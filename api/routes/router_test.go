package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/internal/commission"
	"github.com/velora/velora-backend/internal/ledger"
	"github.com/velora/velora-backend/internal/payments"
	"github.com/velora/velora-backend/internal/reporting"
	pkgAuth "github.com/velora/velora-backend/pkg/auth"
	"github.com/velora/velora-backend/pkg/config"
	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/enums"
	"github.com/velora/velora-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubLedgerRepo struct{}

func (stubLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return stubLedgerRepo{} }

func (stubLedgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return fmt.Errorf("not implemented")
}

func (stubLedgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubLedgerRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.LedgerEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (stubLedgerRepo) List(ctx context.Context, query ledger.ListQuery) ([]models.LedgerEntry, error) {
	return []models.LedgerEntry{}, nil
}

func (stubLedgerRepo) UpdateChecked(ctx context.Context, entry *models.LedgerEntry) error {
	return fmt.Errorf("not implemented")
}

func (stubLedgerRepo) StatusCounts(ctx context.Context) ([]ledger.StatusCount, error) {
	return []ledger.StatusCount{}, nil
}

func (stubLedgerRepo) RecentFailures(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error) {
	return []models.LedgerEntry{}, nil
}

func (stubLedgerRepo) CountRetryAnomalies(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubCommissionRepo struct{}

func (stubCommissionRepo) WithTx(tx *gorm.DB) commission.Repository { return stubCommissionRepo{} }

func (stubCommissionRepo) Create(ctx context.Context, record *models.CommissionRecord) error {
	return fmt.Errorf("not implemented")
}

func (stubCommissionRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionRecord, error) {
	return []models.CommissionRecord{}, nil
}

func (stubCommissionRepo) PayoutSummaries(ctx context.Context) ([]commission.PayoutSummary, error) {
	return []commission.PayoutSummary{}, nil
}

type stubLedgerService struct{}

func (stubLedgerService) MarkProcessing(ctx context.Context, input ledger.TransitionInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.TransactionStatusProcessing}, nil
}

func (stubLedgerService) MarkCompleted(ctx context.Context, input ledger.CompleteInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.TransactionStatusCompleted}, nil
}

func (stubLedgerService) MarkFailed(ctx context.Context, input ledger.FailInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{ID: input.EntryID, Status: enums.TransactionStatusFailed}, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) Capture(ctx context.Context, input payments.CaptureInput) (*payments.CaptureResult, error) {
	return &payments.CaptureResult{Entry: &models.LedgerEntry{TransactionID: input.TransactionID}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "velora-test",
			ExpirationMinutes: 5,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	reportingService, err := reporting.NewService(reporting.ServiceParams{
		LedgerRepo:     stubLedgerRepo{},
		CommissionRepo: stubCommissionRepo{},
	})
	require.NoError(t, err)

	return NewRouter(RouterParams{
		Config:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "router-test"}),
		DBPinger:         stubPinger{},
		LedgerRepo:       stubLedgerRepo{},
		LedgerService:    stubLedgerService{},
		PaymentsService:  stubPaymentsService{},
		ReportingService: reportingService,
	})
}

func mintToken(t *testing.T, cfg *config.Config, role enums.OperatorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		OperatorID: uuid.New(),
		Role:       role,
	})
	require.NoError(t, err)
	return token
}

func TestRouter_HealthEndpointsAreOpen(t *testing.T) {
	router := newTestRouter(t, testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_TransactionsRequireAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_TransactionsWithOperatorToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.OperatorRoleOperator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_TransitionRoutesAreWired(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	token := mintToken(t, cfg, enums.OperatorRoleOperator)
	entryID := uuid.New()

	for path, body := range map[string]string{
		fmt.Sprintf("/api/v1/transactions/%s/process", entryID):  `{}`,
		fmt.Sprintf("/api/v1/transactions/%s/complete", entryID): `{}`,
		fmt.Sprintf("/api/v1/transactions/%s/fail", entryID):     `{"reason":"card declined"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_ReportsRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/transactions/status", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.OperatorRoleOperator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/transactions/status", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.OperatorRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CapturePayment(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	body := fmt.Sprintf(`{
		"transaction_id": "TXN-2024-100",
		"user_id": %q,
		"store_id": %q,
		"order_id": %q,
		"amount": "1000",
		"payment_method": "card",
		"payment_provider": "stripe"
	}`, uuid.NewString(), uuid.NewString(), uuid.NewString())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.OperatorRoleService))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
