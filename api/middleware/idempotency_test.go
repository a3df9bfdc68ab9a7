package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/velora-backend/pkg/logger"
	"github.com/velora/velora-backend/pkg/types"
)

type fakeIdempotencyStore struct {
	records map[string]string
	ttls    map[string]time.Duration
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{
		records: map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "vel:idem:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

// newIdempotencyRouter mirrors the production mounting: the middleware is
// attached with Use inside the /api/v1 group, before routing resolves the
// final pattern.
func newIdempotencyRouter(store *fakeIdempotencyStore, invocations *int) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "idempotency-test"})
	handler := func(w http.ResponseWriter, r *http.Request) {
		*invocations++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, logg))
		r.Post("/payments", handler)
		r.Post("/transactions/{transactionId}/fail", handler)
		r.Get("/transactions", handler)
	})
	return r
}

func postPayment(router http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestIdempotencyRejectsMissingKeyOnPaymentRoute(t *testing.T) {
	store := newFakeIdempotencyStore()
	invocations := 0
	router := newIdempotencyRouter(store, &invocations)

	rr := postPayment(router, "", `{"amount":"100"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, invocations)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	invocations := 0
	router := newIdempotencyRouter(store, &invocations)

	first := postPayment(router, "key-1", `{"amount":"100"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, invocations)

	second := postPayment(router, "key-1", `{"amount":"100"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, invocations, "replay must not re-invoke the handler")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	invocations := 0
	router := newIdempotencyRouter(store, &invocations)

	first := postPayment(router, "key-2", `{"amount":"100"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postPayment(router, "key-2", `{"amount":"999"}`)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, 1, invocations)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &envelope))
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", envelope.Error.Code)
}

func TestIdempotencyAppliesLongTTLToPayments(t *testing.T) {
	store := newFakeIdempotencyStore()
	invocations := 0
	router := newIdempotencyRouter(store, &invocations)

	rr := postPayment(router, "key-3", `{"amount":"100"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	require.Len(t, store.ttls, 1)
	for _, ttl := range store.ttls {
		assert.Equal(t, criticalIdempotencyTTL, ttl)
	}
}

func TestIdempotencyCoversTransitionRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	invocations := 0
	router := newIdempotencyRouter(store, &invocations)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/abc-123/fail", strings.NewReader(`{"reason":"declined"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code, "transition routes require an idempotency key")
	assert.Equal(t, 0, invocations)
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	invocations := 0
	router := newIdempotencyRouter(store, &invocations)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, invocations)
	assert.Empty(t, store.records)
}
