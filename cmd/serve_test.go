package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimoine-app/patrimoine/internal/decision"
	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/profile"
	"github.com/patrimoine-app/patrimoine/internal/store"
)

func newTestAPI(t *testing.T) (*apiServer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	resolver := profile.NewResolver(st)
	engine := decision.NewEngine(st, resolver, nil)
	resolver.RegisterInvalidator(engine)

	return &apiServer{store: st, resolver: resolver, engine: engine}, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := doJSON(t, api.routes(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestScoreEndpointPersistsWhenUserGiven(t *testing.T) {
	api, st := newTestAPI(t)
	h := api.routes()

	rr := doJSON(t, h, http.MethodPost, "/api/profile/score", map[string]any{
		"user_id": "u1",
		"answers": map[string]any{
			"investment_horizon":  "Plus de 10 ans",
			"max_acceptable_loss": "30% ou plus",
		},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var result model.RiskProfileResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 10, result.ScoreHorizon)

	p, err := st.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Plus de 10 ans", p.InvestmentHorizon)
	assert.Equal(t, result.ScoreTotal, p.ScoreTotal)
}

func TestScoreEndpointRejectsBadBody(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/profile/score", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClassifyEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := doJSON(t, api.routes(), http.MethodPost, "/api/strategy/classify", map[string]string{
		"investment_horizon":          "1-2 ans",
		"max_acceptable_loss":         "20%",
		"financial_resilience_months": "6-12 mois",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var result model.StrategyResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, model.ArchetypeDefensive, result.Archetype)
}

func TestStrategyLifecycleOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.routes()

	// No profile yet: balanced defaults, onboarding needed.
	rr := doJSON(t, h, http.MethodGet, "/api/users/u1/strategy", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var s model.UserStrategy
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, model.ArchetypeBalanced, s.Archetype)
	assert.True(t, s.NeedsOnboarding)

	// Override one threshold; the others keep their defaults.
	rr = doJSON(t, h, http.MethodPut, "/api/users/u1/strategy/thresholds", map[string]float64{
		"cash_target_pct": 12,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.InDelta(t, 12, s.Thresholds.CashTargetPct, 0.001)
	assert.InDelta(t, 10, s.Thresholds.MaxPositionPct, 0.001)

	// Reset restores archetype defaults.
	rr = doJSON(t, h, http.MethodPost, "/api/users/u1/strategy/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.InDelta(t, 10, s.Thresholds.CashTargetPct, 0.001)
}

func TestValuationAndDecisionsOverHTTP(t *testing.T) {
	api, st := newTestAPI(t)
	h := api.routes()
	ctx := context.Background()

	require.NoError(t, st.UpsertHolding(ctx, &model.Holding{
		UserID:     "u1",
		Symbol:     "TTE",
		AssetClass: model.AssetClassEquity,
		Quantity:   decimal.RequireFromString("10"),
		UnitCost:   decimal.RequireFromString("50"),
	}))

	rr := doJSON(t, h, http.MethodGet, "/api/users/u1/valuation", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "total_value")

	rr = doJSON(t, h, http.MethodPost, "/api/users/u1/decisions/refresh", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var decisions []model.Decision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decisions))
	// A single 100% equity position trips concentration rules.
	assert.NotEmpty(t, decisions)
}

func TestExportEndpointReturnsWorkbook(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := doJSON(t, api.routes(), http.MethodGet, "/api/users/u1/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rr.Body.Len())

	// Zip magic bytes.
	assert.Equal(t, "PK", rr.Body.String()[:2])
}
