package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/application/usecase"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
	"github.com/bibbank/churn-service/internal/infrastructure/datagen"
)

// --- Mock implementations ---

type mockRiskRepo struct {
	scores  []model.RiskScore
	findErr error
}

func (m *mockRiskRepo) ReplaceAll(_ context.Context, scores []model.RiskScore) error {
	m.scores = scores
	return nil
}

func (m *mockRiskRepo) FindAll(_ context.Context) ([]model.RiskScore, error) {
	return m.scores, m.findErr
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBundle(t *testing.T) *service.ArtifactBundle {
	t.Helper()
	records, err := datagen.NewGenerator(5).Generate(150, 0.2)
	require.NoError(t, err)
	raw := model.CustomerFrame(records, true)
	y, err := model.TargetLabels(raw)
	require.NoError(t, err)

	binning, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)
	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(engineered)
	require.NoError(t, err)
	m := service.NewRandomForest(true, service.DefaultSeed)
	require.NoError(t, m.Fit(X, y))

	segments, err := service.FitSegmentation(raw, 3, service.DefaultSeed)
	require.NoError(t, err)
	segments.Profiles, err = segments.Profile(raw, m.PredictProba(X))
	require.NoError(t, err)

	return &service.ArtifactBundle{
		RunID:             "run-2",
		Version:           "20240601_090000_feedbeef",
		ModelName:         service.CandidateRandomForest,
		Model:             m,
		Binning:           binning,
		Plan:              plan,
		DecisionThreshold: 0.5,
		FeatureNames:      plan.FeatureNames(),
		InputColumns:      plan.InputColumns(),
		TrainingRows:      raw.Rows(),
		Segmentation:      segments,
		CreatedAt:         time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func sampleRisks() *mockRiskRepo {
	return &mockRiskRepo{scores: []model.RiskScore{
		{CustomerID: "a", ChurnProbability: 0.1, RiskCategory: valueobject.RiskCategoryLow},
		{CustomerID: "b", ChurnProbability: 0.8, RiskCategory: valueobject.RiskCategoryHigh, PredictedChurn: true},
		{CustomerID: "c", ChurnProbability: 0.4, RiskCategory: valueobject.RiskCategoryMedium},
		{CustomerID: "d", ChurnProbability: 0.75, RiskCategory: valueobject.RiskCategoryHigh, PredictedChurn: true},
	}}
}

func newTestRouter(bundle *service.ArtifactBundle, risks *mockRiskRepo) http.Handler {
	advisor := service.NewRetentionAdvisor(service.DefaultRetentionConfig())
	uc := usecase.NewServingSet(bundle, risks, advisor, testLogger())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "churn_predictions_total 0\n")
	})
	return NewRouter(uc, RouterConfig{CORSOrigins: []string{"http://localhost:3000"}, Metrics: metrics}, testLogger())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- Tests ---

func TestPredict(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	t.Run("scores a posted customer", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/predict", `{
			"CustomerID": "web-1", "Age": 58, "Balance": 91000, "Transactions": 8,
			"CreditScore": 540, "Tenure": 1, "Income": 40000, "NumProducts": 1,
			"HasCreditCard": 1, "IsActiveMember": 0
		}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

		resp := decode[dto.PredictResponse](t, rec)
		assert.Equal(t, "web-1", resp.CustomerID)
		assert.Equal(t, service.CandidateRandomForest, resp.ModelName)
		assert.NotEmpty(t, resp.Recommendations)
		assert.NotEmpty(t, resp.CampaignROI)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/predict", `{"Age":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
	})

	t.Run("malformed attribute", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/predict", `{"Age": "ancient"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[ErrorResponse](t, rec).Error, "Age")
	})

	t.Run("unknown attribute is a warning", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/predict", `{"Age": 30, "Balance": 100, "Nickname": "bob"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, decode[dto.PredictResponse](t, rec).Warnings)
	})
}

func TestPredict_NoModel(t *testing.T) {
	router := newTestRouter(nil, sampleRisks())

	rec := do(t, router, http.MethodPost, "/api/predict", `{"Age": 30}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, router, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode[ReadinessResponse](t, rec).Status)
}

func TestDashboardSummary(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	rec := do(t, router, http.MethodGet, "/api/dashboard/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[dto.RiskSummaryResponse](t, rec)
	assert.Equal(t, 4, resp.TotalCustomers)
	assert.Equal(t, 2, resp.HighRiskCount)
	assert.Equal(t, 3, resp.AtRiskCount)
	assert.Len(t, resp.RiskDistribution, 3)

	require.Len(t, resp.Segments, 3)
	for _, seg := range resp.Segments {
		assert.NotEmpty(t, seg.Description)
		assert.Contains(t, seg.Attributes, model.ColAge)
	}
}

func TestAtRiskCustomers(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	tests := []struct {
		name   string
		query  string
		code   int
		wantID []string
	}{
		{name: "high risk", query: "?risk=High", code: http.StatusOK, wantID: []string{"b", "d"}},
		{name: "paged", query: "?limit=1&offset=1", code: http.StatusOK, wantID: []string{"d"}},
		{name: "bad limit", query: "?limit=ten", code: http.StatusBadRequest},
		{name: "bad category", query: "?risk=critical", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/api/customers/at-risk"+tt.query, "")
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			resp := decode[dto.ListAtRiskResponse](t, rec)
			ids := make([]string, len(resp.Customers))
			for i, c := range resp.Customers {
				ids[i] = c.CustomerID
			}
			assert.Equal(t, tt.wantID, ids)
		})
	}
}

func TestCampaignROI(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	rec := do(t, router, http.MethodPost, "/api/campaigns/roi",
		`{"risk_category": "High", "average_lifetime_value": "2000", "customers": 10, "average_churn_probability": 0.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[dto.CampaignEstimateResponse](t, rec)
	assert.Equal(t, "3000.00", resp.ExpectedSaving)
	assert.Equal(t, "1000.00", resp.TotalCost)
	assert.Equal(t, "2", resp.ROI)

	rec = do(t, router, http.MethodPost, "/api/campaigns/roi", `{"average_lifetime_value": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelInfo(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	rec := do(t, router, http.MethodGet, "/api/model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[dto.ModelInfoResponse](t, rec)
	assert.Equal(t, "20240601_090000_feedbeef", info.Version)
	assert.Equal(t, 0.5, info.Threshold)
}

func TestInternalErrorsHideDetail(t *testing.T) {
	router := newTestRouter(nil, &mockRiskRepo{findErr: errors.New("permission denied: /srv/reports")})

	rec := do(t, router, http.MethodGet, "/api/dashboard/summary", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode[ErrorResponse](t, rec).Error)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	rec := do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)

	rec = do(t, router, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[ReadinessResponse](t, rec).Checks["model"])

	rec = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "churn_predictions_total")
}

func TestCORS(t *testing.T) {
	router := newTestRouter(testBundle(t), sampleRisks())

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
