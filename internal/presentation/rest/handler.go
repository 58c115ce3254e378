package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/application/usecase"
	"github.com/bibbank/churn-service/internal/domain/model"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChurnHandler serves the churn use cases as JSON over HTTP.
type ChurnHandler struct {
	uc     usecase.ServingSet
	logger *slog.Logger
}

// NewChurnHandler creates a new REST handler.
func NewChurnHandler(uc usecase.ServingSet, logger *slog.Logger) *ChurnHandler {
	return &ChurnHandler{uc: uc, logger: logger}
}

// Predict scores the customer attributes posted as a flat JSON object.
func (h *ChurnHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var customer map[string]any
	if err := render.DecodeJSON(r.Body, &customer); err != nil {
		h.fail(w, r, http.StatusBadRequest, "request body must be a JSON object of customer attributes")
		return
	}

	resp, err := h.uc.Predict.Execute(r.Context(), dto.PredictRequest{Customer: customer})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// RiskSummary returns the dashboard summary.
func (h *ChurnHandler) RiskSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.RiskSummary.Execute(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// ListAtRisk pages through the risk table: ?risk=high&limit=50&offset=0.
func (h *ChurnHandler) ListAtRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := dto.ListAtRiskRequest{Risk: q.Get("risk")}

	var err error
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = cast.ToIntE(v); err != nil {
			h.fail(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if req.Offset, err = cast.ToIntE(v); err != nil {
			h.fail(w, r, http.StatusBadRequest, "offset must be an integer")
			return
		}
	}

	resp, err := h.uc.ListAtRisk.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// EstimateCampaign projects a retention campaign's return.
func (h *ChurnHandler) EstimateCampaign(w http.ResponseWriter, r *http.Request) {
	var req dto.EstimateCampaignRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid campaign request: "+err.Error())
		return
	}

	resp, err := h.uc.EstimateCampaign.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// ModelInfo describes the served bundle.
func (h *ChurnHandler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.ModelInfo.Execute(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// writeError maps use case errors to HTTP statuses. Unexpected errors are logged
// and reported without detail.
func (h *ChurnHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		h.fail(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrBundleNotFound):
		h.fail(w, r, http.StatusServiceUnavailable, "no trained model is loaded")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.fail(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *ChurnHandler) fail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
