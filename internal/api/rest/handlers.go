package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/features"
	"github.com/fortuna/halftime/internal/ingest/espn"
	"github.com/fortuna/halftime/internal/live"
	"github.com/fortuna/halftime/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// PredictionService is what the handlers need from the service layer.
type PredictionService interface {
	Predict(ctx context.Context, player string, date time.Time) (*service.PredictionResult, error)
	LivePlayers(ctx context.Context, date time.Time) ([]live.LiveRow, error)
	LiveTeams(ctx context.Context, date time.Time) ([]live.TeamAggregate, error)
	BaselineRows(ctx context.Context, date time.Time) (int, error)
	CheckBaseline(ctx context.Context) error
}

// StatusReporter exposes a background component's state on /health.
type StatusReporter interface {
	Status() map[string]interface{}
}

// PredictRequest is the body of POST /api/v1/predict.
type PredictRequest struct {
	PlayerName string `json:"player_name" validate:"required,max=100"`
	Date       string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	predictions PredictionService
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	now         func() time.Time
	reporters   map[string]StatusReporter
}

// NewHandler creates a new handler
func NewHandler(predictions PredictionService, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		predictions: predictions,
		logger:      logger,
		validator:   validator.New(),
		now:         time.Now,
		reporters:   make(map[string]StatusReporter),
	}
}

// HealthCheck reports liveness, the baseline source and how many baseline
// rows exist for today
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"time":     h.now().UTC(),
		"database": "ok",
	}

	if err := h.predictions.CheckBaseline(r.Context()); err != nil {
		h.logger.Warnw("baseline source unhealthy", "error", err)
		body["status"] = "degraded"
		body["database"] = err.Error()
	}

	rows, err := h.predictions.BaselineRows(r.Context(), time.Time{})
	if err != nil {
		h.logger.Warnw("baseline unavailable for health check", "error", err)
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	body["rows"] = rows

	for name, reporter := range h.reporters {
		body[name] = reporter.Status()
	}

	respondJSON(w, http.StatusOK, body)
}

// PostPredict handles a JSON prediction request
func (h *Handler) PostPredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.predict(w, r, req)
}

// GetPredict handles ?player=&date=
func (h *Handler) GetPredict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.predict(w, r, PredictRequest{PlayerName: q.Get("player"), Date: q.Get("date")})
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request, req PredictRequest) {
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if err := h.validator.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid prediction request", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.predictions.Predict(r.Context(), req.PlayerName, date)
	if err != nil {
		status := statusFor(err)
		respondError(w, status, http.StatusText(status), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetLivePlayers returns every live player row with its team aggregate
func (h *Handler) GetLivePlayers(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	rows, err := h.predictions.LivePlayers(r.Context(), date)
	if err != nil {
		status := statusFor(err)
		respondError(w, status, "Failed to fetch live players", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"players": rows,
		"count":   len(rows),
	})
}

// GetLiveTeams returns the per-team aggregates of live games
func (h *Handler) GetLiveTeams(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	teams, err := h.predictions.LiveTeams(r.Context(), date)
	if err != nil {
		status := statusFor(err)
		respondError(w, status, "Failed to fetch live teams", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": teams,
		"count": len(teams),
	})
}

// parseDate returns the zero time for an empty string, meaning today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(baseline.DateLayout, s)
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, baseline.ErrBaselineMissing):
		return http.StatusNotFound
	case errors.Is(err, features.ErrSchemaMismatch),
		errors.Is(err, baseline.ErrDuplicateRow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, espn.ErrFeedUnavailable),
		errors.Is(err, espn.ErrMalformedFeed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
