/**
 * @description
 * HTTP handlers for the treasury service. Money is exchanged as integer cents.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/domain"
	"github.com/mentora/treasury-service/internal/forecast"
	"github.com/mentora/treasury-service/internal/settlement"
	"github.com/mentora/treasury-service/internal/store"
)

// TreasuryService is the application surface the handlers need.
type TreasuryService interface {
	Forecast(ctx context.Context, months int) (*forecast.Projection, error)
	BFR(ctx context.Context) (*forecast.BFRReport, error)
	Positions(ctx context.Context) (*settlement.Rebalancing, error)
	ListAccounts(ctx context.Context) ([]domain.BankAccount, error)
	PreviewDistribution(ctx context.Context, req settlement.DistributionRequest) (*settlement.Split, error)
	CreateDistribution(ctx context.Context, req settlement.DistributionRequest, createdBy string) (*domain.Distribution, error)
	ListDistributions(ctx context.Context, limit int) ([]domain.Distribution, error)
	RecordSchedulePayment(ctx context.Context, scheduleID string, in app.PaymentInput) (*domain.PaymentSchedule, error)
	PayRecurringExpense(ctx context.Context, expenseID string, in app.SettlementInput) (*domain.RecurringExpense, error)
	TransitionMission(ctx context.Context, missionID, action string, in app.SettlementInput) (*domain.Mission, error)
	TransitionQuote(ctx context.Context, quoteID, action string) (*domain.Quote, error)
	RunOverdueAlerts(ctx context.Context) (*app.AlertRunResult, error)
	RunUpcomingDigest(ctx context.Context) (*app.AlertRunResult, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service TreasuryService
	health  HealthChecker
	logger  *slog.Logger
}

// NewHandler creates a new Handler. health may be nil.
func NewHandler(service TreasuryService, health HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, health: health, logger: logger}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	w.Write([]byte("Treasury service is healthy"))
}

// parseMonths reads the forecast horizon. Anything but 3, 6 or 12 yields 6.
func parseMonths(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return forecast.DefaultMonths
	}
	return forecast.NormalizeMonths(n)
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	projection, err := h.service.Forecast(r.Context(), parseMonths(r.URL.Query().Get("months")))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, projection)
}

func (h *Handler) handleBFR(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.BFR(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *Handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.Positions(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, positions)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, accounts)
}

func (h *Handler) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), app.DefaultDistributionLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	distributions, err := h.service.ListDistributions(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, distributions)
}

func (h *Handler) handlePreviewDistribution(w http.ResponseWriter, r *http.Request) {
	var req settlement.DistributionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	split, err := h.service.PreviewDistribution(r.Context(), req)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, split)
}

func (h *Handler) handleCreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req settlement.DistributionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	distribution, err := h.service.CreateDistribution(r.Context(), req, AdminFromRequest(r))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, distribution)
}

func (h *Handler) handleRecordSchedulePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in app.PaymentInput
	if err := decodeAndValidate(r, &in); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	schedule, err := h.service.RecordSchedulePayment(r.Context(), id, in)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, schedule)
}

func (h *Handler) handlePayRecurringExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in app.SettlementInput
	if err := decodeAndValidate(r, &in); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	expense, err := h.service.PayRecurringExpense(r.Context(), id, in)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, expense)
}

func (h *Handler) handleTransitionMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in app.SettlementInput
	if err := decodeAndValidate(r, &in); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	mission, err := h.service.TransitionMission(r.Context(), id, chi.URLParam(r, "action"), in)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, mission)
}

func (h *Handler) handleTransitionQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	quote, err := h.service.TransitionQuote(r.Context(), id, chi.URLParam(r, "action"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, quote)
}

func (h *Handler) handleRunOverdueAlerts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunOverdueAlerts(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRunUpcomingDigest(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunUpcomingDigest(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return "", false
	}
	return id, true
}

func parseOptionalPositiveInt(raw string, defaultValue int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, errors.New("must be >= 0")
	}
	return value, nil
}

// mapServiceError classifies an error into a status code and a client message.
func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, "Request body must be valid JSON."
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrScheduleNotFound),
		errors.Is(err, store.ErrExpenseNotFound),
		errors.Is(err, store.ErrMissionNotFound),
		errors.Is(err, store.ErrQuoteNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, store.ErrStaleRecord):
		return http.StatusConflict, err.Error()
	case errors.Is(err, settlement.ErrNoShares),
		errors.Is(err, settlement.ErrDuplicateFounder),
		errors.Is(err, settlement.ErrPercentageRange),
		errors.Is(err, settlement.ErrPercentageSum),
		errors.Is(err, settlement.ErrNegativeAmount),
		errors.Is(err, settlement.ErrInvestmentExceedsTotal),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrOverpayment),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrInactive),
		errors.Is(err, domain.ErrUnknownFrequency),
		errors.Is(err, app.ErrUnknownAction),
		errors.Is(err, app.ErrInvalidDate):
		return http.StatusBadRequest, err.Error()
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return http.StatusConflict, "A record with the same key already exists."
		case "23503":
			return http.StatusBadRequest, "A referenced record does not exist."
		}
	}

	return http.StatusInternalServerError, "Could not process treasury request."
}

func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed.",
			"fields": fieldErrors(verrs),
		})
		return
	}

	status, message := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("treasury request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
