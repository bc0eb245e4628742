package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// API exposes the ledger over JSON HTTP and the event hub over websockets.
type API struct {
	ledger *app.Ledger
	events *EventsHandler
	logger *slog.Logger
	router chi.Router
}

func NewAPI(ledger *app.Ledger, hub *app.EventHub, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		ledger: ledger,
		events: NewEventsHandler(hub),
		logger: logger,
	}
	a.router = a.routes()
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Get("/ws/events", a.events.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Post("/learners/{learnerID}/certificate", a.handleEvaluate)
			r.Post("/sweep", a.handleSweep)
			r.Post("/structure-changed", a.handleStructureChanged)
			r.Get("/certificates", a.handleListCertificates)
			r.Get("/certificates/status", a.handleCheckNeeds)
		})
		r.Get("/certificates/{certificateID}", a.handleGetCertificate)
	})
	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	decision, err := a.ledger.EvaluateAndIssue(r.Context(), chi.URLParam(r, "courseID"), chi.URLParam(r, "learnerID"))
	if err != nil {
		a.respondLedgerError(w, r, "evaluate certificate", err)
		return
	}
	status := http.StatusOK
	if decision.Action == domain.ActionIssued {
		status = http.StatusCreated
	}
	respondJSON(w, status, decision)
}

func (a *API) handleSweep(w http.ResponseWriter, r *http.Request) {
	trigger, err := domain.ParseTrigger(r.URL.Query().Get("trigger"))
	if err != nil {
		a.respondLedgerError(w, r, "sweep course", err)
		return
	}
	report, err := a.ledger.SweepCourse(r.Context(), chi.URLParam(r, "courseID"), trigger)
	a.respondSweep(w, r, report, err)
}

func (a *API) handleStructureChanged(w http.ResponseWriter, r *http.Request) {
	report, err := a.ledger.StructureChanged(r.Context(), chi.URLParam(r, "courseID"))
	a.respondSweep(w, r, report, err)
}

func (a *API) respondSweep(w http.ResponseWriter, r *http.Request, report *domain.SweepReport, err error) {
	if report != nil && isContextErr(err) {
		// partial report: counts only cover certificates reached before cancellation
		respondJSON(w, http.StatusServiceUnavailable, report)
		return
	}
	if err != nil {
		a.respondLedgerError(w, r, "sweep course", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (a *API) handleCheckNeeds(w http.ResponseWriter, r *http.Request) {
	report, err := a.ledger.CheckNeeds(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		a.respondLedgerError(w, r, "check certificates", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (a *API) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	views, err := a.ledger.Certificates(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		a.respondLedgerError(w, r, "list certificates", err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (a *API) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	view, err := a.ledger.Certificate(r.Context(), chi.URLParam(r, "certificateID"))
	if err != nil {
		a.respondLedgerError(w, r, "get certificate", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (a *API) respondLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case domain.IsNotFound(err):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case isContextErr(err):
		respondError(w, http.StatusServiceUnavailable, "cancelled", err.Error())
	default:
		a.logger.Error("failed to "+op, "error", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+op)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error:   &apiError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			a.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
