package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/report"
	"github.com/liamcoop/payrollrisk/review"
	"github.com/liamcoop/payrollrisk/store"
	"github.com/liamcoop/payrollrisk/tenancy"
	"github.com/liamcoop/payrollrisk/tiers"
)

type Server struct {
	db          *sqlx.DB
	reviews     *review.Service
	tenants     *tenancy.Manager
	defaultTier tiers.Tier
	router      *chi.Mux
}

// NewServer wires handlers over the review service and tenant manager.
// db is only used for health checks and may be nil.
func NewServer(db *sqlx.DB, reviews *review.Service, tenants *tenancy.Manager, defaultTier tiers.Tier) *Server {
	s := &Server{
		db:          db,
		reviews:     reviews,
		tenants:     tenants,
		defaultTier: defaultTier,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/rules", s.handleListRules)

	r.Route("/api/v1/tenants", func(r chi.Router) {
		r.Get("/", s.handleListTenants)
		r.Post("/", s.handleCreateTenant)

		r.Route("/{tenantId}", func(r chi.Router) {
			r.Put("/tier", s.handleUpdateTier)
			r.Get("/sessions", s.handleListSessions)
			r.Post("/sessions", s.handleCreateSession)
		})
	})

	r.Route("/api/v1/sessions/{sessionId}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/process", s.handleProcessSession)
		r.Get("/deltas", s.handleListDeltas)
		r.Get("/report.xlsx", s.handleReport)
		r.Post("/approve", s.handleApprove)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs each request and counts 4xx and 5xx responses.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= 500:
			logger.ErrorHttp5xx()
			logger.Error("request failed", args...)
		case status >= 400:
			logger.WarnHttp4xx()
			logger.Debug("request rejected", args...)
		default:
			logger.Debug("request served", args...)
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storage := "memory"
	if s.db != nil {
		storage = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Storage:   storage,
		Rules:     len(s.reviews.Engine().Library()),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	tier := s.defaultTier
	if raw := r.URL.Query().Get("tier"); raw != "" {
		parsed, err := tiers.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid tier", err)
			return
		}
		tier = parsed
	}

	eligible := s.reviews.Engine().Eligible(tier)
	out := make([]RuleResponse, 0, len(eligible))
	for _, rule := range eligible {
		out = append(out, toRuleResponse(rule))
	}
	respondJSON(w, http.StatusOK, RulesListResponse{Tier: tier, Count: len(out), Rules: out})
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	list, err := s.tenants.ListTenants(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tenants", err)
		return
	}
	if list == nil {
		list = []tenancy.Tenant{}
	}
	respondJSON(w, http.StatusOK, TenantsListResponse{Tenants: list})
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	tenant := &tenancy.Tenant{ID: req.ID, Name: req.Name, Tier: s.defaultTier}
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if req.Tier != "" {
		tier, err := tiers.Parse(req.Tier)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid tier", err)
			return
		}
		tenant.Tier = tier
	}

	if err := s.tenants.CreateTenant(r.Context(), tenant); err != nil {
		respondError(w, http.StatusBadRequest, "failed to create tenant", err)
		return
	}
	respondJSON(w, http.StatusCreated, tenant)
}

func (s *Server) handleUpdateTier(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	var req UpdateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	tier, err := tiers.Parse(req.Tier)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tier", err)
		return
	}

	if err := s.tenants.UpdateTier(r.Context(), tenantID, tier); err != nil {
		respondServiceError(w, "failed to update tier", err)
		return
	}
	tenant, err := s.tenants.Get(r.Context(), tenantID)
	if err != nil {
		respondServiceError(w, "failed to load tenant", err)
		return
	}
	respondJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if _, err := s.tenants.Get(r.Context(), tenantID); err != nil {
		respondServiceError(w, "tenant not found", err)
		return
	}

	sessions, err := s.reviews.Sessions(r.Context(), tenantID)
	if err != nil {
		respondServiceError(w, "failed to list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	respondJSON(w, http.StatusOK, SessionsListResponse{Sessions: sessions})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tier, err := s.tenants.TierFor(r.Context(), tenantID)
	if err != nil {
		respondServiceError(w, "tenant not found", err)
		return
	}

	sess, err := s.reviews.Create(r.Context(), tenantID, tier, payroll.Dataset{Baseline: req.Baseline, Current: req.Current})
	if err != nil {
		respondServiceError(w, "failed to create session", err)
		return
	}
	res, err := s.reviews.Process(r.Context(), sess.ID)
	if err != nil {
		respondServiceError(w, "failed to process session", err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleProcessSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.reviews.Process(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respondServiceError(w, "failed to process session", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.reviews.Report(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respondServiceError(w, "failed to load session", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListDeltas(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	deltas, err := s.reviews.Deltas(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, "failed to load deltas", err)
		return
	}
	if deltas == nil {
		deltas = []delta.Delta{}
	}
	respondJSON(w, http.StatusOK, DeltasResponse{SessionID: sessionID, Deltas: deltas})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	res, err := s.reviews.Report(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, "failed to load session", err)
		return
	}
	deltas, err := s.reviews.Deltas(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, "failed to load deltas", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "review-"+sessionID+".xlsx"))
	if err := report.WriteWorkbook(w, res, deltas); err != nil {
		logger.Error("failed to write report", "session_id", sessionID, "error", err)
	}
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ApprovedBy == "" {
		respondError(w, http.StatusBadRequest, "approved_by is required", nil)
		return
	}

	if err := s.reviews.Approve(r.Context(), sessionID, req.ApprovedBy); err != nil {
		respondServiceError(w, "approval failed", err)
		return
	}
	res, err := s.reviews.Report(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, "failed to load session", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, tenancy.ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrApprovalBlocked),
		errors.Is(err, review.ErrAlreadyApproved),
		errors.Is(err, review.ErrNotProcessed):
		return http.StatusConflict
	case errors.Is(err, delta.ErrEmptyDataset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tiers.ErrUnknownTier):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondServiceError(w http.ResponseWriter, message string, err error) {
	respondError(w, statusFor(err), message, err)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
