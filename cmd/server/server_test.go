package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/review"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/store"
	"github.com/liamcoop/payrollrisk/tenancy"
	"github.com/liamcoop/payrollrisk/tiers"
	"github.com/liamcoop/payrollrisk/verdict"
)

// setupTestServer builds a server over in-memory storage with the net pay rules only.
func setupTestServer(t *testing.T) *Server {
	t.Helper()
	var lib []rules.Rule
	for _, r := range rules.Library() {
		if r.ID == "FND-001" || r.ID == "FND-003" {
			lib = append(lib, r)
		}
	}
	engine, err := rules.NewEngine(lib)
	require.NoError(t, err)

	tenants := tenancy.NewManager(tenancy.NewInMemoryDirectory(
		tenancy.Tenant{ID: "acme", Name: "Acme Corp", Tier: tiers.Starter},
	), nil)
	reviews := review.NewService(engine, store.NewInMemoryStore())
	return NewServer(nil, reviews, tenants, tiers.Starter)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sessionBody(current ...float64) CreateSessionRequest {
	var req CreateSessionRequest
	for i, v := range current {
		id := fmt.Sprintf("E%d", i+1)
		req.Baseline = append(req.Baseline, payroll.Record{EmployeeID: id, Values: map[payroll.Metric]float64{payroll.NetPay: 1000}})
		req.Current = append(req.Current, payroll.Record{EmployeeID: id, Values: map[payroll.Metric]float64{payroll.NetPay: v}})
	}
	return req
}

func createSession(t *testing.T, s *Server, body CreateSessionRequest) review.Result {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/api/v1/tenants/acme/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[review.Result](t, w)
}

// TestHealthEndpoint verifies the health check reports storage and rule count
func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "memory", health.Storage)
	assert.Equal(t, 2, health.Rules)
}

// TestListRules verifies tier filtering and tier validation
func TestListRules(t *testing.T) {
	s := setupTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/v1/rules?tier=enterprise", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[RulesListResponse](t, w)
	assert.Equal(t, tiers.Enterprise, list.Tier)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "FND-001", list.Rules[0].ID)

	w = doRequest(t, s, http.MethodGet, "/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tiers.Starter, decode[RulesListResponse](t, w).Tier)

	w = doRequest(t, s, http.MethodGet, "/api/v1/rules?tier=platinum", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestTenantLifecycle verifies tenants can be created, listed and moved between tiers
func TestTenantLifecycle(t *testing.T) {
	s := setupTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/tenants", CreateTenantRequest{ID: "globex", Name: "Globex", Tier: "pro"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[tenancy.Tenant](t, w)
	assert.Equal(t, tiers.Pro, created.Tier)

	w = doRequest(t, s, http.MethodPost, "/api/v1/tenants", CreateTenantRequest{ID: "api", Name: "Reserved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/v1/tenants", CreateTenantRequest{ID: "x", Name: "Bad", Tier: "gold"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/tenants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[TenantsListResponse](t, w).Tenants, 2)

	w = doRequest(t, s, http.MethodPut, "/api/v1/tenants/globex/tier", UpdateTierRequest{Tier: "enterprise"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, tiers.Enterprise, decode[tenancy.Tenant](t, w).Tier)

	w = doRequest(t, s, http.MethodPut, "/api/v1/tenants/missing/tier", UpdateTierRequest{Tier: "pro"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestCreateSession_Blocked verifies a negative paycheck blocks the session and its approval
func TestCreateSession_Blocked(t *testing.T) {
	s := setupTestServer(t)

	res := createSession(t, s, sessionBody(-50, 1000))
	assert.Equal(t, store.StatusProcessed, res.Session.Status)
	assert.Equal(t, verdict.Blocked, res.Verdict.Status)
	assert.Equal(t, 1, res.Verdict.BlockersCount)
	require.Len(t, res.Sections.Blockers, 1)
	assert.Equal(t, "FND-001", res.Sections.Blockers[0].RuleID)

	w := doRequest(t, s, http.MethodPost, "/api/v1/sessions/"+res.Session.ID+"/approve", ApproveRequest{ApprovedBy: "controller"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/sessions/"+res.Session.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.StatusProcessed, decode[review.Result](t, w).Session.Status)
}

// TestCreateSession_Approve verifies a clean session can be approved once
func TestCreateSession_Approve(t *testing.T) {
	s := setupTestServer(t)

	res := createSession(t, s, sessionBody(1000, 1010))
	assert.Equal(t, verdict.ReadyToApprove, res.Verdict.Status)

	path := "/api/v1/sessions/" + res.Session.ID + "/approve"
	w := doRequest(t, s, http.MethodPost, path, ApproveRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodPost, path, ApproveRequest{ApprovedBy: "controller"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode[review.Result](t, w)
	assert.Equal(t, store.StatusApproved, approved.Session.Status)
	assert.Equal(t, "controller", approved.Session.ApprovedBy)

	w = doRequest(t, s, http.MethodPost, path, ApproveRequest{ApprovedBy: "controller"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/v1/sessions/"+res.Session.ID+"/process", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestCreateSession_Errors verifies unknown tenants and empty datasets are rejected
func TestCreateSession_Errors(t *testing.T) {
	s := setupTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/tenants/missing/sessions", sessionBody(1000))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/v1/tenants/acme/sessions", CreateSessionRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestListSessionsAndDeltas verifies session listing and delta retrieval
func TestListSessionsAndDeltas(t *testing.T) {
	s := setupTestServer(t)
	res := createSession(t, s, sessionBody(700, 1000))

	w := doRequest(t, s, http.MethodGet, "/api/v1/tenants/acme/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[SessionsListResponse](t, w).Sessions
	require.Len(t, sessions, 1)
	assert.Equal(t, res.Session.ID, sessions[0].ID)

	w = doRequest(t, s, http.MethodGet, "/api/v1/sessions/"+res.Session.ID+"/deltas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	deltas := decode[DeltasResponse](t, w)
	require.Len(t, deltas.Deltas, 2)
	assert.Equal(t, "E1", deltas.Deltas[0].EmployeeID)
	assert.Equal(t, delta.Decrease, deltas.Deltas[0].ChangeType)
	assert.Equal(t, delta.NoChange, deltas.Deltas[1].ChangeType)

	w = doRequest(t, s, http.MethodGet, "/api/v1/tenants/missing/sessions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestReportDownload verifies the workbook download contains the section sheets
func TestReportDownload(t *testing.T) {
	s := setupTestServer(t)
	res := createSession(t, s, sessionBody(-50))

	w := doRequest(t, s, http.MethodGet, "/api/v1/sessions/"+res.Session.ID+"/report.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Blockers")
	assert.Contains(t, f.GetSheetList(), "Summary")
}
