package main

import (
	"time"

	"github.com/liamcoop/payrollrisk/classify"
	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/store"
	"github.com/liamcoop/payrollrisk/tenancy"
	"github.com/liamcoop/payrollrisk/tiers"
)

// CreateTenantRequest is the body of POST /tenants
type CreateTenantRequest struct {
	ID   string `json:"id,omitempty" example:"acme"`
	Name string `json:"name" example:"Acme Corp"`
	Tier string `json:"tier,omitempty" example:"pro"`
}

// UpdateTierRequest is the body of PUT /tenants/{tenantId}/tier
type UpdateTierRequest struct {
	Tier string `json:"tier" example:"enterprise"`
}

// TenantsListResponse lists tenants
type TenantsListResponse struct {
	Tenants []tenancy.Tenant `json:"tenants"`
}

// CreateSessionRequest carries the two runs to compare
type CreateSessionRequest struct {
	Baseline []payroll.Record `json:"baseline"`
	Current  []payroll.Record `json:"current"`
}

// ApproveRequest is the body of POST /sessions/{sessionId}/approve
type ApproveRequest struct {
	ApprovedBy string `json:"approved_by" example:"controller@acme.com"`
}

// SessionsListResponse lists a tenant's sessions
type SessionsListResponse struct {
	Sessions []store.Session `json:"sessions"`
}

// DeltasResponse lists a session's deltas
type DeltasResponse struct {
	SessionID string        `json:"session_id"`
	Deltas    []delta.Delta `json:"deltas"`
}

// RuleResponse is a rule definition as shown to reviewers
type RuleResponse struct {
	ID              string                `json:"id" example:"FND-001"`
	Name            string                `json:"name" example:"Negative net pay"`
	Category        payroll.Category      `json:"category" example:"fundamental"`
	Severity        rules.Severity        `json:"severity" example:"blocker"`
	Confidence      float64               `json:"confidence" example:"1"`
	ConfidenceLevel rules.ConfidenceLevel `json:"confidence_level" example:"certain"`
	MinTier         tiers.Tier            `json:"min_tier" example:"starter"`
	Scope           rules.Scope           `json:"scope" example:"employee"`
	Metrics         []payroll.Metric      `json:"metrics,omitempty"`
	Section         classify.Section      `json:"section" example:"blockers"`
	FlagReason      string                `json:"flag_reason"`
	RiskStatement   string                `json:"risk_statement"`
	CommonCauses    []string              `json:"common_causes"`
	ReviewSteps     []string              `json:"review_steps"`
}

// RulesListResponse lists the rules a tier evaluates
type RulesListResponse struct {
	Tier  tiers.Tier     `json:"tier"`
	Count int            `json:"count"`
	Rules []RuleResponse `json:"rules"`
}

// HealthResponse reports server health
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Storage   string    `json:"storage" example:"postgres"`
	Rules     int       `json:"rules"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on any failure
type ErrorResponse struct {
	Error   string `json:"error" example:"session not found"`
	Details string `json:"details,omitempty"`
}

func toRuleResponse(r rules.Rule) RuleResponse {
	return RuleResponse{
		ID:              r.ID,
		Name:            r.Name,
		Category:        r.Category,
		Severity:        r.Severity,
		Confidence:      r.Confidence,
		ConfidenceLevel: r.ConfidenceLevel,
		MinTier:         r.MinTier,
		Scope:           r.Scope,
		Metrics:         r.Metrics,
		Section:         classify.SectionFor(rules.Judgement{RuleID: r.ID, IsBlocker: r.Severity.IsBlocker()}),
		FlagReason:      r.FlagReason,
		RiskStatement:   r.RiskStatement,
		CommonCauses:    r.CommonCauses,
		ReviewSteps:     r.ReviewSteps,
	}
}
