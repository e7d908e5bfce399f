package tenancy

import (
	"fmt"
	"regexp"
	"strings"
)

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// reservedIDs collide with API route segments.
var reservedIDs = map[string]bool{
	"api":      true,
	"health":   true,
	"rules":    true,
	"sessions": true,
	"tenants":  true,
}

// ValidateTenant checks a tenant before it is created or updated.
func ValidateTenant(t Tenant) error {
	if err := validateTenantID(t.ID); err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", t.ID, err)
	}

	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fmt.Errorf("tenant %q must have a name", t.ID)
	}
	if len(name) > 200 {
		return fmt.Errorf("tenant %q name length %d exceeds maximum of 200 characters", t.ID, len(name))
	}

	if !t.Tier.Valid() {
		return fmt.Errorf("tenant %q has invalid tier %q (must be one of: starter, pro, enterprise)", t.ID, t.Tier)
	}
	return nil
}

func validateTenantID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > 100 {
		return fmt.Errorf("identifier length %d exceeds maximum of 100 characters", len(id))
	}
	if !tenantIDPattern.MatchString(id) {
		return fmt.Errorf("must match pattern %s", tenantIDPattern.String())
	}
	if reservedIDs[strings.ToLower(id)] {
		return fmt.Errorf("cannot use reserved name %q as identifier", id)
	}
	return nil
}
