// Package tiers defines the subscription tiers that gate which rules a
// review session is allowed to evaluate.
package tiers

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTier is returned when a tier name does not match any known tier.
var ErrUnknownTier = errors.New("unknown tier")

// Tier identifies a subscription level.
type Tier string

const (
	Starter    Tier = "starter"
	Pro        Tier = "pro"
	Enterprise Tier = "enterprise"
)

// rank orders tiers from least to most capable.
var rank = map[Tier]int{
	Starter:    1,
	Pro:        2,
	Enterprise: 3,
}

// All returns every tier in ascending order.
func All() []Tier {
	return []Tier{Starter, Pro, Enterprise}
}

// Parse converts a tier name (case-insensitive) to a Tier.
func Parse(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rank[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := rank[t]
	return ok
}

// AtLeast reports whether t includes everything min includes.
// Unknown tiers never satisfy any minimum.
func (t Tier) AtLeast(min Tier) bool {
	have, ok := rank[t]
	if !ok {
		return false
	}
	need, ok := rank[min]
	if !ok {
		return false
	}
	return have >= need
}

func (t Tier) String() string {
	return string(t)
}
