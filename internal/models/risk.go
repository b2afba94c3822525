package models

import (
	"fmt"
	"strings"
)

// RiskTier is a triage level. Tiers are totally ordered: CRITICAL > MODERATE > STABLE.
type RiskTier int

const (
	RiskStable RiskTier = iota
	RiskModerate
	RiskCritical
)

func (t RiskTier) String() string {
	switch t {
	case RiskStable:
		return "STABLE"
	case RiskModerate:
		return "MODERATE"
	case RiskCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("RiskTier(%d)", int(t))
}

// AtLeast reports whether t is the same as or more severe than other
func (t RiskTier) AtLeast(other RiskTier) bool {
	return t >= other
}

// MarshalText renders the tier by name so JSON and TOML see "CRITICAL" rather than 2
func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name, case-insensitively
func (t *RiskTier) UnmarshalText(text []byte) error {
	tier, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseRiskTier parses "stable", "moderate" or "critical"
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STABLE":
		return RiskStable, nil
	case "MODERATE":
		return RiskModerate, nil
	case "CRITICAL":
		return RiskCritical, nil
	}
	return RiskStable, fmt.Errorf("unknown risk tier %q", s)
}

// RiskAssessment is the classifier output. Trigger names the rule that decided
// the tier and is empty for STABLE.
type RiskAssessment struct {
	Tier    RiskTier `json:"tier"`
	Action  string   `json:"action"`
	Trigger string   `json:"trigger,omitempty"`
}
