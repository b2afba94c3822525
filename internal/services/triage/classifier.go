// Package triage assigns a risk tier to clinical text.
// Classification is a pure function of the text: no I/O, no randomness.
package triage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// RuleSetVersion identifies the default keyword sets and vitals thresholds
const RuleSetVersion = "v2"

const (
	ActionCritical = "Immediate hospitalization required. Alert Triage Team."
	ActionModerate = "Schedule specialist follow-up within 24-48 hours."
	ActionStable   = "Routine monitoring. Continue current care plan."
)

// DefaultCriticalKeywords are checked before the moderate set
var DefaultCriticalKeywords = []string{
	"heart attack", "stroke", "severe", "critical", "> 180", "emergency", "unconscious", "seizure",
}

// DefaultModerateKeywords apply only when no critical keyword or reading matched
var DefaultModerateKeywords = []string{
	"high", "abnormal", "elevated", "fever", "dizziness", "infection", "palpitations",
}

// Blood pressure thresholds (mmHg)
const (
	criticalSystolic  = 180 // hypertensive crisis
	criticalDiastolic = 120
	moderateSystolic  = 140 // stage 2 hypertension
	moderateDiastolic = 90
)

var bloodPressurePattern = regexp.MustCompile(`(?i)\b(?:bp|blood pressure)\b[^0-9\n]{0,20}(\d{2,3})\s*/\s*(\d{2,3})`)

// Classifier grades text against ordered keyword sets and, optionally, vitals readings
type Classifier struct {
	critical []string
	moderate []string
	vitals   bool
}

var _ interfaces.RiskClassifier = (*Classifier)(nil)

// NewClassifier builds a classifier from config. Empty keyword lists fall back to the defaults.
func NewClassifier(config *common.TriageConfig) *Classifier {
	critical := config.CriticalKeywords
	if len(critical) == 0 {
		critical = DefaultCriticalKeywords
	}
	moderate := config.ModerateKeywords
	if len(moderate) == 0 {
		moderate = DefaultModerateKeywords
	}
	return &Classifier{
		critical: normalizeKeywords(critical),
		moderate: normalizeKeywords(moderate),
		vitals:   config.VitalsRules,
	}
}

// Classify returns the highest tier any rule assigns.
// Critical keywords and critical readings are checked before moderate ones.
func (c *Classifier) Classify(text string) models.RiskAssessment {
	lower := strings.ToLower(text)

	if kw, ok := firstContained(lower, c.critical); ok {
		return assessment(models.RiskCritical, "keyword:"+kw)
	}

	var readings []bloodPressure
	if c.vitals {
		readings = bloodPressureReadings(text)
		for _, r := range readings {
			if r.systolic >= criticalSystolic || r.diastolic >= criticalDiastolic {
				return assessment(models.RiskCritical, "vitals:"+r.String())
			}
		}
	}

	if kw, ok := firstContained(lower, c.moderate); ok {
		return assessment(models.RiskModerate, "keyword:"+kw)
	}

	for _, r := range readings {
		if r.systolic >= moderateSystolic || r.diastolic >= moderateDiastolic {
			return assessment(models.RiskModerate, "vitals:"+r.String())
		}
	}

	return assessment(models.RiskStable, "")
}

// Action returns the fixed recommended action for a tier
func Action(tier models.RiskTier) string {
	switch tier {
	case models.RiskCritical:
		return ActionCritical
	case models.RiskModerate:
		return ActionModerate
	}
	return ActionStable
}

func assessment(tier models.RiskTier, trigger string) models.RiskAssessment {
	return models.RiskAssessment{Tier: tier, Action: Action(tier), Trigger: trigger}
}

type bloodPressure struct {
	systolic  int
	diastolic int
}

func (b bloodPressure) String() string {
	return fmt.Sprintf("bp %d/%d", b.systolic, b.diastolic)
}

func bloodPressureReadings(text string) []bloodPressure {
	var out []bloodPressure
	for _, m := range bloodPressurePattern.FindAllStringSubmatch(text, -1) {
		sys, err1 := strconv.Atoi(m[1])
		dia, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		// discard values that cannot be a reading
		if sys < 50 || dia < 20 || dia >= sys {
			continue
		}
		out = append(out, bloodPressure{systolic: sys, diastolic: dia})
	}
	return out
}

func firstContained(lower string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
