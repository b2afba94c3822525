package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
)

func defaultClassifier() *Classifier {
	config := common.NewDefaultConfig().Triage
	return NewClassifier(&config)
}

func TestClassify(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		name        string
		text        string
		wantTier    models.RiskTier
		wantTrigger string
	}{
		{
			name:        "critical keyword",
			text:        "Patient presented unconscious in ED",
			wantTier:    models.RiskCritical,
			wantTrigger: "keyword:unconscious",
		},
		{
			name:        "critical wins over moderate",
			text:        "High fever and a SEIZURE overnight",
			wantTier:    models.RiskCritical,
			wantTrigger: "keyword:seizure",
		},
		{
			name:        "moderate keyword",
			text:        "Mild fever for two days",
			wantTier:    models.RiskModerate,
			wantTrigger: "keyword:fever",
		},
		{
			name:        "no keywords",
			text:        "Routine check, all values within range.",
			wantTier:    models.RiskStable,
			wantTrigger: "",
		},
		{
			name:        "stage 2 blood pressure",
			text:        "BP is 160/100.",
			wantTier:    models.RiskModerate,
			wantTrigger: "vitals:bp 160/100",
		},
		{
			name:        "hypertensive crisis",
			text:        "Blood pressure: 190 / 125 on arrival",
			wantTier:    models.RiskCritical,
			wantTrigger: "vitals:bp 190/125",
		},
		{
			name:        "normal blood pressure",
			text:        "BP 118/76",
			wantTier:    models.RiskStable,
			wantTrigger: "",
		},
		{
			name:        "fraction that is not a reading",
			text:        "Dose 1/2 tablet",
			wantTier:    models.RiskStable,
			wantTrigger: "",
		},
		{
			name:        "threshold keyword",
			text:        "Glucose > 180 mg/dL",
			wantTier:    models.RiskCritical,
			wantTrigger: "keyword:> 180",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, Action(tt.wantTier), got.Action)
			assert.Equal(t, tt.wantTrigger, got.Trigger)
		})
	}
}

func TestClassify_CriticalMonotonic(t *testing.T) {
	c := defaultClassifier()

	for _, critical := range DefaultCriticalKeywords {
		for _, moderate := range DefaultModerateKeywords {
			text := "notes: " + moderate + " then " + critical
			assert.Equal(t, models.RiskCritical, c.Classify(text).Tier, text)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := defaultClassifier()
	text := "Elevated sugar, dizziness, BP 150/95"

	first := c.Classify(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
}

func TestClassify_VitalsDisabled(t *testing.T) {
	c := NewClassifier(&common.TriageConfig{VitalsRules: false})
	assert.Equal(t, models.RiskStable, c.Classify("BP is 160/100.").Tier)
}

func TestClassify_CustomKeywords(t *testing.T) {
	c := NewClassifier(&common.TriageConfig{
		CriticalKeywords: []string{" Sepsis "},
		ModerateKeywords: []string{"cough"},
	})

	assert.Equal(t, models.RiskCritical, c.Classify("suspected sepsis").Tier)
	assert.Equal(t, models.RiskModerate, c.Classify("dry cough").Tier)
	// defaults are replaced, not merged
	assert.Equal(t, models.RiskStable, c.Classify("severe").Tier)
}

func TestAction(t *testing.T) {
	assert.Equal(t, "Immediate hospitalization required. Alert Triage Team.", Action(models.RiskCritical))
	assert.Equal(t, "Schedule specialist follow-up within 24-48 hours.", Action(models.RiskModerate))
	assert.Equal(t, "Routine monitoring. Continue current care plan.", Action(models.RiskStable))
}
