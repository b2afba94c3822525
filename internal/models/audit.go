package models

import "time"

// GatewayAudit records one assistant call. It stores sizes and outcome only,
// never the question, context or answer text.
type GatewayAudit struct {
	ID            string        `json:"id" badgerhold:"key"`
	SessionID     string        `json:"session_id" badgerholdIndex:"SessionID"`
	ContextID     string        `json:"context_id"`
	Provider      string        `json:"provider"`
	Model         string        `json:"model"`
	RiskTier      RiskTier      `json:"risk_tier"`
	QuestionChars int           `json:"question_chars"`
	ResponseChars int           `json:"response_chars"`
	Fragments     int           `json:"fragments"`
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	Timestamp     time.Time     `json:"timestamp"`
}
