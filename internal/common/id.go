package common

import (
	"github.com/google/uuid"
)

// NewConsultationID generates a unique consultation ID with the "cst_" prefix
func NewConsultationID() string {
	return "cst_" + uuid.New().String()
}

// NewSessionID generates a unique session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewAuditID generates a unique audit record ID with the "aud_" prefix
func NewAuditID() string {
	return "aud_" + uuid.New().String()
}

// NewRequestID generates an HTTP request ID with the "req_" prefix
func NewRequestID() string {
	return "req_" + uuid.New().String()
}
