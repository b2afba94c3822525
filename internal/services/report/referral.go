package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/protocols"
)

// ReferralSubject never carries an identifier; the patient is referred to by a placeholder
const ReferralSubject = "Urgent Referral - Patient ID [REDACTED]"

// ReferralBody is the plain-text letter for a consultation
func ReferralBody(cc *models.ConsultationContext, institution string) string {
	risk := cc.Risk()

	findings := protocols.NoMatchMessage
	if match := cc.Protocols(); match.Found() {
		findings = strings.Join(match.Citations(), "; ")
	}

	if institution == "" {
		institution = "MedGuard"
	}

	var b strings.Builder
	b.WriteString("Dear Colleague,\n\n")
	fmt.Fprintf(&b, "Patient requires %s attention.\n", risk.Tier)
	fmt.Fprintf(&b, "Findings: %s\n", findings)
	fmt.Fprintf(&b, "Action taken: %s\n\n", risk.Action)
	fmt.Fprintf(&b, "Consultation reference: %s\n\n", cc.ID())
	fmt.Fprintf(&b, "Sincerely,\n%s\n", institution)
	return b.String()
}

// Referral renders the letter as an RFC 5322 message, ready to open in a mail client
func Referral(cc *models.ConsultationContext, config *common.ReportConfig, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetSubject(ReferralSubject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	if config.ReferralFrom != "" {
		h.SetAddressList("From", []*mail.Address{{Name: config.Institution, Address: config.ReferralFrom}})
	}
	if config.ReferralTo != "" {
		h.SetAddressList("To", []*mail.Address{{Address: config.ReferralTo}})
	}
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create referral message: %w", err)
	}
	if _, err := io.WriteString(w, ReferralBody(cc, config.Institution)); err != nil {
		return nil, fmt.Errorf("failed to write referral body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish referral message: %w", err)
	}
	return buf.Bytes(), nil
}
