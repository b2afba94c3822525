package redaction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
)

type fakeRecognizer struct {
	find  map[string]models.EntityKind
	err   error
	calls int
}

func (f *fakeRecognizer) Analyze(_ context.Context, text string, _ []string, _ string) ([]models.RedactionSpan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var spans []models.RedactionSpan
	for value, kind := range f.find {
		offset := 0
		for {
			i := strings.Index(text[offset:], value)
			if i < 0 {
				break
			}
			start := offset + i
			spans = append(spans, models.RedactionSpan{
				Start:  start,
				End:    start + len(value),
				Kind:   kind,
				Source: models.SourceModel,
				Score:  0.85,
			})
			offset = start + len(value)
		}
	}
	return spans, nil
}

func (f *fakeRecognizer) Name() string { return "fake" }

func newTestRedactor(recognizer *fakeRecognizer) *Redactor {
	config := common.NewDefaultConfig().Redaction
	if recognizer == nil {
		return NewRedactor(nil, &config, arbor.NewNoOpLogger())
	}
	return NewRedactor(recognizer, &config, arbor.NewNoOpLogger())
}

func TestRedact_ClinicalNote(t *testing.T) {
	r := newTestRedactor(nil)

	input := "Patient Name: Sarah Connor\nMRN: 849302\nDOB: 12/05/1984\nBP is 160/100."
	got := r.Redact(context.Background(), input)

	assert.Equal(t, "Patient Name: [REDACTED-NAME]\nMRN: [REDACTED-ID]\nDOB: [REDACTED-DATE]\nBP is 160/100.", got.Text)
	assert.NotContains(t, got.Text, "Sarah Connor")
	assert.NotContains(t, got.Text, "849302")
	assert.NotContains(t, got.Text, "12/05/1984")
	assert.False(t, got.Degraded)

	counts := got.CountByKind()
	assert.Equal(t, 1, counts[models.EntityPerson])
	assert.Equal(t, 1, counts[models.EntityID])
	assert.Equal(t, 1, counts[models.EntityDate])
}

func TestRedact_Coverage(t *testing.T) {
	r := newTestRedactor(nil)

	tests := []struct {
		name   string
		input  string
		secret string
		token  string
	}{
		{"bare phone", "Call 5551234567 after 5pm", "5551234567", "[REDACTED-PHONE]"},
		{"formatted phone", "Contact (555) 123-4567 today", "123-4567", "[REDACTED-PHONE]"},
		{"bare email", "send to sarah.connor@example.com please", "sarah.connor@example.com", "[REDACTED-EMAIL]"},
		{"bare date", "seen on 12/05/1984 in clinic", "12/05/1984", "[REDACTED-DATE]"},
		{"textual date", "Admitted March 3, 2024 for review", "March 3, 2024", "[REDACTED-DATE]"},
		{"lowercase label", "patient name: john smith", "john smith", "[REDACTED-NAME]"},
		{"patient label", "Patient: Kyle Reese\nComplaint: dizziness", "Kyle Reese", "[REDACTED-NAME]"},
		{"alphanumeric id", "Patient ID: AB-1234", "AB-1234", "[REDACTED-ID]"},
		{"ssn", "SSN: 123-45-6789", "123-45-6789", "[REDACTED-ID]"},
		{"url", "see https://portal.example.org/records/77", "portal.example.org", "[REDACTED-URL]"},
		{"collected date", "Collected: 2024-01-15", "2024-01-15", "[REDACTED-DATE]"},
		{"date glued to label", "Seen DOB12/05/1984 in clinic", "12/05/1984", "[REDACTED-DATE]"},
		{"date glued to letter", "Visit x12/05/1984 follow up", "12/05/1984", "[REDACTED-DATE]"},
		{"iso date", "Admitted on 2024-01-05 with fever", "2024-01-05", "[REDACTED-DATE]"},
		{"url glued to digits", "ref 5551234567http://x.io/chart", "x.io/chart", "[REDACTED-PHONE]"},
		{"hyphenated surname", "Name: Jose Garcia-Lopez", "Lopez", "[REDACTED-NAME]"},
		{"hyphenated given name", "Patient Name: Mary-Jane Watson", "Jane", "[REDACTED-NAME]"},
		{"accent and apostrophe", "Name: Seán O'Brien", "Brien", "[REDACTED-NAME]"},
		{"non-ascii letters", "Patient: Zoë Müller", "Müller", "[REDACTED-NAME]"},
		{"curly apostrophe", "Name: D’Angelo Russo", "Russo", "[REDACTED-NAME]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Redact(context.Background(), tt.input)
			assert.NotContains(t, got.Text, tt.secret)
			assert.Contains(t, got.Text, tt.token)
		})
	}
}

func TestRedact_PreservesLabelsAndClinicalValues(t *testing.T) {
	r := newTestRedactor(nil)

	got := r.Redact(context.Background(), "Name: Ellen Ripley\nBP is 160/100. Sugar 240 mg/dL. Temp 38.5")
	assert.True(t, strings.HasPrefix(got.Text, "Name: [REDACTED-NAME]\n"))
	assert.Contains(t, got.Text, "BP is 160/100.")
	assert.Contains(t, got.Text, "Sugar 240 mg/dL")
	assert.Contains(t, got.Text, "Temp 38.5")
}

func TestRedact_Idempotent(t *testing.T) {
	inputs := []string{
		"Patient Name: Sarah Connor\nMRN: 849302\nDOB: 12/05/1984\nBP is 160/100.",
		"Name: John\tDate: 01.02.2023 phone 5551234567 mail j@x.io",
		"Patient: Ann Lee reports severe chest pain, seen March 3, 2024 at www.clinic.example",
		"no identifiers here, just fever and dizziness",
		"[REDACTED-NAME] called from 555 123 4567",
		"",
		// a placeholder opens a boundary that the original text did not have
		"5551234567555-123-456712/05/1984",
		"5551234567http://x.io/a@b.com",
		"849302MRN: 1234 and 5551234567ID: AB-9",
		"12/05/1984 01/02/2003-03/04/2005",
		"Name: Jose Garcia-Lopez DOB12/05/1984",
	}

	recognizer := &fakeRecognizer{find: map[string]models.EntityKind{
		"Ann Lee":  models.EntityPerson,
		"REDACTED": models.EntityPerson,
		"Boston":   models.EntityLocation,
	}}

	for _, r := range []*Redactor{newTestRedactor(nil), newTestRedactor(recognizer)} {
		for _, input := range inputs {
			once := r.Redact(context.Background(), input)
			twice := r.Redact(context.Background(), once.Text)
			assert.Equal(t, once.Text, twice.Text, "input %q", input)
		}
	}
}

func TestRedact_GluedValues(t *testing.T) {
	r := newTestRedactor(nil)

	tests := []struct {
		input string
		want  string
	}{
		{"Seen DOB12/05/1984 in clinic", "Seen DOB[REDACTED-DATE] in clinic"},
		{"Admitted on 2024-01-05 with fever", "Admitted on [REDACTED-DATE] with fever"},
		{"Name: Jose Garcia-Lopez", "Name: [REDACTED-NAME]"},
		{"5551234567555-123-456712/05/1984", "[REDACTED-PHONE]"},
		{"849302MRN: 1234", "849302MRN: [REDACTED-ID]"},
		{"5551234567ID: AB-9", "[REDACTED-PHONE]ID: [REDACTED-ID]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Redact(context.Background(), tt.input).Text)
			assert.Equal(t, tt.want, r.RedactRules(tt.input))
		})
	}
}

func TestRedact_LaterPassSpansUseOriginalOffsets(t *testing.T) {
	r := newTestRedactor(nil)

	// the second date is only reachable once the first one is a placeholder
	input := "Phone 5551234567\nRef 12/05/1984 01/02/2003"
	got := r.Redact(context.Background(), input)

	assert.Equal(t, "Phone [REDACTED-PHONE]\nRef [REDACTED-DATE] [REDACTED-DATE]", got.Text)
	require.Len(t, got.Spans, 3)

	last := got.Spans[2]
	assert.Equal(t, strings.Index(input, "01/02/2003"), last.Start)
	assert.Equal(t, len(input), last.End)
	assert.Equal(t, models.EntityDate, last.Kind)

	merged := r.Redact(context.Background(), "5551234567555-123-456712/05/1984")
	require.Len(t, merged.Spans, 1)
	assert.Equal(t, 0, merged.Spans[0].Start)
	assert.Equal(t, 32, merged.Spans[0].End)
}

func TestRedact_RecognizerSpansMerged(t *testing.T) {
	recognizer := &fakeRecognizer{find: map[string]models.EntityKind{
		"Dr. Sarah Connor": models.EntityPerson,
		"Boston":           models.EntityLocation,
	}}
	r := newTestRedactor(recognizer)

	got := r.Redact(context.Background(), "Referred by Dr. Sarah Connor in Boston. Name: Sarah Connor")
	assert.Equal(t, "Referred by [REDACTED-NAME] in [REDACTED-LOCATION]. Name: [REDACTED-NAME]", got.Text)
	assert.Equal(t, 1, recognizer.calls)
	assert.False(t, got.Degraded)
}

func TestRedact_RecognizerUnavailableDegrades(t *testing.T) {
	recognizer := &fakeRecognizer{err: models.ErrRecognitionUnavailable}
	r := newTestRedactor(recognizer)

	input := "Patient Name: Sarah Connor\nPhone 5551234567"
	got := r.Redact(context.Background(), input)

	assert.True(t, got.Degraded)
	assert.NotContains(t, got.Text, "Sarah Connor")
	assert.NotContains(t, got.Text, "5551234567")
}

func TestRedact_RecognizerErrorNeverFails(t *testing.T) {
	r := newTestRedactor(&fakeRecognizer{err: errors.New("boom")})

	got := r.Redact(context.Background(), "nothing to hide")
	assert.Equal(t, "nothing to hide", got.Text)
	assert.True(t, got.Degraded)
	assert.Empty(t, got.Spans)
}

func TestRedactRules(t *testing.T) {
	r := newTestRedactor(&fakeRecognizer{err: errors.New("must not be called")})

	got := r.RedactRules("Does Sarah Connor (DOB: 12/05/1984) need an ECG?")
	assert.Equal(t, "Does Sarah Connor (DOB: [REDACTED-DATE]) need an ECG?", got)
	assert.Equal(t, "v2", r.RuleSetVersion())
}

func TestMergeSpans(t *testing.T) {
	tests := []struct {
		name  string
		spans []models.RedactionSpan
		want  []models.RedactionSpan
	}{
		{
			name: "overlap takes union and higher priority kind",
			spans: []models.RedactionSpan{
				{Start: 5, End: 10, Kind: models.EntityDate, Source: models.SourceModel},
				{Start: 8, End: 14, Kind: models.EntityID, Source: models.SourceRule},
			},
			want: []models.RedactionSpan{{Start: 5, End: 14, Kind: models.EntityID, Source: models.SourceRule}},
		},
		{
			name: "touching spans merge",
			spans: []models.RedactionSpan{
				{Start: 0, End: 4, Kind: models.EntityLocation, Source: models.SourceModel},
				{Start: 4, End: 9, Kind: models.EntityPerson, Source: models.SourceModel},
			},
			want: []models.RedactionSpan{{Start: 0, End: 9, Kind: models.EntityPerson, Source: models.SourceModel}},
		},
		{
			name: "contained span absorbed",
			spans: []models.RedactionSpan{
				{Start: 2, End: 3, Kind: models.EntityPhone, Source: models.SourceRule},
				{Start: 0, End: 20, Kind: models.EntityEmail, Source: models.SourceRule},
			},
			want: []models.RedactionSpan{{Start: 0, End: 20, Kind: models.EntityEmail, Source: models.SourceRule}},
		},
		{
			name: "disjoint spans sorted",
			spans: []models.RedactionSpan{
				{Start: 10, End: 12, Kind: models.EntityDate, Source: models.SourceRule},
				{Start: 0, End: 2, Kind: models.EntityDate, Source: models.SourceRule},
			},
			want: []models.RedactionSpan{
				{Start: 0, End: 2, Kind: models.EntityDate, Source: models.SourceRule},
				{Start: 10, End: 12, Kind: models.EntityDate, Source: models.SourceRule},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeSpans(tt.spans))
		})
	}
}

func TestSubstitute_OffsetsFromOriginal(t *testing.T) {
	text := "a 5551234567 b x@y.z c"
	spans := mergeSpans(clampSpans(text, ruleSpans(text)))
	require.Len(t, spans, 2)
	assert.Equal(t, "a [REDACTED-PHONE] b [REDACTED-EMAIL] c", substitute(text, spans))
}
