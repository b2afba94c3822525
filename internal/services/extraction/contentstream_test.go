package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeContentStream(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "single Tj",
			content: "BT /F1 12 Tf 72 712 Td (Patient reports fever) Tj ET",
			want:    "Patient reports fever",
		},
		{
			name:    "lines from Td",
			content: "BT /F1 12 Tf 72 712 Td (Line one) Tj 0 -14 Td (Line two) Tj ET",
			want:    "Line one\nLine two",
		},
		{
			name:    "separate text objects",
			content: "BT 72 712 Td (First) Tj ET\nBT 72 698 Td (Second) Tj ET",
			want:    "First\nSecond",
		},
		{
			name:    "TJ kerning gap becomes space",
			content: "BT [(Blood)-250(pressure)12(high)] TJ ET",
			want:    "Blood pressurehigh",
		},
		{
			name:    "escapes and nested parens",
			content: `BT (BP \(sitting\) 160/100) Tj T* (a\\b \101) Tj ET`,
			want:    "BP (sitting) 160/100\na\\b A",
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj ET",
			want:    "Hello",
		},
		{
			name:    "utf16 hex string",
			content: "BT <FEFF00480069> Tj ET",
			want:    "Hi",
		},
		{
			name:    "quote operator starts new line",
			content: "BT (one) Tj (two) ' ET",
			want:    "one\ntwo",
		},
		{
			name:    "inline image is skipped",
			content: "BI /W 1 /H 1 ID \x00\xff\x10 EI BT (after) Tj ET",
			want:    "after",
		},
		{
			name:    "no text operators",
			content: "q 1 0 0 1 0 0 cm 0 0 100 100 re f Q",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeContentStream([]byte(tt.content)))
		})
	}
}
