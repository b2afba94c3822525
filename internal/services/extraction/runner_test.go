package extraction

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "Error: no page", n: 200, want: "Error: no page"},
		{name: "ascii cut", in: "abcdef", n: 3, want: "abc"},
		{name: "multi-byte cut", in: "ééééé", n: 2, want: "éé"},
		{name: "exact", in: "Fehler: Seite fehlt", n: 19, want: "Fehler: Seite fehlt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateRunes(tt.in, tt.n))
		})
	}
}

func TestTruncateRunes_NeverSplitsCharacter(t *testing.T) {
	// 199 ASCII bytes then a two-byte rune straddling byte 200
	msg := strings.Repeat("x", 199) + "ñ" + strings.Repeat("y", 50)

	got := truncateRunes(msg, maxStderrRunes)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxStderrRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "ñ"))
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "medguard-no-such-binary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "medguard-no-such-binary failed")
}
