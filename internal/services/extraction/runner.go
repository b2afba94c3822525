package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/medguard/internal/interfaces"
)

// maxStderrRunes bounds the tool output carried into error messages
const maxStderrRunes = 200

// ExecRunner runs binaries with os/exec. Stderr is captured for error messages only.
type ExecRunner struct{}

var _ interfaces.CommandRunner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := truncateRunes(strings.TrimSpace(stderr.String()), maxStderrRunes)
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w (%s)", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// truncateRunes cuts s to at most n runes without splitting a multi-byte character
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
