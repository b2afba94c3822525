package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine and logs, rather than propagates, a panic.
// The stack trace is logged; arguments and captured values are not.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(buf[:n])).
					Msg("Recovered from panic in goroutine")
			}
		}()
		fn()
	}()
}
