package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir receives crash reports. InstallCrashHandler sets it at startup.
var CrashLogDir = "./logs"

// InstallCrashHandler sets the crash report directory and creates it.
// Pair it with a deferred RecoverWithCrashFile in main.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// WriteCrashFile writes a crash report with every goroutine stack and
// returns its path. Falls back to stderr when the file cannot be written.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	now := time.Now()
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	var report bytes.Buffer
	fmt.Fprintf(&report, "=== MEDGUARD CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetFullVersion())
	fmt.Fprintf(&report, "=== PANIC VALUE ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK TRACE ===\n%s\n", stackTrace)
	fmt.Fprintf(&report, "=== ALL GOROUTINES ===\n%s\n", GetAllGoroutineStacks())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fmt.Fprintf(&report, "=== SYSTEM INFO ===\n")
	fmt.Fprintf(&report, "NumGoroutine: %d\nNumCPU: %d\nGOOS: %s\nGOARCH: %s\n",
		runtime.NumGoroutine(), runtime.NumCPU(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "Alloc: %d MB\nSys: %d MB\nNumGC: %d\n", memStats.Alloc/1024/1024, memStats.Sys/1024/1024, memStats.NumGC)
	fmt.Fprintf(&report, "=== END CRASH REPORT ===\n")

	// Direct write; buffered IO is unreliable while the process is dying
	if err := os.WriteFile(crashPath, report.Bytes(), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to: %s !!!\n", crashPath)
	return crashPath
}

// GetAllGoroutineStacks returns the stacks of all goroutines, capped at 64MB
func GetAllGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 64*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// GetStackTrace returns the current goroutine's stack
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// RecoverWithCrashFile writes a crash report and exits on panic.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}
