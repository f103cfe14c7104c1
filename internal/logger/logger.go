// Package logger provides leveled, colourised logging for pagecite.
// Debug and Info messages are printed only in verbose mode; warnings and
// errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	debugTag = color.New(color.FgHiBlack).SprintFunc()
	infoTag  = color.New(color.FgCyan).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
)

// SetVerbose enables or disables Debug and Info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer for all log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func Debug(format string, args ...any) {
	logf(true, debugTag("[DEBUG]"), format, args...)
}

func Info(format string, args ...any) {
	logf(true, infoTag("[INFO]"), format, args...)
}

func Warn(format string, args ...any) {
	logf(false, warnTag("[WARN]"), format, args...)
}

func Error(format string, args ...any) {
	logf(false, errorTag("[ERROR]"), format, args...)
}

func logf(verboseOnly bool, tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseOnly && !verbose {
		return
	}
	fmt.Fprintf(output, "%s %s "+format+"\n",
		append([]any{time.Now().Format("15:04:05"), tag}, args...)...)
}
