// Package logger provides leveled logging for admkb.
// Debug and Info messages are printed only in verbose mode (--verbose).
// Warn and Error messages are always printed so isolation and degradation
// events are visible in production logs.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var tags = [...]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
	levelError: "[ERROR] ",
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	now               = time.Now
)

// SetVerbose enables or disables Debug and Info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether Debug and Info output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Output returns the current log writer.
func Output() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

func Debug(format string, args ...any) { logf(levelDebug, format, args...) }

func Info(format string, args ...any) { logf(levelInfo, format, args...) }

func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

func Error(format string, args ...any) { logf(levelError, format, args...) }

// Section prints a header separating pipeline runs in verbose output.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed starts a stopwatch for a pipeline stage. Calling the returned
// func logs the elapsed time at debug level:
//
//	defer logger.Timed("embed chunks")()
func Timed(stage string) func() {
	if !IsVerbose() {
		return func() {}
	}
	start := now()
	return func() {
		Debug("%s took %s", stage, now().Sub(start).Round(time.Millisecond))
	}
}

func logf(lvl level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if lvl < levelWarn && !verbose {
		return
	}
	fmt.Fprintf(output, tags[lvl]+format+"\n", args...)
}
