package monitoring

import (
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
)

// Mode controls how chatty the package logger is.
type Mode int32

const (
	// ModeNormal emits Logf output only.
	ModeNormal Mode = iota
	// ModeDebug additionally emits Debugf output.
	ModeDebug
)

var mode atomic.Int32

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetMode changes the verbosity mode for Debugf.
func SetMode(m Mode) { mode.Store(int32(m)) }

// CurrentMode returns the active verbosity mode.
func CurrentMode() Mode { return Mode(mode.Load()) }

// Debugf forwards to Logf only when the debug mode is active.
func Debugf(format string, v ...interface{}) {
	if CurrentMode() < ModeDebug {
		return
	}
	Logf(format, v...)
}

// MemString summarises current heap usage in megabytes.
func MemString() string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return fmt.Sprintf("alloc=%dMB sys=%dMB total_alloc=%dMB", ms.Alloc>>20, ms.Sys>>20, ms.TotalAlloc>>20)
}
