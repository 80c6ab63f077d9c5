// Package monitoring holds the replaceable diagnostic logger shared by the
// engines, the frame driver and the publisher.
package monitoring

import (
	"log"
	"sync/atomic"
)

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

// Prefixed returns a logger that prepends prefix and a space to every
// message. It resolves Logf on each call, so a later SetLogger applies.
func Prefixed(prefix string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(prefix+" "+format, v...)
	}
}

// Every returns a logger that emits only the first message and then every
// nth one after it. It is used for per-frame warnings such as dropped frames.
func Every(n uint64, logf func(format string, v ...interface{})) func(format string, v ...interface{}) {
	if n == 0 {
		n = 1
	}
	var count atomic.Uint64
	return func(format string, v ...interface{}) {
		if (count.Add(1)-1)%n == 0 {
			logf(format, v...)
		}
	}
}
