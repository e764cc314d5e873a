package wanikache

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Logger receives structured debug output from the client. Implementations
// must be safe for concurrent use.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger is a minimal console logger writing to stderr.
type SimpleLogger struct {
	logger *log.Logger
}

// NewSimpleLogger creates a console logger suitable for development use.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		logger: log.New(os.Stderr, "wanikache ", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log("DEBUG", msg, keysAndValues...)
}

func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log("INFO", msg, keysAndValues...)
}

func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log("WARN", msg, keysAndValues...)
}

func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log("ERROR", msg, keysAndValues...)
}

func (l *SimpleLogger) log(level, msg string, keysAndValues ...interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.logger.Println(b.String())
}

// DebugConfig controls which client events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	LogRetries   bool
	LogScheduler bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a configuration with all event classes enabled.
func DefaultDebugConfig() *DebugConfig {
	var counter atomic.Uint64
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogCache:     true,
		LogRetries:   true,
		LogScheduler: true,
		RequestIDGen: func() string {
			return fmt.Sprintf("req-%d", counter.Add(1))
		},
	}
}
