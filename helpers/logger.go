package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/storyworker/logger"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogSkip(target string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends skipped items to a file so a finished run can be reviewed
type Logger struct {
	errorFile string
	mu        sync.Mutex
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogSkip logs a skipped target to the file with its reason and a timestamp
func (l *Logger) LogSkip(target string, err error) {
	logger.Warn("skipped %s: %v", target, err)
	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Error("failed to open skip log %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, target, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
