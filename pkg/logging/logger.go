// Package logging provides session-scoped file logging for webpilot components.
//
// A single Log is constructed in main before the first agent iteration and
// closed at shutdown; components obtain named child loggers from it. There is
// no package-level state: the logging context is passed explicitly to whatever
// needs it.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Log owns the log file for one agent run. All component loggers created from
// it write to the same file, prefixed with their component name.
type Log struct {
	sessionID string
	path      string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	closeOnce sync.Once
}

// Open creates the run log under dir, or ~/.webpilot/logs when dir is empty.
// If the directory or file cannot be created it returns a Log that writes to
// stderr along with the error, so callers can warn but keep running.
func Open(dir string) (*Log, error) {
	sessID := uuid.New().String()

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fallbackLog(sessID, err), fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".webpilot", "logs")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fallbackLog(sessID, err), fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-webpilot.log", sessID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fallbackLog(sessID, err), fmt.Errorf("open log file: %w", err)
	}

	return &Log{
		sessionID: sessID,
		path:      path,
		file:      file,
		logger:    log.New(file, "", 0), // timestamps are formatted by writeEntry
	}, nil
}

func fallbackLog(sessID string, err error) *Log {
	l := log.New(os.Stderr, "", 0)
	l.Printf("WARNING: file logging unavailable, falling back to stderr: %v", err)
	return &Log{sessionID: sessID, logger: l}
}

// SessionID returns the unique identifier for this run.
func (l *Log) SessionID() string { return l.sessionID }

// Path returns the log file path, or "" in stderr fallback mode.
func (l *Log) Path() string { return l.path }

// Writer exposes the underlying sink for subsystems that need an io.Writer.
func (l *Log) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// Close flushes and closes the log file. Safe to call multiple times.
func (l *Log) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

func (l *Log) writeEntry(component, level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", ts, component, level, message)
}

// Component returns a named logger writing into this run's log.
func (l *Log) Component(name string) *Logger {
	return &Logger{log: l, component: name}
}

// Logger is a component-scoped view over the run log.
type Logger struct {
	log       *Log
	component string
}

// Debugf logs a debug-level message.
func (c *Logger) Debugf(format string, v ...any) {
	c.log.writeEntry(c.component, "DEBUG", fmt.Sprintf(format, v...))
}

// Infof logs an info-level message.
func (c *Logger) Infof(format string, v ...any) {
	c.log.writeEntry(c.component, "INFO", fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level message.
func (c *Logger) Warnf(format string, v ...any) {
	c.log.writeEntry(c.component, "WARN", fmt.Sprintf(format, v...))
}

// Errorf logs an error-level message.
func (c *Logger) Errorf(format string, v ...any) {
	c.log.writeEntry(c.component, "ERROR", fmt.Sprintf(format, v...))
}
