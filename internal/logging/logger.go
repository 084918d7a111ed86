package logging

// Leveled logging for smiteclick

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

// String returns the config spelling of the level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelSilent:
		return "silent"
	case LogLevelError:
		return "error"
	case LogLevelInfo:
		return "info"
	case LogLevelVerbose:
		return "verbose"
	case LogLevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a config or flag value onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "off", "none":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "", "info":
		return LogLevelInfo, nil
	case "verbose":
		return LogLevelVerbose, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q (want silent, error, info, verbose or debug)", s)
}

// Logger is safe for use from the click loop, the hotkey listener and the
// control surface at the same time.
type Logger struct {
	mu      sync.Mutex
	level   LogLevel
	file    *os.File
	fileLog *log.Logger
	stdout  *log.Logger
	stderr  *log.Logger
}

// NewLogger creates a new logger. An empty logFile disables file output.
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	l := &Logger{
		level:  level,
		stdout: log.New(os.Stdout, "", 0),
		stderr: log.New(os.Stderr, "", 0),
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = file
		l.fileLog = log.New(file, "", log.LstdFlags)
	}

	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{
		level:  LogLevelSilent,
		stdout: log.New(io.Discard, "", 0),
		stderr: log.New(io.Discard, "", 0),
	}
}

// SetOutput redirects console output. The TUI points both at io.Discard
// so log lines do not tear the alt screen.
func (l *Logger) SetOutput(stdout, stderr io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = log.New(stdout, "", 0)
	l.stderr = log.New(stderr, "", 0)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = nil
		return err
	}
	return nil
}

func (l *Logger) Error(format string, v ...any) { l.logf(LogLevelError, "ERROR", format, v) }
func (l *Logger) Info(format string, v ...any) { l.logf(LogLevelInfo, "INFO", format, v) }
func (l *Logger) Verbose(format string, v ...any) { l.logf(LogLevelVerbose, "VERBOSE", format, v) }
func (l *Logger) Debug(format string, v ...any) { l.logf(LogLevelDebug, "DEBUG", format, v) }

// logf drops lines above the current level. Errors always reach stderr;
// other lines reach stdout only at verbose or debug. The log file gets
// every line that passed the level.
func (l *Logger) logf(at LogLevel, tag, format string, v []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level < at {
		return
	}
	msg := tag + ": " + fmt.Sprintf(format, v...)
	if l.fileLog != nil {
		l.fileLog.Println(msg)
	}
	switch {
	case at == LogLevelError:
		l.stderr.Println(msg)
	case l.level >= LogLevelVerbose:
		l.stdout.Println(msg)
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogStartup logs the resolved runtime configuration.
func (l *Logger) LogStartup(backend, database, configPath string, apiListen string) {
	l.Info("Starting smiteclick")
	l.Verbose("  Backend: %s", backend)
	l.Verbose("  Database: %s", database)
	l.Verbose("  Config: %s", configPath)
	if apiListen != "" {
		l.Verbose("  API: %s", apiListen)
	}
}

// LogSession logs a finished click session.
func (l *Logger) LogSession(id, reason string, clicks int64, elapsed time.Duration, err error) {
	msg := fmt.Sprintf("session %s ended (%s): %d clicks in %s", id, reason, clicks, elapsed.Round(time.Millisecond))
	if err != nil {
		l.Error("%s: %v", msg, err)
		return
	}
	l.Info("%s", msg)
}
