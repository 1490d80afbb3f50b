package ulogger

import (
	"strings"
	"sync"
	"testing"
)

var verboseLevels = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3, "FATAL": 4}

func verboseLevel(level string) int {
	if l, ok := verboseLevels[strings.ToUpper(level)]; ok {
		return l
	}

	return verboseLevels["INFO"]
}

// VerboseTestLogger writes through t.Logf so output only shows for failing or -v tests.
type VerboseTestLogger struct {
	t       testing.TB
	service string
	level   int
	mutex   *sync.Mutex
}

func NewVerboseTestLogger(t testing.TB, options ...Option) *VerboseTestLogger {
	opts := DefaultOptions()
	opts.logLevel = "DEBUG"

	for _, o := range options {
		o(opts)
	}

	return &VerboseTestLogger{
		t:     t,
		level: verboseLevel(opts.logLevel),
		mutex: &sync.Mutex{},
	}
}

func (l *VerboseTestLogger) LogLevel() int {
	return l.level
}

func (l *VerboseTestLogger) SetLogLevel(level string) {
	l.level = verboseLevel(level)
}

func (l *VerboseTestLogger) New(service string, options ...Option) Logger {
	newLogger := l.Duplicate(options...).(*VerboseTestLogger)
	newLogger.service = service

	return newLogger
}

func (l *VerboseTestLogger) Duplicate(options ...Option) Logger {
	newLogger := *l

	opts := &Options{}
	for _, o := range options {
		o(opts)
	}

	if opts.logLevel != "" {
		newLogger.level = verboseLevel(opts.logLevel)
	}

	return &newLogger
}

func (l *VerboseTestLogger) Debugf(format string, args ...interface{}) {
	l.logf("DEBUG", format, args...)
}

func (l *VerboseTestLogger) Infof(format string, args ...interface{}) {
	l.logf("INFO", format, args...)
}

func (l *VerboseTestLogger) Warnf(format string, args ...interface{}) {
	l.logf("WARN", format, args...)
}

func (l *VerboseTestLogger) Errorf(format string, args ...interface{}) {
	l.logf("ERROR", format, args...)
}

func (l *VerboseTestLogger) Fatalf(format string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.t.Fatalf(l.prefix("FATAL")+format, args...)
}

func (l *VerboseTestLogger) logf(level string, format string, args ...interface{}) {
	if verboseLevel(level) < l.level {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.t.Helper()
	l.t.Logf(l.prefix(level)+format, args...)
}

func (l *VerboseTestLogger) prefix(level string) string {
	if l.service == "" {
		return "[" + level + "] "
	}

	return "[" + level + "] " + l.service + " "
}
