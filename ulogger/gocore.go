package ulogger

import (
	"github.com/ordishs/gocore"
)

// GoCoreLogger adapts a gocore logger to Logger.
type GoCoreLogger struct {
	*gocore.Logger
	skipFrame int
}

func NewGoCoreLogger(service string, options ...Option) *GoCoreLogger {
	if service == "" {
		service = "txhandler"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	return &GoCoreLogger{
		Logger:    gocore.Log(service, gocore.NewLogLevelFromString(opts.logLevel)),
		skipFrame: opts.skip,
	}
}

// New returns a logger for another service. The level is inherited unless an option sets it.
func (g *GoCoreLogger) New(service string, options ...Option) Logger {
	opts := &Options{skip: g.skipFrame}
	for _, o := range options {
		o(opts)
	}

	level := g.Logger.GetLogLevel()
	if opts.logLevel != "" {
		level = gocore.NewLogLevelFromString(opts.logLevel)
	}

	return &GoCoreLogger{
		Logger:    gocore.Log(service, level),
		skipFrame: opts.skip,
	}
}

func (g *GoCoreLogger) Duplicate(options ...Option) Logger {
	opts := &Options{skip: g.skipFrame}
	for _, o := range options {
		o(opts)
	}

	return &GoCoreLogger{Logger: g.Logger, skipFrame: opts.skip}
}

// SetLogLevel is a no-op, gocore fixes the level when the logger is created.
func (g *GoCoreLogger) SetLogLevel(_ string) {}
