/*
NAME
  logger.go

DESCRIPTION
  logger.go implements the ambient structured-logging wrapper named in
  SPEC_FULL.md §1: a small leveled-logger interface matching the
  teacher's github.com/ausocean/utils/logging shape
  (Debug/Info/Warning/Error taking a message plus key/value pairs),
  backed by a plain text writer or a go.uber.org/zap JSON core
  depending on --log-format, with an optional lumberjack-backed
  rotating file sink. Grounded on cmd/rv/main.go's
  lumberjack.Logger+logging.New wiring.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package truehdlog is the ambient logging collaborator every pipeline
// stage (Extractor, Parser, Decoder) and cmd/truehdd accept as an
// optional dependency, matching spec.md §4.2's "governed by a
// configurable fail level" framing: below-fail-level conditions are
// logged here rather than returned as errors.
package truehdlog

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level ranks log verbosity from most to least severe, mirroring the
// teacher's logging.Level ordering.
type Level int

const (
	Error Level = iota
	Warning
	Info
	Debug
)

// Format selects the wire format the Logger renders lines in.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger is the leveled-logging interface every stage depends on,
// shaped after github.com/ausocean/utils/logging.Logger: a message plus
// an even run of key/value pairs per call.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warning(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// Config selects a Logger's verbosity, wire format, and optional
// rotating file destination (LogFile), matching cmd/truehdd's
// global --loglevel/--log-format flags. cmd/truehdd has no flag that
// sets LogFile.
type Config struct {
	Level    Level
	Format   Format
	LogFile  string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// logger is the concrete Logger: a zap.SugaredLogger core configured
// per Config, writing to os.Stderr and, when LogFile is set, to a
// lumberjack-rotated file as well.
type logger struct {
	level Level
	sugar *zap.SugaredLogger
}

// New constructs a Logger per cfg. Text format uses zap's human-
// readable console encoder; JSON format uses zap's JSON encoder,
// matching --log-format json's machine-readable requirement.
func New(cfg Config) Logger {
	var writers []io.Writer
	writers = append(writers, os.Stderr)
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: defaultInt(cfg.MaxBackups, 5),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
		})
	}
	dest := io.MultiWriter(writers...)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(dest), zapLevel(cfg.Level))
	zl := zap.New(core)

	return &logger{level: cfg.Level, sugar: zl.Sugar()}
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case Error:
		return zapcore.ErrorLevel
	case Warning:
		return zapcore.WarnLevel
	case Debug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *logger) Debug(msg string, kv ...interface{})   { l.sugar.Debugw(msg, kv...) }
func (l *logger) Info(msg string, kv ...interface{})    { l.sugar.Infow(msg, kv...) }
func (l *logger) Warning(msg string, kv ...interface{}) { l.sugar.Warnw(msg, kv...) }
func (l *logger) Error(msg string, kv ...interface{})   { l.sugar.Errorw(msg, kv...) }

// Discard is a Logger that drops every message, used when no Logger is
// configured and a stage still wants an unconditional call target.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...interface{})   {}
func (discard) Info(string, ...interface{})    {}
func (discard) Warning(string, ...interface{}) {}
func (discard) Error(string, ...interface{})   {}

// Tracef adapts a Logger's Debug method to the plain func(string)
// callback shape that truehddec.ParserState.Logf and similar
// tolerant-warning hooks expect, formatting eagerly since those hooks
// carry no key/value pairs.
func Tracef(l Logger) func(string) {
	return func(msg string) { l.Debug(msg) }
}
