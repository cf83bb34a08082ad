package logging

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// LogFields represents structured logging key/value pairs.
type LogFields map[string]any

// AdapterLogger is the logging capability injected into the transport
// adapter and runtime. It maps directly onto Watermill's logging contract
// so applications can adapt their existing loggers without depending on a
// particular backend.
type AdapterLogger interface {
	With(fields LogFields) AdapterLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
}

var slogLevelMapping = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// NewSlogAdapterLogger wraps a slog.Logger so it satisfies AdapterLogger.
func NewSlogAdapterLogger(log *slog.Logger) AdapterLogger {
	if log == nil {
		panic("smartmessage: slog logger cannot be nil")
	}
	return NewWatermillAdapterLogger(watermill.NewSlogLoggerWithLevelMapping(log, slogLevelMapping))
}

// NewWatermillAdapterLogger wraps an existing Watermill LoggerAdapter.
func NewWatermillAdapterLogger(logger watermill.LoggerAdapter) AdapterLogger {
	if logger == nil {
		panic("smartmessage: watermill logger cannot be nil")
	}
	return &watermillAdapterLogger{inner: logger}
}

// NewZerologAdapterLogger wraps a zerolog.Logger so it satisfies AdapterLogger.
func NewZerologAdapterLogger(log zerolog.Logger) AdapterLogger {
	return &zerologAdapterLogger{log: log}
}

// NopLogger discards everything. Useful in tests.
func NopLogger() AdapterLogger {
	return NewWatermillAdapterLogger(watermill.NopLogger{})
}

type watermillAdapterLogger struct {
	inner watermill.LoggerAdapter
}

func (w *watermillAdapterLogger) With(fields LogFields) AdapterLogger {
	return &watermillAdapterLogger{inner: w.inner.With(toWatermillFields(fields))}
}

func (w *watermillAdapterLogger) Debug(msg string, fields LogFields) {
	w.inner.Debug(msg, toWatermillFields(fields))
}

func (w *watermillAdapterLogger) Info(msg string, fields LogFields) {
	w.inner.Info(msg, toWatermillFields(fields))
}

func (w *watermillAdapterLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, toWatermillFields(fields))
}

type zerologAdapterLogger struct {
	log zerolog.Logger
}

func (z *zerologAdapterLogger) With(fields LogFields) AdapterLogger {
	ctx := z.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &zerologAdapterLogger{log: ctx.Logger()}
}

func (z *zerologAdapterLogger) Debug(msg string, fields LogFields) {
	z.log.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (z *zerologAdapterLogger) Info(msg string, fields LogFields) {
	z.log.Info().Fields(map[string]any(fields)).Msg(msg)
}

func (z *zerologAdapterLogger) Error(msg string, err error, fields LogFields) {
	z.log.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

type watermillBridge struct {
	base AdapterLogger
}

// NewWatermillBridge converts an AdapterLogger back into a Watermill
// LoggerAdapter so components built against Watermill's contract can reuse
// the same logger.
func NewWatermillBridge(log AdapterLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("smartmessage: AdapterLogger cannot be nil")
	}
	return &watermillBridge{base: log}
}

func (b *watermillBridge) Error(msg string, err error, fields watermill.LogFields) {
	b.base.Error(msg, err, fromWatermillFields(fields))
}

func (b *watermillBridge) Info(msg string, fields watermill.LogFields) {
	b.base.Info(msg, fromWatermillFields(fields))
}

func (b *watermillBridge) Debug(msg string, fields watermill.LogFields) {
	b.base.Debug(msg, fromWatermillFields(fields))
}

func (b *watermillBridge) Trace(msg string, fields watermill.LogFields) {
	b.base.Debug(msg, fromWatermillFields(fields))
}

func (b *watermillBridge) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillBridge{base: b.base.With(fromWatermillFields(fields))}
}

func toWatermillFields(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	return watermill.LogFields(fields)
}

func fromWatermillFields(fields watermill.LogFields) LogFields {
	if len(fields) == 0 {
		return nil
	}
	return LogFields(fields)
}
