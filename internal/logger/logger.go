// Package logger wraps logrus with request/worker-scoped context propagation,
// matching the calling convention the rest of the codebase expects:
// logger.Info(ctx, ...), logger.Infof(ctx, fmt, ...), logger.ErrorWithFields(ctx, err, fields).
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.JSONFormatter{})
}

// SetLevel configures the base logger's minimum level from a string
// ("debug", "info", "warn", "error"); unrecognized values fall back to info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// WithFields returns a context carrying a logger pre-populated with fields,
// so every subsequent log call on this context includes them automatically.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry(ctx).WithFields(fields))
}

// CloneContext detaches a context's deadline/cancellation while preserving
// its logger fields, for use by goroutines that must outlive the request
// (e.g. a worker continuing after its HTTP handler returns).
func CloneContext(ctx context.Context) context.Context {
	return context.WithValue(context.Background(), ctxKey{}, entry(ctx))
}

func entry(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(base)
}

func Info(ctx context.Context, args ...interface{})  { entry(ctx).Info(args...) }
func Warn(ctx context.Context, args ...interface{})  { entry(ctx).Warn(args...) }
func Error(ctx context.Context, args ...interface{}) { entry(ctx).Error(args...) }
func Debug(ctx context.Context, args ...interface{}) { entry(ctx).Debug(args...) }

func Infof(ctx context.Context, format string, args ...interface{})  { entry(ctx).Infof(format, args...) }
func Warnf(ctx context.Context, format string, args ...interface{})  { entry(ctx).Warnf(format, args...) }
func Errorf(ctx context.Context, format string, args ...interface{}) { entry(ctx).Errorf(format, args...) }
func Debugf(ctx context.Context, format string, args ...interface{}) { entry(ctx).Debugf(format, args...) }

// ErrorWithFields logs err at error level with additional structured fields.
func ErrorWithFields(ctx context.Context, err error, fields map[string]interface{}) {
	e := entry(ctx)
	if len(fields) > 0 {
		e = e.WithFields(fields)
	}
	e.WithError(err).Error("error")
}
