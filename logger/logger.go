// Package logger configures logrus and carries request-scoped log entries through contexts.
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// Init sets the global logrus level and formatter. Unknown levels fall back to info.
func Init(level, format string) {
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// WithRequestID stores a request id in ctx so that Logger(ctx) tags every line with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	entry := logrus.WithField("request_id", requestID)
	return context.WithValue(ctx, ctxKey{}, entry)
}

// Logger returns the entry stored by WithRequestID, or a bare entry.
func Logger(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
