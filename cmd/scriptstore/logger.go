package main

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/suyash-sneo/scriptstore"
)

// logrusLogger backs scriptstore.Logger with logrus.
type logrusLogger struct {
	entry *logrus.Entry
}

func newLogger(level string, out io.Writer) (*logrusLogger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	return &logrusLogger{entry: logrus.NewEntry(l)}, nil
}

func (l *logrusLogger) Debug(msg string, fields ...scriptstore.Field) {
	l.with(fields).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...scriptstore.Field) {
	l.with(fields).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...scriptstore.Field) {
	l.with(fields).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields ...scriptstore.Field) {
	l.with(fields).Error(msg)
}

func (l *logrusLogger) with(fields []scriptstore.Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return l.entry.WithFields(lf)
}
