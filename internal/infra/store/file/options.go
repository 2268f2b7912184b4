// Package file persists the transcript log and the analysis cache as JSON
// documents on local disk.
package file

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/speech-coach/internal/logger"
)

type options struct {
	now      func() time.Time
	log      logrus.FieldLogger
	warnings prometheus.Counter
}

type Option func(*options)

// WithClock overrides the timestamp source used for new records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithWarningCounter counts documents that could not be parsed and were
// treated as empty.
func WithWarningCounter(c prometheus.Counter) Option {
	return func(o *options) { o.warnings = c }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	return o
}

func (o options) corrupt(op, path string, err error) {
	o.log.WithFields(logrus.Fields{
		"op":   op,
		"path": path,
	}).WithError(err).Warn("persisted file is unreadable, treating it as empty")
	if o.warnings != nil {
		o.warnings.Inc()
	}
}
