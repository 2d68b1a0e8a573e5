package exceptions

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const defaultFlushTimeout = time.Second * 5

// Tags annotate a report, e.g. the job and asset ids.
type Tags map[string]string

// Reporter sends exceptions to an external source
type Reporter interface {
	ReportException(err error, tags Tags)
}

// NoopReporter is a no-op exception reporter
type NoopReporter struct{}

// ReportException does nothing
func (r *NoopReporter) ReportException(_ error, _ Tags) {}

// SentryReporter sends error information to Sentry
type SentryReporter struct{}

// NewSentryReporter creates and returns an instance of SentryReporter
func NewSentryReporter(dsn, env string) (*SentryReporter, error) {
	err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: env})
	if err != nil {
		return nil, err
	}

	return &SentryReporter{}, nil
}

// ReportException will send errors to Sentry
func (r *SentryReporter) ReportException(err error, tags Tags) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
	sentry.Flush(defaultFlushTimeout)
}
