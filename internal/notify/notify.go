// Package notify delivers user-facing notifications such as the toast shown
// when fresh data could not be fetched.
package notify

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/majdjadalhaq/MovieValut/internal/errorreporting"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
)

// FetchFailedMessage is shown once per fetch that exhausts its retries.
const FetchFailedMessage = "We hit a snag fetching fresh data."

// Level is the severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single user-visible message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Key     string    `json:"key,omitempty"`
	URL     string    `json:"-"`
	Err     error     `json:"-"`
	Time    time.Time `json:"time"`
}

// Notifier delivers notifications. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

// Log writes notifications to the structured logger.
type Log struct{}

func (Log) Notify(ctx context.Context, n Notification) {
	l := logger.WithRequestID(ctx).With("component", "notify", "severity", string(n.Level), "key", n.Key)
	if n.Err != nil {
		l = l.With("error", n.Err)
	}
	switch n.Level {
	case LevelError:
		l.Error(n.Message)
	case LevelWarning:
		l.Warn(n.Message)
	default:
		l.Info(n.Message)
	}
}

// Sentry reports error-level notifications that carry an error.
type Sentry struct{}

func (Sentry) Notify(_ context.Context, n Notification) {
	if n.Level != LevelError || n.Err == nil {
		return
	}
	errorreporting.CaptureErrorWithContext(n.Err,
		map[string]string{"component": "fetcher", "cache_key": n.Key},
		map[string]any{"url": n.URL, "message": n.Message},
	)
}

// Multi fans out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// FetchFailed builds the notification sent when a fetch gives up.
func FetchFailed(key, url string, err error) Notification {
	return Notification{
		Level:   LevelError,
		Message: FetchFailedMessage,
		Key:     key,
		URL:     url,
		Err:     err,
		Time:    time.Now(),
	}
}

// Send stamps n, counts it and hands it to to. A nil notifier is allowed.
func Send(ctx context.Context, to Notifier, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	metrics.NotificationsSent.WithLabelValues(string(n.Level)).Inc()
	if to == nil {
		return
	}
	to.Notify(ctx, n)
}

// Breadcrumb records a non-terminal event for later error reports.
func Breadcrumb(category, message string) {
	errorreporting.AddBreadcrumb(category, message, sentry.LevelWarning)
}
