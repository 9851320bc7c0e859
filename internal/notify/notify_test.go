package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majdjadalhaq/MovieValut/internal/logger"
)

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func TestMultiFansOutInOrder(t *testing.T) {
	var order []string
	a := Func(func(context.Context, Notification) { order = append(order, "a") })
	b := Func(func(context.Context, Notification) { order = append(order, "b") })

	Multi{a, nil, b}.Notify(context.Background(), Notification{Message: "hi"})
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSendStampsTime(t *testing.T) {
	rec := &recorder{}
	Send(context.Background(), rec, Notification{Level: LevelInfo, Message: "x"})
	require.Len(t, rec.got, 1)
	assert.False(t, rec.got[0].Time.IsZero())

	assert.NotPanics(t, func() { Send(context.Background(), nil, Notification{}) })
}

func TestFetchFailed(t *testing.T) {
	err := errors.New("502")
	n := FetchFailed("trending::page:1", "https://upstream/trending", err)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "We hit a snag fetching fresh data.", n.Message)
	assert.Equal(t, "trending::page:1", n.Key)
	assert.ErrorIs(t, n.Err, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info", false)

	Log{}.Notify(context.Background(), FetchFailed("k", "u", errors.New("boom")))
	out := buf.String()
	assert.True(t, strings.Contains(out, "level=ERROR"), out)
	assert.Contains(t, out, FetchFailedMessage)
	assert.Contains(t, out, "error=boom")
}

func TestSentryNotifierIgnoresNonErrors(t *testing.T) {
	// Sentry is not initialised in tests; these must be silent no-ops.
	assert.NotPanics(t, func() {
		Sentry{}.Notify(context.Background(), Notification{Level: LevelInfo, Message: "ok"})
		Sentry{}.Notify(context.Background(), FetchFailed("k", "u", errors.New("x")))
	})
	Nop{}.Notify(context.Background(), Notification{})
}
