package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestDevtoolsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Browser":"Chrome/140"}`))
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	require.True(t, devtoolsReachable(addr))
	require.False(t, devtoolsReachable("127.0.0.1:1"))
}

func TestNewSessionFallsBackToHeadless(t *testing.T) {
	// Nothing listens on the attach address, so the session must launch
	// its own allocator instead of attaching.
	s, err := NewSession(context.Background(), Config{
		AttachAddr:     "127.0.0.1:1",
		RequestsPerMin: 30,
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	require.False(t, s.Attached())
	require.Equal(t, 45*time.Second, s.cfg.NavigationTimeout, "timeout defaulted")
	require.InDelta(t, 0.5, float64(s.limiter.Limit()), 1e-9, "30 req/min is 0.5 req/s")
}

func TestNewSessionUnlimitedPacing(t *testing.T) {
	s, err := NewSession(context.Background(), Config{}, nil)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, rate.Inf, s.limiter.Limit())
}

func TestClassifyPromotesDeadContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tab := &Tab{sess: &Session{}, ctx: ctx}
	err := tab.classify("navigate", context.Canceled)
	require.ErrorIs(t, err, ErrSessionUnavailable)

	live := &Tab{sess: &Session{}, ctx: context.Background()}
	err = live.classify("navigate", context.DeadlineExceeded)
	require.NotErrorIs(t, err, ErrSessionUnavailable, "a timed-out action is survivable")
}
