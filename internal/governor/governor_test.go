package governor

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestGovernor wires a deterministic rng, a neutral-hour clock, and a
// recording sleeper so tests can assert the served schedule.
func newTestGovernor(state *RunState) (*Governor, *[]time.Duration) {
	slept := new([]time.Duration)
	g := New(state, nil)
	g.rng = rand.New(rand.NewSource(1))
	g.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}
	g.sleep = func(_ context.Context, d time.Duration) {
		*slept = append(*slept, d)
	}
	return g, slept
}

func TestDelayBaseRanges(t *testing.T) {
	cases := []struct {
		class OpClass
		low   time.Duration
		high  time.Duration
	}{
		{OpDetail, 10 * time.Second, 15 * time.Second},
		{OpSearch, 3 * time.Second, 6 * time.Second},
		{OpKeyword, 20 * time.Second, 40 * time.Second},
		{OpClass("unknown"), 5 * time.Second, 10 * time.Second},
	}
	for _, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			g, slept := newTestGovernor(&RunState{})
			g.Delay(context.Background(), tc.class)
			require.Len(t, *slept, 1)
			require.GreaterOrEqual(t, (*slept)[0], tc.low)
			require.Less(t, (*slept)[0], tc.high)
		})
	}
}

func TestDelayEveningMultiplier(t *testing.T) {
	g, slept := newTestGovernor(&RunState{})
	g.now = func() time.Time {
		return time.Date(2026, 8, 29, 21, 0, 0, 0, time.UTC)
	}
	g.Delay(context.Background(), OpDetail)
	require.GreaterOrEqual(t, (*slept)[0], 18*time.Second, "evening scales 10s up by 1.8")
	require.Less(t, (*slept)[0], 27*time.Second)
}

func TestDelaySmallHoursMultiplier(t *testing.T) {
	g, slept := newTestGovernor(&RunState{})
	g.now = func() time.Time {
		return time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	}
	g.Delay(context.Background(), OpDetail)
	require.GreaterOrEqual(t, (*slept)[0], 7*time.Second, "small hours scale 10s down by 0.7")
	require.Less(t, (*slept)[0], 10500*time.Millisecond)
}

func TestDelayFailureBackoff(t *testing.T) {
	state := &RunState{ConsecutiveFailures: 3}
	g, slept := newTestGovernor(state)
	g.Delay(context.Background(), OpSearch)
	require.GreaterOrEqual(t, (*slept)[0], 33*time.Second, "3 failures add 30s")
	require.Less(t, (*slept)[0], 36*time.Second)
}

func TestDelayBackoffCapped(t *testing.T) {
	state := &RunState{ConsecutiveFailures: 50}
	g, slept := newTestGovernor(state)
	g.Delay(context.Background(), OpSearch)
	require.GreaterOrEqual(t, (*slept)[0], 123*time.Second, "backoff caps at 120s")
	require.Less(t, (*slept)[0], 126*time.Second)
}

func TestForcedPauseAtEveryTwentieth(t *testing.T) {
	g, slept := newTestGovernor(&RunState{})
	ctx := context.Background()

	forced := func(d time.Duration) bool {
		return d >= 45*time.Second && d < 90*time.Second
	}

	for i := 1; i <= 40; i++ {
		g.Delay(ctx, OpSearch)
	}
	require.Len(t, *slept, 40)
	for i, d := range *slept {
		reqNum := i + 1
		if reqNum == 20 || reqNum == 40 {
			require.True(t, forced(d), "request %d must be a forced pause, got %v", reqNum, d)
		} else {
			require.False(t, forced(d), "request %d must not be a forced pause, got %v", reqNum, d)
		}
	}
}

func TestBreakerTripped(t *testing.T) {
	state := &RunState{ConsecutiveFailures: 4}
	g, _ := newTestGovernor(state)
	require.False(t, g.BreakerTripped())
	state.RecordFailure()
	require.True(t, g.BreakerTripped())
}

func TestCooldownResetsFailures(t *testing.T) {
	state := &RunState{ConsecutiveFailures: 6}
	g, slept := newTestGovernor(state)

	g.Cooldown(context.Background())

	require.Len(t, *slept, 1)
	require.GreaterOrEqual(t, (*slept)[0], 180*time.Second)
	require.Less(t, (*slept)[0], 300*time.Second)
	require.Zero(t, state.ConsecutiveFailures)
}

// MockProbe is a mock implementation of the TextProbe interface.
type MockProbe struct {
	mock.Mock
}

func (m *MockProbe) VisibleText(ctx context.Context, limit int) (string, error) {
	args := m.Called(ctx, limit)
	return args.String(0), args.Error(1)
}

func TestCheckBlockedCleanPage(t *testing.T) {
	probe := new(MockProbe)
	probe.On("VisibleText", mock.Anything, probeLimit).Return("正常内容页面", nil)

	state := &RunState{}
	g, slept := newTestGovernor(state)
	require.False(t, g.CheckBlocked(context.Background(), probe))
	require.Empty(t, *slept)
	require.Zero(t, state.BlockedCount)
}

func TestCheckBlockedMarkerFound(t *testing.T) {
	probe := new(MockProbe)
	probe.On("VisibleText", mock.Anything, probeLimit).Return("请完成安全检查后继续", nil)

	state := &RunState{}
	g, slept := newTestGovernor(state)
	require.True(t, g.CheckBlocked(context.Background(), probe))

	require.Len(t, *slept, 1)
	require.GreaterOrEqual(t, (*slept)[0], 120*time.Second)
	require.Less(t, (*slept)[0], 240*time.Second)
	require.Equal(t, 1, state.BlockedCount)
	require.Equal(t, 1, state.ConsecutiveFailures)
}

func TestCheckBlockedProbeError(t *testing.T) {
	probe := new(MockProbe)
	probe.On("VisibleText", mock.Anything, probeLimit).Return("", errors.New("tab gone"))

	g, slept := newTestGovernor(&RunState{})
	require.False(t, g.CheckBlocked(context.Background(), probe), "probe errors are not blocked states")
	require.Empty(t, *slept)
}
