package governor

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// OpClass names a governed operation, each with its own base delay range.
type OpClass string

// Operation classes.
const (
	OpDetail  OpClass = "detail"
	OpSearch  OpClass = "search"
	OpKeyword OpClass = "keyword"
)

type delayRange struct {
	low  time.Duration
	high time.Duration
}

var baseDelays = map[OpClass]delayRange{
	OpDetail:  {10 * time.Second, 15 * time.Second},
	OpSearch:  {3 * time.Second, 6 * time.Second},
	OpKeyword: {20 * time.Second, 40 * time.Second},
}

var fallbackDelay = delayRange{5 * time.Second, 10 * time.Second}

// Pacing thresholds.
const (
	forcedPauseEvery = 20
	backoffPerFail   = 10 * time.Second
	backoffCap       = 120 * time.Second

	// BreakerThreshold is the consecutive-failure count that trips the
	// circuit breaker.
	BreakerThreshold = 5
)

// Sleeper blocks for the given duration or until the context finishes.
type Sleeper func(ctx context.Context, d time.Duration)

func timerSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Governor owns delay scheduling for the single crawl thread. All waiting is
// a blocking pause; there is no cooperative multiplexing by design.
type Governor struct {
	state  *RunState
	sleep  Sleeper
	now    func() time.Time
	rng    *rand.Rand
	logger *zap.Logger
}

// New constructs a Governor bound to the run state.
func New(state *RunState, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Governor{
		state:  state,
		sleep:  timerSleep,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Delay blocks for the schedule owed to one governed request of the given
// class. Every 20th request forces an extended 45-90s rest that replaces the
// normal schedule; otherwise the class's base range is scaled by time of day
// and stretched by the failure backoff.
func (g *Governor) Delay(ctx context.Context, class OpClass) {
	g.state.RequestCount++

	if g.state.RequestCount%forcedPauseEvery == 0 {
		rest := g.uniform(45*time.Second, 90*time.Second)
		g.logger.Info("forced extended pause",
			zap.Int("request_count", g.state.RequestCount),
			zap.Duration("rest", rest),
		)
		g.sleep(ctx, rest)
		return
	}

	r, ok := baseDelays[class]
	if !ok {
		r = fallbackDelay
	}
	low, high := g.scaleForHour(r.low, r.high)

	if backoff := g.failureBackoff(); backoff > 0 {
		low += backoff
		high += backoff
	}

	g.sleep(ctx, g.uniform(low, high))
}

// scaleForHour applies the time-of-day multiplier: evening peak traffic gets
// slower, small-hours traffic faster.
func (g *Governor) scaleForHour(low, high time.Duration) (time.Duration, time.Duration) {
	switch hour := g.now().Hour(); {
	case hour >= 19 && hour <= 23:
		return time.Duration(float64(low) * 1.8), time.Duration(float64(high) * 1.8)
	case hour <= 7:
		return time.Duration(float64(low) * 0.7), time.Duration(float64(high) * 0.7)
	default:
		return low, high
	}
}

func (g *Governor) failureBackoff() time.Duration {
	if g.state.ConsecutiveFailures <= 0 {
		return 0
	}
	backoff := time.Duration(g.state.ConsecutiveFailures) * backoffPerFail
	if backoff > backoffCap {
		backoff = backoffCap
	}
	return backoff
}

// BreakerTripped reports whether the failure streak has crossed the circuit
// breaker threshold.
func (g *Governor) BreakerTripped() bool {
	return g.state.ConsecutiveFailures >= BreakerThreshold
}

// Cooldown serves the circuit breaker pause and resets the failure streak.
// The caller re-navigates the session to a known-good page afterwards.
func (g *Governor) Cooldown(ctx context.Context) {
	pause := g.uniform(180*time.Second, 300*time.Second)
	g.logger.Warn("circuit breaker tripped",
		zap.Int("consecutive_failures", g.state.ConsecutiveFailures),
		zap.Duration("cooldown", pause),
	)
	g.sleep(ctx, pause)
	g.state.ResetFailures()
}

func (g *Governor) uniform(low, high time.Duration) time.Duration {
	if high <= low {
		return low
	}
	return low + time.Duration(g.rng.Int63n(int64(high-low)))
}
