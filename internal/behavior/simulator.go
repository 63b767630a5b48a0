// Package behavior generates human-plausible input gestures. Gestures are
// camouflage, not function: a failed gesture is logged and forgotten.
package behavior

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Page is the gesture surface the simulator drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Eval(ctx context.Context, expr string, out any) error
	MouseMove(ctx context.Context, x, y float64) error
	ScrollBy(ctx context.Context, dy float64) error
}

// feedItemScript picks one visible feed card link at random.
const feedItemScript = `(() => {
	const links = document.querySelectorAll('section.note-item a[href*="/explore/"], section.note-item a[href*="/search_result/"]');
	if (!links.length) return '';
	const a = links[Math.floor(Math.random() * links.length)];
	return a.href || '';
})()`

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

// Simulator produces randomized mouse paths, segmented scrolls, and the
// warmup browse performed before any search.
type Simulator struct {
	rng    *rand.Rand
	sleep  Sleeper
	logger *zap.Logger
}

// New constructs a Simulator.
func New(logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  timerSleep,
		logger: logger,
	}
}

// MoveMouse traces a quadratic bezier from the start point to the target in
// 5-12 steps, with a perturbed control point and 10-80ms step pauses. Move
// failures never propagate.
func (s *Simulator) MoveMouse(ctx context.Context, page Page, fromX, fromY, toX, toY float64) {
	steps := 5 + s.rng.Intn(8)
	ctrlX := (fromX+toX)/2 + s.uniform(-100, 100)
	ctrlY := (fromY+toY)/2 + s.uniform(-100, 100)

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		inv := 1 - t
		x := inv*inv*fromX + 2*inv*t*ctrlX + t*t*toX
		y := inv*inv*fromY + 2*inv*t*ctrlY + t*t*toY
		if err := page.MouseMove(ctx, x, y); err != nil {
			s.logger.Debug("mouse move failed", zap.Error(err))
			return
		}
		s.sleep(ctx, s.pause(10*time.Millisecond, 80*time.Millisecond))
	}
}

// Scroll covers the distance in 2-4 uneven bursts with short pauses, the way
// a reader skims rather than jumps.
func (s *Simulator) Scroll(ctx context.Context, page Page, total float64) {
	bursts := 2 + s.rng.Intn(3)
	per := total / float64(bursts)

	for i := 0; i < bursts; i++ {
		dy := per + s.uniform(-30, 30)
		if err := page.ScrollBy(ctx, dy); err != nil {
			s.logger.Debug("scroll burst failed", zap.Error(err))
			return
		}
		s.sleep(ctx, s.pause(100*time.Millisecond, 300*time.Millisecond))
	}
}

// Warmup browses the home feed before the first search: navigate home, 2-4
// cycles of mouse drift, a skim scroll, and a reading pause, then a linger
// on one feed card when the page offers any, ending back on home. Only the
// initial navigation error is reported; it means the session cannot reach
// the site at all.
func (s *Simulator) Warmup(ctx context.Context, page Page, homeURL string) error {
	if err := page.Navigate(ctx, homeURL); err != nil {
		return err
	}
	s.sleep(ctx, s.pause(2*time.Second, 4*time.Second))

	cycles := 2 + s.rng.Intn(3)
	for i := 0; i < cycles; i++ {
		fromX, fromY := s.uniform(100, 600), s.uniform(100, 500)
		toX, toY := s.uniform(200, 900), s.uniform(200, 700)
		s.MoveMouse(ctx, page, fromX, fromY, toX, toY)
		s.Scroll(ctx, page, s.uniform(400, 800))
		s.sleep(ctx, s.pause(2*time.Second, 4*time.Second))
	}

	if s.lingerOnFeedItem(ctx, page) {
		if err := page.Navigate(ctx, homeURL); err != nil {
			s.logger.Debug("return home failed", zap.Error(err))
		}
	}
	return nil
}

// lingerOnFeedItem opens one feed card and reads it briefly. A page without
// cards is left alone.
func (s *Simulator) lingerOnFeedItem(ctx context.Context, page Page) bool {
	var href string
	if err := page.Eval(ctx, feedItemScript, &href); err != nil || href == "" {
		return false
	}
	if err := page.Navigate(ctx, href); err != nil {
		s.logger.Debug("feed item visit failed", zap.Error(err))
		return false
	}
	s.sleep(ctx, s.pause(3*time.Second, 6*time.Second))
	s.Scroll(ctx, page, s.uniform(300, 700))
	s.sleep(ctx, s.pause(1*time.Second, 2*time.Second))
	return true
}

func (s *Simulator) uniform(low, high float64) float64 {
	return low + s.rng.Float64()*(high-low)
}

func (s *Simulator) pause(low, high time.Duration) time.Duration {
	if high <= low {
		return low
	}
	return low + time.Duration(s.rng.Int63n(int64(high-low)))
}
