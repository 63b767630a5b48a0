// Package extract pulls note records out of rendered pages, structured
// client state first and DOM scraping second.
package extract

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/config"
)

// ErrVideoNote marks a detail page holding a video post. Video posts are
// skipped without counting as failures.
var ErrVideoNote = errors.New("video note")

// ErrDetailUnavailable marks a note whose detail page could not be reached
// on either URL. The caller still receives a partial record built from the
// search hit.
var ErrDetailUnavailable = errors.New("detail page unavailable")

// Tab is the page surface the pipeline drives.
type Tab interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Eval(ctx context.Context, expr string, out any) error
	HTML(ctx context.Context) (string, error)
	ScrollBy(ctx context.Context, dy float64) error
}

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

// Pipeline extracts search hits and note details using a layered strategy:
// the client's serialized state is read before any DOM interaction, because
// overlay dismissal and scrolling can wipe it.
type Pipeline struct {
	selectors  *config.Selectors
	baseURL    string
	searchBase string
	sleep      Sleeper
	rng        *rand.Rand
	now        func() time.Time
	logger     *zap.Logger
}

// NewPipeline constructs the extraction pipeline.
func NewPipeline(selectors *config.Selectors, baseURL, searchBase string, logger *zap.Logger) *Pipeline {
	if selectors == nil {
		selectors = config.DefaultSelectors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		selectors:  selectors,
		baseURL:    baseURL,
		searchBase: searchBase,
		sleep:      timerSleep,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		logger:     logger,
	}
}

func (p *Pipeline) pause(ctx context.Context, low, high time.Duration) {
	d := low
	if high > low {
		d += time.Duration(p.rng.Int63n(int64(high - low)))
	}
	p.sleep(ctx, d)
}
