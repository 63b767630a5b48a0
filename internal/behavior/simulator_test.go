package behavior

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedMove struct{ x, y float64 }

// fakePage records gestures instead of driving a browser.
type fakePage struct {
	navigated []string
	moves     []recordedMove
	scrolls   []float64
	itemHref  string
	moveErr   error
	scrollErr error
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) Eval(_ context.Context, _ string, out any) error {
	if s, ok := out.(*string); ok {
		*s = f.itemHref
	}
	return nil
}

func (f *fakePage) MouseMove(_ context.Context, x, y float64) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moves = append(f.moves, recordedMove{x, y})
	return nil
}

func (f *fakePage) ScrollBy(_ context.Context, dy float64) error {
	if f.scrollErr != nil {
		return f.scrollErr
	}
	f.scrolls = append(f.scrolls, dy)
	return nil
}

func newTestSimulator() (*Simulator, *[]time.Duration) {
	slept := new([]time.Duration)
	s := New(nil)
	s.rng = rand.New(rand.NewSource(7))
	s.sleep = func(_ context.Context, d time.Duration) {
		*slept = append(*slept, d)
	}
	return s, slept
}

func TestMoveMouseCurvedPath(t *testing.T) {
	s, slept := newTestSimulator()
	page := &fakePage{}

	s.MoveMouse(context.Background(), page, 0, 0, 100, 100)

	require.GreaterOrEqual(t, len(page.moves), 5)
	require.LessOrEqual(t, len(page.moves), 12)

	last := page.moves[len(page.moves)-1]
	require.InDelta(t, 100, last.x, 0.001, "path ends at the target")
	require.InDelta(t, 100, last.y, 0.001)

	for _, d := range *slept {
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.Less(t, d, 80*time.Millisecond)
	}
}

func TestMoveMouseErrorStopsQuietly(t *testing.T) {
	s, _ := newTestSimulator()
	page := &fakePage{moveErr: errors.New("tab busy")}

	// Must not panic or propagate.
	s.MoveMouse(context.Background(), page, 0, 0, 50, 50)
	require.Empty(t, page.moves)
}

func TestScrollSegmented(t *testing.T) {
	s, _ := newTestSimulator()
	page := &fakePage{}

	s.Scroll(context.Background(), page, 600)

	require.GreaterOrEqual(t, len(page.scrolls), 2)
	require.LessOrEqual(t, len(page.scrolls), 4)

	var total float64
	for _, dy := range page.scrolls {
		total += dy
	}
	// Bursts are jittered by up to 30px each.
	require.InDelta(t, 600, total, 30*4)
}

func TestWarmupNavigatesHomeFirst(t *testing.T) {
	s, _ := newTestSimulator()
	page := &fakePage{}

	require.NoError(t, s.Warmup(context.Background(), page, "https://example.com/home"))
	require.Equal(t, []string{"https://example.com/home"}, page.navigated)
	require.NotEmpty(t, page.scrolls, "warmup browses the feed")
}

func TestWarmupLingersOnItemThenReturnsHome(t *testing.T) {
	s, _ := newTestSimulator()
	page := &fakePage{itemHref: "https://example.com/explore/abc"}

	require.NoError(t, s.Warmup(context.Background(), page, "https://example.com/home"))
	require.Contains(t, page.navigated, "https://example.com/explore/abc")
	require.Equal(t, "https://example.com/home", page.navigated[len(page.navigated)-1],
		"warmup ends back on home")
}
