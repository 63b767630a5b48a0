package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Tab is one controllable page inside the session.
type Tab struct {
	sess      *Session
	ctx       context.Context
	cancel    context.CancelFunc
	uaApplied bool
}

// Navigate loads the URL and waits for the document body. It is the only
// governed operation: the session's pacing limiter is consulted first.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := t.sess.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}

	actions := make([]chromedp.Action, 0, 3)
	if t.sess.cfg.UserAgent != "" && !t.uaApplied {
		ua := t.sess.cfg.UserAgent
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(ua).Do(ctx)
		}))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err := t.run(ctx, actions...); err != nil {
		return t.classify("navigate "+url, err)
	}
	t.uaApplied = true
	return nil
}

// Location returns the current page URL.
func (t *Tab) Location(ctx context.Context) (string, error) {
	var url string
	if err := t.run(ctx, chromedp.Location(&url)); err != nil {
		return "", t.classify("location", err)
	}
	return url, nil
}

// Eval evaluates the expression in page context. out may be nil when the
// result is not needed, or a pointer the JSON result is unmarshaled into.
func (t *Tab) Eval(ctx context.Context, expr string, out any) error {
	if err := t.run(ctx, chromedp.Evaluate(expr, out)); err != nil {
		return t.classify("evaluate", err)
	}
	return nil
}

// VisibleText returns up to limit characters of the page's rendered text.
func (t *Tab) VisibleText(ctx context.Context, limit int) (string, error) {
	expr := fmt.Sprintf("document.body ? document.body.innerText.slice(0, %d) : ''", limit)
	var text string
	if err := t.run(ctx, chromedp.Evaluate(expr, &text)); err != nil {
		return "", t.classify("visible text", err)
	}
	return text, nil
}

// HTML returns the full rendered document markup.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", t.classify("outer html", err)
	}
	return html, nil
}

// MouseMove dispatches a raw pointer move to viewport coordinates.
func (t *Tab) MouseMove(ctx context.Context, x, y float64) error {
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	})
	if err := t.run(ctx, action); err != nil {
		return t.classify("mouse move", err)
	}
	return nil
}

// Click dispatches a click at viewport coordinates.
func (t *Tab) Click(ctx context.Context, x, y float64) error {
	if err := t.run(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return t.classify("click", err)
	}
	return nil
}

// ScrollBy scrolls the page vertically by dy pixels.
func (t *Tab) ScrollBy(ctx context.Context, dy float64) error {
	expr := fmt.Sprintf("window.scrollBy(0, %.0f)", dy)
	if err := t.run(ctx, chromedp.Evaluate(expr, nil)); err != nil {
		return t.classify("scroll", err)
	}
	return nil
}

// Close releases the tab's target.
func (t *Tab) Close() {
	t.cancel()
}

// run executes actions on the tab's chromedp context, bounded by the
// navigation timeout and the caller's context.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, t.sess.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// classify wraps tab errors, promoting them to ErrSessionUnavailable when
// the underlying browser context is dead.
func (t *Tab) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if t.ctx.Err() != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrSessionUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
