// Package browser drives a single Chrome session over the DevTools protocol.
// Everything the crawler shows the site flows through this one session; a
// lost session is the only unrecoverable failure in the program.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrSessionUnavailable marks errors that mean the browser itself is gone.
// Every other failure is survivable and handled by pacing, not by exit.
var ErrSessionUnavailable = errors.New("browser session unavailable")

// Config controls session establishment and pacing.
type Config struct {
	// AttachAddr is the DevTools endpoint of an already-running browser.
	// When reachable it is preferred over launching headless, because an
	// attached profile carries the operator's login state.
	AttachAddr        string
	UserAgent         string
	NavigationTimeout time.Duration
	RequestsPerMin    float64
	HomeURL           string
}

// Session owns the allocator, the browser context, and the global pacing
// limiter shared by every tab.
type Session struct {
	cfg         Config
	allocCancel context.CancelFunc
	limiter     *rate.Limiter
	logger      *zap.Logger
	attached    bool
	main        *Tab
}

// NewSession attaches to a running browser when the DevTools endpoint
// responds, and falls back to launching its own headless instance otherwise.
func NewSession(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerMin > 0 {
		limit = rate.Limit(cfg.RequestsPerMin / 60.0)
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
		attached    bool
	)
	if cfg.AttachAddr != "" && devtoolsReachable(cfg.AttachAddr) {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, "http://"+cfg.AttachAddr)
		attached = true
		logger.Info("attached to running browser", zap.String("addr", cfg.AttachAddr))
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("enable-automation", false),
			chromedp.Flag("lang", "zh-CN"),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
		logger.Info("launching headless browser")
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		allocCancel: allocCancel,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
		attached:    attached,
	}
	s.main = &Tab{sess: s, ctx: browserCtx, cancel: browserCancel}
	return s, nil
}

// Main returns the primary tab. Search and home navigation happen here.
func (s *Session) Main() *Tab {
	return s.main
}

// OpenTab creates a fresh tab in the same browser. The target is created
// lazily on the tab's first action.
func (s *Session) OpenTab() *Tab {
	ctx, cancel := chromedp.NewContext(s.main.ctx)
	return &Tab{sess: s, ctx: ctx, cancel: cancel}
}

// Attached reports whether the session took over a running browser instead
// of launching its own.
func (s *Session) Attached() bool {
	return s.attached
}

// Reset navigates the main tab back to the home page, the known-good state
// after a blocked page or a circuit breaker trip.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.main.Navigate(ctx, s.cfg.HomeURL); err != nil {
		return fmt.Errorf("reset to home: %w", err)
	}
	return nil
}

// Close tears down the browser context and the allocator.
func (s *Session) Close() {
	s.main.Close()
	s.allocCancel()
}

// devtoolsReachable probes the DevTools version endpoint with a short
// timeout.
func devtoolsReachable(addr string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/json/version")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
