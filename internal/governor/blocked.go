package governor

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TextProbe exposes the visible text of the current page.
type TextProbe interface {
	VisibleText(ctx context.Context, limit int) (string, error)
}

// Markers the site renders when it has flagged the session.
var blockedMarkers = []string{
	"验证",
	"安全检查",
	"操作频繁",
	"请稍后再试",
}

const probeLimit = 500

// CheckBlocked probes the page for anti-automation markers. When one is
// found it records the event, serves a 120-240s penalty sleep, and reports
// true; the caller then re-navigates the session to the home page. A probe
// error is treated as not blocked.
func (g *Governor) CheckBlocked(ctx context.Context, probe TextProbe) bool {
	text, err := probe.VisibleText(ctx, probeLimit)
	if err != nil {
		g.logger.Debug("blocked probe failed", zap.Error(err))
		return false
	}

	marker := ""
	for _, m := range blockedMarkers {
		if strings.Contains(text, m) {
			marker = m
			break
		}
	}
	if marker == "" {
		return false
	}

	g.state.BlockedCount++
	g.state.RecordFailure()
	penalty := g.uniform(120*time.Second, 240*time.Second)
	g.logger.Warn("blocked state detected",
		zap.String("marker", marker),
		zap.Int("blocked_count", g.state.BlockedCount),
		zap.Duration("penalty", penalty),
	)
	g.sleep(ctx, penalty)
	return true
}
