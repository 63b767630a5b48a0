package crawl

import (
	"context"

	"github.com/Harris404/Mimic-Red/internal/browser"
)

// sessionSurface adapts the concrete browser session to the Surface
// interface the engine consumes.
type sessionSurface struct {
	s *browser.Session
}

// WrapSession exposes a browser session as an engine Surface.
func WrapSession(s *browser.Session) Surface {
	return sessionSurface{s: s}
}

func (a sessionSurface) Tab() Tab {
	return a.s.Main()
}

func (a sessionSurface) NewTab() Tab {
	return a.s.OpenTab()
}

func (a sessionSurface) Reset(ctx context.Context) error {
	return a.s.Reset(ctx)
}
