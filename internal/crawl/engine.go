// Package crawl runs the keyword loop: search, extract, classify, persist.
// The loop is deliberately single-threaded; one browser session means one
// control thread.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/behavior"
	"github.com/Harris404/Mimic-Red/internal/browser"
	"github.com/Harris404/Mimic-Red/internal/classify"
	"github.com/Harris404/Mimic-Red/internal/config"
	"github.com/Harris404/Mimic-Red/internal/extract"
	"github.com/Harris404/Mimic-Red/internal/governor"
	"github.com/Harris404/Mimic-Red/internal/keywords"
	"github.com/Harris404/Mimic-Red/internal/metrics"
	"github.com/Harris404/Mimic-Red/internal/note"
	"github.com/Harris404/Mimic-Red/internal/storage"
)

// Tab is the page surface the engine hands to extraction, warmup, and
// blocked detection.
type Tab interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Eval(ctx context.Context, expr string, out any) error
	HTML(ctx context.Context) (string, error)
	ScrollBy(ctx context.Context, dy float64) error
	MouseMove(ctx context.Context, x, y float64) error
	VisibleText(ctx context.Context, limit int) (string, error)
	Close()
}

// Surface is the browser session as the engine sees it.
type Surface interface {
	Tab() Tab
	NewTab() Tab
	Reset(ctx context.Context) error
}

// Extractor produces search hits and note records from tabs.
type Extractor interface {
	CollectSearch(ctx context.Context, tab extract.Tab, keyword string, limit, rounds int) ([]note.Summary, error)
	FetchDetail(ctx context.Context, tab extract.Tab, sum note.Summary) (*note.Note, error)
}

// Governor paces the loop and absorbs failure streaks.
type Governor interface {
	Delay(ctx context.Context, class governor.OpClass)
	BreakerTripped() bool
	Cooldown(ctx context.Context)
	CheckBlocked(ctx context.Context, probe governor.TextProbe) bool
}

// Warmer performs the pre-search browse.
type Warmer interface {
	Warmup(ctx context.Context, page behavior.Page, homeURL string) error
}

// Deduper answers whether a note was already handled.
type Deduper interface {
	IsDuplicate(ctx context.Context, noteID string) bool
}

// Classifier scores a record before persistence.
type Classifier interface {
	Classify(n *note.Note) classify.Result
	FilterComments(comments []note.Comment, target int) ([]note.Comment, classify.FilterStats)
}

// ProgressStore checkpoints keyword completion.
type ProgressStore interface {
	Load() (map[string]struct{}, int)
	Save(done map[string]struct{}, dailyCount int) error
}

// Stats summarizes one run.
type Stats struct {
	KeywordsDone int
	Persisted    int
	Duplicates   int
	Videos       int
	LowQuality   int
	LowLikes     int
	Failures     int
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

// Engine owns one crawl invocation.
type Engine struct {
	cfg      config.CrawlConfig
	site     config.SiteConfig
	surface  Surface
	pipeline Extractor
	gov      Governor
	warmer   Warmer
	dedup    Deduper
	cls      Classifier
	sink     storage.Sink
	progress ProgressStore
	state    *governor.RunState

	batch  string
	rng    *rand.Rand
	sleep  Sleeper
	logger *zap.Logger
	stats  Stats
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Surface  Surface
	Pipeline Extractor
	Governor Governor
	Warmer   Warmer
	Dedup    Deduper
	Class    Classifier
	Sink     storage.Sink
	Progress ProgressStore
	State    *governor.RunState
}

// NewEngine builds an Engine. Each run is tagged with a fresh batch id.
func NewEngine(cfg config.CrawlConfig, site config.SiteConfig, deps Deps, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	state := deps.State
	if state == nil {
		state = &governor.RunState{}
	}
	return &Engine{
		cfg:      cfg,
		site:     site,
		surface:  deps.Surface,
		pipeline: deps.Pipeline,
		gov:      deps.Governor,
		warmer:   deps.Warmer,
		dedup:    deps.Dedup,
		cls:      deps.Class,
		sink:     deps.Sink,
		progress: deps.Progress,
		state:    state,
		batch:    uuid.NewString(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    timerSleep,
		logger:   logger,
	}
}

// Batch returns the run's batch id.
func (e *Engine) Batch() string {
	return e.batch
}

// Run executes the keyword loop to completion. Only a dead browser session
// or a canceled context ends the run early; everything else is absorbed.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	done, dailyCount := e.progress.Load()
	e.state.DailyCount = dailyCount

	queue := e.buildQueue(done)
	e.logger.Info("crawl starting",
		zap.String("batch", e.batch),
		zap.Int("keywords", len(queue)),
		zap.Int("resumed_daily_count", dailyCount),
	)

	if e.cfg.Warmup && len(queue) > 0 {
		if err := e.warmer.Warmup(ctx, e.surface.Tab(), e.site.HomeURL); err != nil {
			if errors.Is(err, browser.ErrSessionUnavailable) {
				return e.stats, fmt.Errorf("warmup: %w", err)
			}
			e.logger.Warn("warmup failed, continuing", zap.Error(err))
		}
	}

	for i, kw := range queue {
		if err := ctx.Err(); err != nil {
			break
		}
		if e.dailyLimitReached() {
			e.logger.Info("daily limit reached", zap.Int("daily_count", e.state.DailyCount))
			break
		}
		if i > 0 {
			e.governedDelay(ctx, governor.OpKeyword)
		}

		if err := e.crawlKeyword(ctx, kw); err != nil {
			e.checkpoint(done, kw)
			e.finalize(ctx)
			return e.stats, err
		}
		e.checkpoint(done, kw)
		metrics.ObserveKeywordDone()
		e.stats.KeywordsDone++

		// A longer breather after every third keyword.
		if (i+1)%3 == 0 && i != len(queue)-1 {
			rest := 30*time.Second + time.Duration(e.rng.Int63n(int64(30*time.Second)))
			e.logger.Info("keyword block rest", zap.Duration("rest", rest))
			e.sleep(ctx, rest)
		}
	}

	e.finalize(ctx)
	e.logger.Info("crawl finished",
		zap.String("batch", e.batch),
		zap.Int("keywords_done", e.stats.KeywordsDone),
		zap.Int("persisted", e.stats.Persisted),
		zap.Int("duplicates", e.stats.Duplicates),
		zap.Int("videos", e.stats.Videos),
		zap.Int("low_quality", e.stats.LowQuality),
		zap.Int("low_likes", e.stats.LowLikes),
		zap.Int("failures", e.stats.Failures),
	)
	return e.stats, nil
}

func (e *Engine) buildQueue(done map[string]struct{}) []string {
	kws := keywords.Normalize(e.cfg.Keywords)
	queue := make([]string, 0, len(kws))
	for _, kw := range kws {
		if _, skip := done[kw]; skip {
			continue
		}
		queue = append(queue, kw)
	}
	if e.cfg.Shuffle {
		queue = keywords.Shuffle(queue, e.rng)
	}
	return queue
}

// crawlKeyword handles one keyword end to end. A nil return means the
// keyword is finished, successfully or not; an error means the session is
// gone.
func (e *Engine) crawlKeyword(ctx context.Context, kw string) error {
	e.governedDelay(ctx, governor.OpSearch)

	main := e.surface.Tab()
	sums, err := e.pipeline.CollectSearch(ctx, main, kw, e.cfg.PerKeywordLimit, e.cfg.SearchRounds)
	if err != nil {
		if errors.Is(err, browser.ErrSessionUnavailable) {
			return fmt.Errorf("search %q: %w", kw, err)
		}
		e.state.RecordFailure()
		e.stats.Failures++
		e.logger.Warn("search failed", zap.String("keyword", kw), zap.Error(err))
		e.handleBlocked(ctx, main)
		return nil
	}
	e.logger.Info("search collected",
		zap.String("keyword", kw),
		zap.Int("hits", len(sums)),
	)

	for _, sum := range sums {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if e.dailyLimitReached() {
			return nil
		}

		if e.gov.BreakerTripped() {
			metrics.ObserveBreakerTrip()
			e.gov.Cooldown(ctx)
			e.resetHome(ctx)
		}
		if e.handleBlocked(ctx, main) {
			continue
		}

		if e.dedup.IsDuplicate(ctx, sum.NoteID) {
			e.stats.Duplicates++
			metrics.ObserveNoteSkipped("duplicate")
			continue
		}

		e.governedDelay(ctx, governor.OpDetail)

		if err := e.handleNote(ctx, kw, sum); err != nil {
			return err
		}
	}
	return nil
}

// handleNote fetches, gates, and persists one note.
func (e *Engine) handleNote(ctx context.Context, kw string, sum note.Summary) error {
	tab := e.surface.NewTab()
	defer tab.Close()

	n, err := e.pipeline.FetchDetail(ctx, tab, sum)
	switch {
	case errors.Is(err, extract.ErrVideoNote):
		e.stats.Videos++
		metrics.ObserveNoteSkipped("video")
		return nil

	case errors.Is(err, extract.ErrDetailUnavailable):
		// The partial record is persisted anyway so the note is not
		// refetched forever, but the miss still counts as a failure.
		e.state.RecordFailure()
		e.stats.Failures++
		e.persist(ctx, kw, n)
		return nil

	case errors.Is(err, browser.ErrSessionUnavailable):
		return fmt.Errorf("detail %s: %w", sum.NoteID, err)

	case err != nil:
		e.state.RecordFailure()
		e.stats.Failures++
		e.logger.Warn("detail failed", zap.String("note_id", sum.NoteID), zap.Error(err))
		return nil
	}

	if n.Body == "" {
		// Both extraction tiers came back empty. The record is still kept
		// so the note is not refetched, but the miss joins the failure
		// streak.
		e.state.RecordFailure()
		e.stats.Failures++
		e.persist(ctx, kw, n)
		return nil
	}
	e.state.ResetFailures()

	if n.LikeCount < e.cfg.MinLikes {
		e.stats.LowLikes++
		metrics.ObserveNoteSkipped("low_likes")
		return nil
	}

	if e.cfg.ClassifierGate {
		res := e.cls.Classify(n)
		if res.ShouldSkip {
			e.stats.LowQuality++
			metrics.ObserveNoteSkipped("low_quality")
			e.logger.Debug("note below quality gate",
				zap.String("note_id", n.NoteID),
				zap.Int("score", res.QualityScore),
				zap.String("reason", res.Reason),
			)
			return nil
		}
		filtered, fstats := e.cls.FilterComments(n.Comments, res.CommentTarget)
		n.Comments = filtered
		e.logger.Debug("comments filtered",
			zap.String("note_id", n.NoteID),
			zap.Int("kept", fstats.Kept),
			zap.Int("dropped", fstats.Filtered),
		)
	}

	e.persist(ctx, kw, n)
	return nil
}

// persist stamps provenance and writes the record. Sink failures are logged
// and skipped; they never stop the crawl.
func (e *Engine) persist(ctx context.Context, kw string, n *note.Note) {
	if n == nil {
		return
	}
	n.KeywordSource = kw
	n.CrawlBatch = e.batch

	if err := e.sink.SaveNote(ctx, n); err != nil {
		metrics.ObserveSinkError()
		e.logger.Error("persist failed", zap.String("note_id", n.NoteID), zap.Error(err))
		return
	}
	e.stats.Persisted++
	e.state.DailyCount++
	metrics.ObserveNotePersisted(string(n.TrafficTier))
	e.logger.Info("note persisted",
		zap.String("note_id", n.NoteID),
		zap.String("tier", string(n.TrafficTier)),
		zap.Int("comments", len(n.Comments)),
		zap.Int("daily_count", e.state.DailyCount),
	)
}

// handleBlocked probes the tab and, when blocked, resets to home. Reports
// whether a blocked state was handled.
func (e *Engine) handleBlocked(ctx context.Context, tab Tab) bool {
	if !e.gov.CheckBlocked(ctx, tab) {
		return false
	}
	metrics.ObserveBlocked()
	e.resetHome(ctx)
	return true
}

func (e *Engine) resetHome(ctx context.Context) {
	if err := e.surface.Reset(ctx); err != nil {
		e.logger.Warn("home reset failed", zap.Error(err))
	}
}

func (e *Engine) governedDelay(ctx context.Context, class governor.OpClass) {
	start := time.Now()
	e.gov.Delay(ctx, class)
	metrics.ObserveDelay(string(class), time.Since(start))
}

func (e *Engine) dailyLimitReached() bool {
	return e.cfg.DailyLimit > 0 && e.state.DailyCount >= e.cfg.DailyLimit
}

func (e *Engine) checkpoint(done map[string]struct{}, kw string) {
	done[kw] = struct{}{}
	if err := e.progress.Save(done, e.state.DailyCount); err != nil {
		e.logger.Warn("progress checkpoint failed", zap.Error(err))
	}
}

func (e *Engine) finalize(ctx context.Context) {
	if err := e.sink.Finalize(ctx); err != nil {
		e.logger.Error("sink finalize failed", zap.Error(err))
	}
}
