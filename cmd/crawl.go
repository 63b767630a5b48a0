package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harris404/Mimic-Red/internal/behavior"
	"github.com/Harris404/Mimic-Red/internal/browser"
	"github.com/Harris404/Mimic-Red/internal/classify"
	"github.com/Harris404/Mimic-Red/internal/config"
	"github.com/Harris404/Mimic-Red/internal/crawl"
	"github.com/Harris404/Mimic-Red/internal/dedup"
	"github.com/Harris404/Mimic-Red/internal/extract"
	"github.com/Harris404/Mimic-Red/internal/governor"
	"github.com/Harris404/Mimic-Red/internal/logging"
	"github.com/Harris404/Mimic-Red/internal/metrics"
	"github.com/Harris404/Mimic-Red/internal/progress"
	"github.com/Harris404/Mimic-Red/internal/storage"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [keywords...]",
		Short: "Run the keyword crawl",
		Long: `Runs the crawl loop over the configured keywords, or over the
keywords given as arguments. Progress is checkpointed after every keyword,
so an interrupted run resumes where it left off for the rest of the day.`,
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Crawl.Keywords = args
	}
	if len(cfg.Crawl.Keywords) == 0 {
		return fmt.Errorf("no keywords: set crawl.keywords or pass them as arguments")
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	selectors, err := config.LoadSelectors(cfg.Selectors)
	if err != nil {
		logger.Warn("selector overrides unreadable, using defaults", zap.Error(err))
		selectors = config.DefaultSelectors()
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
		go metrics.Serve(ctx, cfg.Metrics.Addr, logger)
	}

	session, err := browser.NewSession(ctx, browser.Config{
		AttachAddr:        cfg.Browser.AttachAddr,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.Browser.NavTimeout,
		RequestsPerMin:    cfg.Browser.RequestsPerMin,
		HomeURL:           cfg.Site.HomeURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("browser session: %w", err)
	}
	defer session.Close()

	sink, err := storage.NewSink(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage sink: %w", err)
	}

	state := &governor.RunState{}
	engine := crawl.NewEngine(cfg.Crawl, cfg.Site, crawl.Deps{
		Surface:  crawl.WrapSession(session),
		Pipeline: extract.NewPipeline(selectors, cfg.Site.HomeURL, cfg.Site.SearchBase, logger),
		Governor: governor.New(state, logger),
		Warmer:   behavior.New(logger),
		Dedup:    dedup.New(sink, logger),
		Class:    classify.New(),
		Sink:     sink,
		Progress: progress.NewStore(cfg.Progress.File),
		State:    state,
	}, logger)

	logger.Info("run configured",
		zap.String("batch", engine.Batch()),
		zap.Int("keywords", len(cfg.Crawl.Keywords)),
		zap.String("storage", cfg.Storage.Format),
		zap.Bool("attached", session.Attached()),
	)

	stats, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}
	logger.Info("run complete",
		zap.Int("keywords_done", stats.KeywordsDone),
		zap.Int("persisted", stats.Persisted),
		zap.Int("failures", stats.Failures),
	)
	return nil
}
