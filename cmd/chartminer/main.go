// cmd/chartminer/main.go - chart acquisition and cleaning pipeline CLI
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valpere/ChartMiner/internal/browser"
	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/monitoring"
	"github.com/valpere/ChartMiner/internal/output"
	"github.com/valpere/ChartMiner/internal/pipeline"
	"github.com/valpere/ChartMiner/internal/scraper"
	"github.com/valpere/ChartMiner/internal/utils"
)

var (
	version = "dev"

	configFile    = flag.String("config", "", "path to YAML configuration (defaults apply when omitted)")
	limit         = flag.Int("limit", 0, "override items per catalog")
	workers       = flag.Int("workers", 0, "override concurrent fetch workers")
	autosaveEvery = flag.Int("autosave-every", 0, "override successes between checkpoints")
	fastMode      = flag.Bool("fast", false, "skip the browser render tier")
	noResume      = flag.Bool("no-resume", false, "ignore an existing checkpoint")
	outputFile    = flag.String("output", "", "override the final JSON path")
	logLevel      = flag.String("log-level", "", "debug, info, warn, or error")
	showVersion   = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("chartminer %s\n", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chartminer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel)).WithField("component", "chartminer")
	logger.Infof("starting %s (%d catalogs, limit %d, %d workers)",
		cfg.Name, len(cfg.Catalogs), cfg.Fetch.Limit, cfg.Fetch.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics()
		server := monitoring.NewServer(metrics, cfg.Metrics.Address, logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Stop(shutdownCtx)
		}()
	}

	client := scraper.NewHTTPClient(scraper.ClientConfig{
		Timeout:    cfg.Fetch.RequestTimeout,
		UserAgents: cfg.Fetch.UserAgents,
		RateLimit:  cfg.Fetch.RateLimit,
		RateBurst:  cfg.Fetch.RateBurst,
	})

	var factory browser.Factory
	if !cfg.Fetch.FastMode {
		factory = browser.NewFactory(browserConfig(cfg))
	}

	checkpointer := output.NewCheckpointer(cfg.Output.CheckpointFile, cfg.Name, logger)

	var resume *dataset.Dataset
	if !*noResume {
		resume, err = checkpointer.Load()
		if err != nil {
			return fmt.Errorf("cannot resume: %w", err)
		}
	}

	// Stage 1: discover detail URLs from every catalog.
	collectStart := time.Now()
	collector := scraper.NewLinkCollector(client, factory, logger)
	var jobs []scraper.Job
	seen := make(map[string]struct{})
	for _, catalog := range cfg.Catalogs {
		links, err := collector.Collect(ctx, catalog.URL, cfg.Fetch.Limit)
		if err != nil {
			return fmt.Errorf("link collection failed for %s: %w", catalog.URL, err)
		}
		logger.Infof("collected %d links from %s", len(links), catalog.URL)
		for _, link := range links {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			jobs = append(jobs, scraper.Job{URL: link, Category: dataset.Category(catalog.Category)})
		}
	}
	metrics.ObserveStage("collect", time.Since(collectStart))
	if len(jobs) == 0 {
		return fmt.Errorf("no detail links discovered")
	}

	// Stage 2: fetch details through the tier chain.
	fetchStart := time.Now()
	orch := scraper.NewOrchestrator(cfg.Fetch, client, factory, checkpointer.Save, metrics, logger)
	results, fetchSummary, runErr := orch.Run(ctx, jobs, resume)
	metrics.ObserveStage("fetch", time.Since(fetchStart))
	if runErr != nil {
		// Save what we have so the next run resumes instead of refetching.
		if err := checkpointer.Save(results.Snapshot()); err != nil {
			logger.Errorf("final checkpoint failed: %v", err)
		}
		return fmt.Errorf("fetch interrupted: %w", runErr)
	}

	results.Freeze()
	records := results.Records()

	// Stage 3: clean and flag.
	cleanStart := time.Now()
	cleanReport := pipeline.NewCleaner(cfg.Cleaning, logger).Clean(records)
	metrics.ObserveStage("clean", time.Since(cleanStart))

	detectStart := time.Now()
	anomalyReport := pipeline.NewDetector(cfg.Anomaly, metrics, logger).Detect(records)
	metrics.ObserveStage("detect", time.Since(detectStart))

	// Stage 4: export.
	exportStart := time.Now()
	payload := &output.Payload{
		Summary: output.BuildSummary(cfg.Name, records, fetchSummary, cleanReport, anomalyReport),
		Records: records,
	}
	if err := output.NewManager(cfg.Output, logger).Export(ctx, payload); err != nil {
		return err
	}
	metrics.ObserveStage("export", time.Since(exportStart))

	logger.Infof("done: %d records (%d failed) in %s",
		payload.Summary.Total, fetchSummary.Failed, fetchSummary.Elapsed.Round(time.Millisecond))
	return nil
}

// loadConfig reads the configuration file (or defaults), applies flag
// overrides, and validates the result. Validation failures are fatal before
// any fetch begins.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if *configFile != "" {
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if *limit > 0 {
		cfg.Fetch.Limit = *limit
	}
	if *workers > 0 {
		cfg.Fetch.Workers = *workers
	}
	if *autosaveEvery > 0 {
		cfg.Fetch.AutosaveEvery = *autosaveEvery
	}
	if *fastMode {
		cfg.Fetch.FastMode = true
	}
	if *outputFile != "" {
		cfg.Output.File = *outputFile
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func browserConfig(cfg *config.Config) *browser.Config {
	bc := browser.DefaultConfig()
	bc.Headless = cfg.Browser.Headless
	if cfg.Browser.Timeout > 0 {
		bc.Timeout = cfg.Browser.Timeout
	}
	if cfg.Browser.ViewportWidth > 0 {
		bc.ViewportWidth = cfg.Browser.ViewportWidth
	}
	if cfg.Browser.ViewportHeight > 0 {
		bc.ViewportHeight = cfg.Browser.ViewportHeight
	}
	bc.WaitSelector = cfg.Browser.WaitSelector
	bc.DisableImages = cfg.Browser.DisableImages
	if cfg.Browser.UserAgent != "" {
		bc.UserAgent = cfg.Browser.UserAgent
	}
	return bc
}
