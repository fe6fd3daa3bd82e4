// internal/scraper/orchestrator.go
package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/valpere/ChartMiner/internal/browser"
	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/monitoring"
	"github.com/valpere/ChartMiner/internal/utils"
)

// Job is one detail URL to fetch, tagged with the catalog it came from.
type Job struct {
	URL      string
	Category dataset.Category
}

// FetchSummary tallies terminal outcomes for one orchestrator run.
type FetchSummary struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Partial   int            `json:"partial"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Retries   int            `json:"retries"`
	ByTier    map[string]int `json:"by_tier"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
}

// CheckpointFunc persists an autosave snapshot. Implementations must be safe
// to call from worker goroutines.
type CheckpointFunc func(records []*dataset.Record) error

// Orchestrator drives the bounded worker pool that turns jobs into records.
// Retries, checkpointing and resume live here; the per-URL tier walk lives in
// the Fetcher.
type Orchestrator struct {
	cfg        config.FetchConfig
	client     *HTTPClient
	factory    browser.Factory // nil disables the render tier
	checkpoint CheckpointFunc  // nil disables autosave
	metrics    *monitoring.Metrics
	logger     utils.Logger

	mu            sync.Mutex
	sinceAutosave int
	summary       FetchSummary
}

// NewOrchestrator builds an orchestrator. The factory and checkpoint hooks
// are optional.
func NewOrchestrator(cfg config.FetchConfig, client *HTTPClient, factory browser.Factory, checkpoint CheckpointFunc, metrics *monitoring.Metrics, logger utils.Logger) *Orchestrator {
	if logger == nil {
		logger = utils.NewComponentLogger("orchestrator")
	}
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		factory:    factory,
		checkpoint: checkpoint,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run fetches every job not already present in resume and returns the merged
// dataset plus a summary. A non-nil resume dataset seeds the results, so a
// restarted run only pays for the URLs its checkpoint is missing. On context
// cancellation the records completed so far are returned alongside ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, jobs []Job, resume *dataset.Dataset) (*dataset.Dataset, *FetchSummary, error) {
	results := resume
	if results == nil {
		results = dataset.New()
	}

	o.mu.Lock()
	o.summary = FetchSummary{ByTier: make(map[string]int)}
	o.sinceAutosave = 0
	o.mu.Unlock()

	pending := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if results.Contains(j.URL) {
			o.mu.Lock()
			o.summary.Skipped++
			o.mu.Unlock()
			continue
		}
		pending = append(pending, j)
	}
	o.logger.Infof("fetching %d URLs (%d already in checkpoint) with %d workers", len(pending), len(jobs)-len(pending), o.cfg.Workers)

	start := time.Now()
	jobCh := make(chan Job)
	var wg sync.WaitGroup

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			o.worker(ctx, id, jobCh, results)
		}(i)
	}

	for _, j := range pending {
		select {
		case jobCh <- j:
		case <-ctx.Done():
			// Stop feeding; workers drain what they already hold.
			goto drained
		}
	}
drained:
	close(jobCh)
	wg.Wait()

	o.mu.Lock()
	o.summary.Elapsed = time.Since(start)
	summary := o.summary
	o.mu.Unlock()

	o.logger.Infof("fetch complete: %d succeeded, %d failed, %d skipped in %s",
		summary.Succeeded, summary.Failed, summary.Skipped, summary.Elapsed.Round(time.Millisecond))

	return results, &summary, ctx.Err()
}

// worker owns at most one browser session for its lifetime and processes
// jobs until the channel closes or the context is cancelled.
func (o *Orchestrator) worker(ctx context.Context, id int, jobs <-chan Job, results *dataset.Dataset) {
	var render Tier
	if o.factory != nil {
		session, err := o.factory()
		if err != nil {
			o.logger.Warnf("worker %d: browser session unavailable, degrading to HTTP tiers: %v", id, err)
		} else {
			defer session.Close()
			render = NewRenderTier(session)
		}
	}
	fetcher := NewFetcher(NewTierChain(o.client, render), o.logger)

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		o.process(ctx, fetcher, job, results)
	}
}

// process runs the retry state machine for one job and records its terminal
// outcome exactly once.
func (o *Orchestrator) process(ctx context.Context, fetcher *Fetcher, job Job, results *dataset.Dataset) {
	o.metrics.InFlight(1)
	defer o.metrics.InFlight(-1)

	var lastErr error
	for attempt := 0; ; attempt++ {
		o.metrics.FetchAttempt(string(job.Category))

		began := time.Now()
		rec, err := fetcher.Fetch(ctx, job.URL)
		o.metrics.ObserveFetch(string(job.Category), time.Since(began))

		if err == nil {
			rec.Category = job.Category
			o.commit(rec, results)
			return
		}
		lastErr = err

		switch utils.Classify(err) {
		case utils.ClassTransient:
			if attempt >= o.cfg.MaxRetries {
				o.logger.Warnf("%s: retry budget exhausted after %d attempts: %v", job.URL, attempt+1, err)
				o.fail(job, lastErr, results)
				return
			}
			delay := utils.Backoff(attempt, o.cfg.RetryBaseDelay, o.cfg.RetryMaxDelay)
			o.logger.Debugf("%s: transient failure (attempt %d), retrying in %s: %v", job.URL, attempt+1, delay, err)
			o.mu.Lock()
			o.summary.Retries++
			o.mu.Unlock()
			o.metrics.Retry()

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				o.fail(job, lastErr, results)
				return
			}

		default:
			o.fail(job, lastErr, results)
			return
		}
	}
}

// commit adds a successful record and triggers autosave on the boundary.
func (o *Orchestrator) commit(rec *dataset.Record, results *dataset.Dataset) {
	if err := results.Add(rec); err != nil {
		o.logger.Warnf("dropping duplicate result for %s: %v", rec.URL, err)
		return
	}

	o.metrics.FetchResult(string(rec.Status))
	o.metrics.TierHit(string(rec.Tier))

	o.mu.Lock()
	o.summary.Attempted++
	o.summary.Succeeded++
	if rec.Status == dataset.StatusPartial {
		o.summary.Partial++
	}
	o.summary.ByTier[string(rec.Tier)]++
	o.sinceAutosave++
	flush := o.checkpoint != nil && o.sinceAutosave >= o.cfg.AutosaveEvery
	if flush {
		o.sinceAutosave = 0
	}
	o.mu.Unlock()

	if flush {
		if err := o.checkpoint(results.Snapshot()); err != nil {
			// A failed autosave must not fail the run.
			o.logger.Errorf("checkpoint write failed: %v", err)
		} else {
			o.metrics.CheckpointWritten()
			o.logger.Debugf("checkpoint written at %d records", results.Len())
		}
	}
}

// fail records a terminal failure as a first-class failure record.
func (o *Orchestrator) fail(job Job, cause error, results *dataset.Dataset) {
	reasons := []string{cause.Error()}
	var fetchErr *utils.FetchError
	if errors.As(cause, &fetchErr) {
		reasons = fetchErr.Reasons()
	}

	rec := dataset.NewFailureRecord(job.URL, job.Category, reasons)
	if err := results.Add(rec); err != nil {
		o.logger.Warnf("dropping duplicate failure for %s: %v", job.URL, err)
		return
	}

	o.metrics.FetchResult(string(dataset.StatusFailed))

	o.mu.Lock()
	o.summary.Attempted++
	o.summary.Failed++
	o.mu.Unlock()
}
