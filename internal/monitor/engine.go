package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Xylon2/xylositemonitor/internal/config"
)

// Runner executes one probe task. The network-facing implementation lives in
// internal/probe; tests substitute their own.
type Runner interface {
	Run(ctx context.Context, task Task) Result
}

// Engine drives a full monitoring run: expansion, a concurrent first pass,
// one full re-run for each site that failed anything, and per-site collection
// of the final results.
type Engine struct {
	runner      Runner
	concurrency int
	retryDelay  time.Duration
	logger      *zap.SugaredLogger
}

const (
	// DefaultConcurrency bounds the probe worker pool.
	DefaultConcurrency = 8
	// DefaultRetryDelay is the pause before re-running failed sites, giving
	// transient blips a chance to clear.
	DefaultRetryDelay = 10 * time.Second
)

func NewEngine(runner Runner, concurrency int, retryDelay time.Duration, logger *zap.SugaredLogger) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		runner:      runner,
		concurrency: concurrency,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

type job struct {
	idx  int
	task Task
}

type indexed struct {
	idx int
	res Result
}

// Run executes every check for the given sites and returns one SiteRun per
// site, in declaration order.
func (e *Engine) Run(ctx context.Context, sites []config.Site, opts config.Options) ([]SiteRun, *Stats, error) {
	tasks, err := Expand(sites, opts)
	if err != nil {
		return nil, nil, err
	}

	stats := NewStats(int64(len(tasks)))
	e.logger.Infow("starting run", "sites", len(sites), "checks", len(tasks))

	results := make([]Result, len(tasks))
	all := make([]job, len(tasks))
	for i, t := range tasks {
		all[i] = job{idx: i, task: t}
	}

	if err := e.runPass(ctx, all, results, stats); err != nil {
		return nil, stats, err
	}

	// Any site with at least one failure has all of its tasks re-run once,
	// in full. The retry replaces the first pass wholesale for that site.
	retryJobs, retriedSites := e.retrySet(tasks, results)
	if len(retryJobs) > 0 {
		e.logger.Infow("re-testing failed sites", "sites", len(retriedSites), "checks", len(retryJobs))
		select {
		case <-ctx.Done():
			return nil, stats, ctx.Err()
		case <-time.After(e.retryDelay):
		}
		if err := e.runPass(ctx, retryJobs, results, stats); err != nil {
			return nil, stats, err
		}
	}

	for _, r := range results {
		stats.Record(r)
	}

	runs := collectSites(sites, tasks, results, retriedSites)
	for range retriedSites {
		stats.IncrementSitesRetested()
	}

	e.logger.Infow("run complete",
		"passed", stats.GetPassed(),
		"failed", stats.GetFailed(),
		"sites retested", stats.GetSitesRetested(),
	)
	return runs, stats, nil
}

// runPass pushes jobs through the worker pool. Workers write each result back
// to its task's canonical slot, so arrival order never matters.
func (e *Engine) runPass(ctx context.Context, jobs []job, results []Result, stats *Stats) error {
	taskChan := make(chan job)
	resultChan := make(chan indexed, e.concurrency)

	workers := e.concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, taskChan, resultChan, stats, done)
	}

	go func() {
		defer close(taskChan)
		for _, j := range jobs {
			select {
			case taskChan <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for i := 0; i < workers; i++ {
			<-done
		}
		close(resultChan)
	}()

	for r := range resultChan {
		results[r.idx] = r.res
	}

	return ctx.Err()
}

func (e *Engine) worker(ctx context.Context, tasks <-chan job, out chan<- indexed, stats *Stats, done chan<- struct{}) {
	defer func() {
		done <- struct{}{}
	}()

	for j := range tasks {
		r := e.runner.Run(ctx, j.task)
		stats.IncrementProcessed()
		e.logger.Debugw("check complete",
			"site", j.task.Site,
			"url", j.task.URL,
			"action", string(j.task.Action),
			"succeeded", r.Succeeded,
			"detail", r.Detail,
		)
		select {
		case out <- indexed{idx: j.idx, res: r}:
		case <-ctx.Done():
			return
		}
	}
}

// retrySet returns the jobs for every task belonging to a failed site, and
// the set of site names being retried.
func (e *Engine) retrySet(tasks []Task, results []Result) ([]job, map[string]bool) {
	failed := make(map[string]bool)
	for _, r := range results {
		if !r.Succeeded {
			failed[r.Task.Site] = true
		}
	}
	if len(failed) == 0 {
		return nil, nil
	}

	var jobs []job
	for i, t := range tasks {
		if failed[t.Site] {
			jobs = append(jobs, job{idx: i, task: t})
		}
	}
	return jobs, failed
}

// collectSites groups final results per site, preserving both site
// declaration order and task expansion order.
func collectSites(sites []config.Site, tasks []Task, results []Result, retried map[string]bool) []SiteRun {
	byName := make(map[string]*SiteRun, len(sites))
	runs := make([]SiteRun, 0, len(sites))
	for _, s := range sites {
		runs = append(runs, SiteRun{Name: s.Name, Retested: retried[s.Name]})
		byName[s.Name] = &runs[len(runs)-1]
	}
	for i, t := range tasks {
		sr := byName[t.Site]
		sr.Results = append(sr.Results, results[i])
	}
	return runs
}
