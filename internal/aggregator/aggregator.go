// Package aggregator runs one automation job per source, waits for all of
// them and merges what they found into a single ranked list.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/opportunity-scout/internal/automation"
	"github.com/spigell/opportunity-scout/internal/discovery"
	"github.com/spigell/opportunity-scout/internal/goal"
	"github.com/spigell/opportunity-scout/internal/logger"
	"github.com/spigell/opportunity-scout/internal/normalize"
	"github.com/spigell/opportunity-scout/internal/opportunity"
	"github.com/spigell/opportunity-scout/internal/utils"
)

const (
	// MaxEmptyResultPolls is how many COMPLETED observations without a payload
	// are tolerated before the run is returned as it is.
	MaxEmptyResultPolls = 6
	DefaultRunTimeout   = 12 * time.Minute

	maxReportedFailures = 3
)

var (
	ErrNoRuns     = errors.New("no automation run could be started")
	ErrNoPayloads = errors.New("no automation run returned a result")
)

// Runner is the automation boundary. *automation.Client implements it.
type Runner interface {
	Start(ctx context.Context, r automation.Request) (string, error)
	Status(ctx context.Context, runID string) (*automation.RunStatus, error)
}

type Config struct {
	Sources []goal.Source
	// Limit caps both the listings requested per source and the final list.
	Limit          int
	BrowserProfile automation.BrowserProfile
	// StealthSources always run with the stealth profile.
	StealthSources []goal.Source
	Proxy          *automation.ProxyConfig
	AgentMemory    bool
	Integration    string
	RunTimeout     time.Duration
	// Concurrency bounds parallel starts and polls. Zero means one goroutine per run.
	Concurrency int
}

// Failure is a start or run problem for one source.
type Failure struct {
	Source goal.Source
	RunID  string
	Reason string
}

func (f Failure) String() string {
	if f.RunID != "" {
		return fmt.Sprintf("%s (run %s): %s", f.Source, f.RunID, f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Source, f.Reason)
}

type Result struct {
	Opportunities *opportunity.Opportunities
	Failures      []Failure
	Runs          int
	Payloads      int
}

type Aggregator struct {
	runner  Runner
	cfg     Config
	builder *goal.Builder
	logger  *zap.Logger

	now  func() time.Time
	wait func(context.Context, time.Duration) error
}

type run struct {
	source goal.Source
	id     string
}

type payload struct {
	source goal.Source
	result any
}

func New(runner Runner, cfg Config, log *zap.Logger) (*Aggregator, error) {
	if runner == nil {
		return nil, errors.New("automation runner is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = append([]goal.Source(nil), goal.DefaultSources...)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = goal.DefaultLimit
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.BrowserProfile == "" {
		cfg.BrowserProfile = automation.ProfileLite
	}

	return &Aggregator{
		runner:  runner,
		cfg:     cfg,
		builder: goal.NewBuilder(cfg.Limit),
		logger:  log,
		now:     time.Now,
		wait:    utils.WaitFor,
	}, nil
}

// PollInterval grows with the time a run has been in progress.
func PollInterval(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < time.Minute:
		return 2500 * time.Millisecond
	case elapsed < 5*time.Minute:
		return 7500 * time.Millisecond
	default:
		return 30 * time.Second
	}
}

// Search starts a run per configured source, waits for every run to settle and
// returns the merged, deduplicated and ranked opportunities. Individual source
// problems are reported in Result.Failures; an error is returned only when no
// run could be started or none produced a payload.
func (a *Aggregator) Search(ctx context.Context, criteria goal.Criteria) (*Result, error) {
	runs, failures := a.startRuns(ctx, criteria)
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRuns, summarize(failures, len(failures)))
	}
	a.logger.Info("automation runs started", zap.Int("runs", len(runs)), zap.Int("failed", len(failures)))

	payloads, pollFailures := a.pollRuns(ctx, runs)
	failures = append(failures, pollFailures...)
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPayloads, summarize(failures, maxReportedFailures))
	}

	jobs := make([]normalize.Job, 0)
	for _, p := range payloads {
		records := discovery.Discover(p.result)
		found := normalize.Jobs(records)
		for i := range found {
			found[i].Source = string(p.source)
		}
		a.logger.Debug("payload processed",
			zap.String(logger.FieldSource, string(p.source)),
			zap.Int("records", len(records)),
			zap.Int("jobs", len(found)),
		)
		jobs = append(jobs, found...)
	}

	merged := normalize.Dedupe(jobs)
	ranked := normalize.Rank(merged, a.cfg.Limit)

	list := opportunity.New()
	for _, job := range ranked {
		list.Items = append(list.Items, opportunity.FromJob(job))
	}

	if list.Len() == 0 {
		a.logger.Warn("automation runs returned no recognizable listings", zap.Int("payloads", len(payloads)))
	}
	a.logger.Info("search completed",
		zap.Int("found", len(jobs)),
		zap.Int("unique", len(merged)),
		zap.Int("returned", list.Len()),
	)

	return &Result{
		Opportunities: list,
		Failures:      failures,
		Runs:          len(runs),
		Payloads:      len(payloads),
	}, nil
}

func (a *Aggregator) startRuns(ctx context.Context, criteria goal.Criteria) ([]run, []Failure) {
	sources := a.cfg.Sources
	ids := make([]string, len(sources))
	errs := make([]error, len(sources))

	g := a.group()
	for i, src := range sources {
		g.Go(func() error {
			ids[i], errs[i] = a.runner.Start(ctx, a.request(criteria, src))
			return nil
		})
	}
	_ = g.Wait()

	var (
		runs     []run
		failures []Failure
	)
	seen := make(map[string]struct{}, len(sources))
	for i, src := range sources {
		if errs[i] != nil {
			a.logger.Warn("starting automation run failed",
				zap.String(logger.FieldSource, string(src)),
				zap.Error(errs[i]),
			)
			failures = append(failures, Failure{Source: src, Reason: errs[i].Error()})
			continue
		}
		if _, ok := seen[ids[i]]; ok {
			continue
		}
		seen[ids[i]] = struct{}{}
		runs = append(runs, run{source: src, id: ids[i]})
	}

	return runs, failures
}

func (a *Aggregator) pollRuns(ctx context.Context, runs []run) ([]payload, []Failure) {
	statuses := make([]*automation.RunStatus, len(runs))
	errs := make([]error, len(runs))

	g := a.group()
	for i, r := range runs {
		g.Go(func() error {
			statuses[i], errs[i] = a.poll(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	var (
		payloads []payload
		failures []Failure
	)
	for i, r := range runs {
		log := logger.WithRunFields(a.logger, string(r.source), r.id)
		reason := ""

		switch status := statuses[i]; {
		case errs[i] != nil:
			reason = errs[i].Error()
		case status.State() == automation.StateCompleted && status.HasResult():
			payloads = append(payloads, payload{source: r.source, result: status.Result})
			continue
		case status.State() == automation.StateCompleted:
			reason = "run completed without a result payload"
		case status.State() == automation.StateCancelled:
			reason = firstNonEmpty(status.Error, "run was cancelled")
		default:
			reason = firstNonEmpty(status.Error, "run failed without details")
		}

		log.Warn("automation run produced no result", zap.String("reason", reason))
		failures = append(failures, Failure{Source: r.source, RunID: r.id, Reason: reason})
	}

	return payloads, failures
}

// poll checks one run until it is terminal, gives up waiting for its payload
// or exceeds the run timeout.
func (a *Aggregator) poll(ctx context.Context, r run) (*automation.RunStatus, error) {
	log := logger.WithRunFields(a.logger, string(r.source), r.id)
	started := a.now()
	empty := 0

	for {
		status, err := a.runner.Status(ctx, r.id)
		if err != nil {
			return nil, fmt.Errorf("checking run %s: %w", r.id, err)
		}

		switch status.State() {
		case automation.StateCompleted:
			if status.HasResult() {
				return status, nil
			}
			empty++
			if empty >= MaxEmptyResultPolls {
				return status, nil
			}
		case automation.StateFailed, automation.StateCancelled:
			return status, nil
		default:
			empty = 0
		}

		elapsed := a.now().Sub(started)
		if elapsed > a.cfg.RunTimeout {
			return nil, fmt.Errorf("automation run %s timed out after %s", r.id, a.cfg.RunTimeout)
		}

		interval := PollInterval(elapsed)
		log.Debug("run is not finished",
			zap.String("status", string(status.State())),
			zap.Duration("elapsed", elapsed),
			zap.Duration("next_poll", interval),
		)
		if err := a.wait(ctx, interval); err != nil {
			return nil, fmt.Errorf("waiting for run %s: %w", r.id, err)
		}
	}
}

func (a *Aggregator) request(criteria goal.Criteria, src goal.Source) automation.Request {
	g := a.builder.Build(criteria, src)

	req := automation.Request{
		URL:            g.URL,
		Goal:           g.Text,
		BrowserProfile: a.cfg.BrowserProfile,
		ProxyConfig:    a.cfg.Proxy,
		Integration:    a.cfg.Integration,
	}
	for _, stealth := range a.cfg.StealthSources {
		if stealth == src {
			req.BrowserProfile = automation.ProfileStealth
		}
	}
	if a.cfg.AgentMemory {
		req.FeatureFlags = &automation.FeatureFlags{EnableAgentMemory: true}
	}

	return req
}

func (a *Aggregator) group() *errgroup.Group {
	g := new(errgroup.Group)
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}
	return g
}

func summarize(failures []Failure, limit int) string {
	if len(failures) == 0 {
		return "no failure details"
	}
	if limit > 0 && len(failures) > limit {
		failures = failures[:limit]
	}

	reasons := make([]string, 0, len(failures))
	for _, f := range failures {
		reasons = append(reasons, f.String())
	}
	return strings.Join(reasons, "; ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
