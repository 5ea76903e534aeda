package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/opportunity-scout/internal/automation"
	"github.com/spigell/opportunity-scout/internal/goal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type fakeRunner struct {
	mu       sync.Mutex
	start    func(src goal.Source) (string, error)
	status   func(runID string, call int) (*automation.RunStatus, error)
	requests map[goal.Source]automation.Request
	calls    map[string]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		start: func(src goal.Source) (string, error) {
			return "run-" + string(src), nil
		},
		requests: make(map[goal.Source]automation.Request),
		calls:    make(map[string]int),
	}
}

func sourceOf(url string) goal.Source {
	switch {
	case strings.Contains(url, "linkedin.com"):
		return goal.LinkedIn
	case strings.Contains(url, "google.com"):
		return goal.GoogleJobs
	default:
		return goal.Indeed
	}
}

func (f *fakeRunner) Start(_ context.Context, r automation.Request) (string, error) {
	src := sourceOf(r.URL)
	f.mu.Lock()
	f.requests[src] = r
	f.mu.Unlock()
	return f.start(src)
}

func (f *fakeRunner) Status(_ context.Context, runID string) (*automation.RunStatus, error) {
	f.mu.Lock()
	f.calls[runID]++
	call := f.calls[runID]
	f.mu.Unlock()
	return f.status(runID, call)
}

func (f *fakeRunner) callsFor(runID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[runID]
}

func completed(runID string, result any) *automation.RunStatus {
	return &automation.RunStatus{RunID: runID, Status: "COMPLETED", Result: result}
}

func newTestAggregator(t *testing.T, runner Runner, cfg Config) (*Aggregator, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	a, err := New(runner, cfg, zap.New(core))
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}

	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a.now = clock.Now
	a.wait = clock.Wait
	return a, logs
}

func titles(r *Result) []string {
	out := make([]string, 0, r.Opportunities.Len())
	for _, o := range r.Opportunities.Items {
		out = append(out, o.Title)
	}
	return out
}

func TestSearchPartialSourceFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.start = func(src goal.Source) (string, error) {
		if src == goal.Indeed {
			return "", errors.New("quota exceeded")
		}
		return "run-" + string(src), nil
	}
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		switch runID {
		case "run-linkedin":
			return completed(runID, map[string]any{
				"results": []any{
					map[string]any{"title": "Go Developer", "company": "Acme", "url": "https://acme.example/1", "match_score": 70},
				},
			}), nil
		default:
			return completed(runID, `{"results":[{"title":"SRE","company":"Globex","confidence":"high"}]}`), nil
		}
	}

	a, _ := newTestAggregator(t, runner, Config{})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(titles(result), ","); got != "SRE,Go Developer" {
		t.Fatalf("unexpected ranking: %s", got)
	}
	if result.Runs != 2 || result.Payloads != 2 {
		t.Fatalf("unexpected counters: runs=%d payloads=%d", result.Runs, result.Payloads)
	}
	if len(result.Failures) != 1 || result.Failures[0].Source != goal.Indeed {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if result.Opportunities.Items[0].Source != string(goal.GoogleJobs) {
		t.Fatalf("expected the source to be kept, got %q", result.Opportunities.Items[0].Source)
	}
}

func TestSearchAllStartsFail(t *testing.T) {
	runner := newFakeRunner()
	runner.start = func(src goal.Source) (string, error) {
		return "", fmt.Errorf("%s rejected: quota exceeded", src)
	}

	a, _ := newTestAggregator(t, runner, Config{})
	_, err := a.Search(context.Background(), goal.Criteria{})
	if !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected start reasons in error, got %q", err.Error())
	}
}

func TestSearchNoPayloads(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		switch runID {
		case "run-linkedin":
			return &automation.RunStatus{RunID: runID, Status: "failed", Error: "captcha wall"}, nil
		case "run-google":
			return &automation.RunStatus{RunID: runID, Status: "CANCELLED"}, nil
		default:
			return nil, errors.New("connection reset")
		}
	}

	a, _ := newTestAggregator(t, runner, Config{})
	_, err := a.Search(context.Background(), goal.Criteria{})
	if !errors.Is(err, ErrNoPayloads) {
		t.Fatalf("expected ErrNoPayloads, got %v", err)
	}
	for _, want := range []string{"captcha wall", "run was cancelled", "connection reset"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestSearchStringifiedPayload(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		if runID != "run-linkedin" {
			return &automation.RunStatus{RunID: runID, Status: "FAILED"}, nil
		}
		return completed(runID, "Here you go:\n```json\n{\"data\":{\"results\":[{\"title\":\"A\",\"company\":\"X\"},{\"title\":\"B\",\"company\":\"Y\"}]}}\n```"), nil
	}

	a, _ := newTestAggregator(t, runner, Config{})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Opportunities.Len() != 2 {
		t.Fatalf("expected 2 opportunities, got %v", titles(result))
	}
	if len(result.Failures) != 2 || result.Failures[0].Reason != "run failed without details" {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
}

func TestPollWaitsForPayload(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, call int) (*automation.RunStatus, error) {
		switch {
		case call == 1:
			return &automation.RunStatus{RunID: runID, Status: "PENDING"}, nil
		case call < 4:
			return &automation.RunStatus{RunID: runID, Status: "completed"}, nil
		default:
			return completed(runID, []any{map[string]any{"title": "Go Developer", "company": "Acme"}}), nil
		}
	}

	a, _ := newTestAggregator(t, runner, Config{Sources: []goal.Source{goal.LinkedIn}})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Opportunities.Len() != 1 {
		t.Fatalf("expected a single opportunity")
	}
	if calls := runner.callsFor("run-linkedin"); calls != 4 {
		t.Fatalf("expected 4 status calls, got %d", calls)
	}
}

func TestPollGivesUpOnMissingPayload(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		if runID == "run-linkedin" {
			return &automation.RunStatus{RunID: runID, Status: "COMPLETED"}, nil
		}
		return completed(runID, []any{map[string]any{"title": "Go Developer", "company": "Acme"}}), nil
	}

	a, logs := newTestAggregator(t, runner, Config{Sources: []goal.Source{goal.LinkedIn, goal.Indeed}})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("a run without payload must not fail the search: %v", err)
	}
	if calls := runner.callsFor("run-linkedin"); calls != MaxEmptyResultPolls {
		t.Fatalf("expected %d status calls, got %d", MaxEmptyResultPolls, calls)
	}
	if result.Opportunities.Len() != 1 {
		t.Fatalf("expected only the indeed listing")
	}
	if len(result.Failures) != 1 || result.Failures[0].RunID != "run-linkedin" {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if logs.FilterMessage("automation run produced no result").Len() != 1 {
		t.Fatalf("expected a warning for the empty run")
	}

	only, _ := newTestAggregator(t, runner, Config{Sources: []goal.Source{goal.LinkedIn}})
	_, err = only.Search(context.Background(), goal.Criteria{})
	if !errors.Is(err, ErrNoPayloads) || !strings.Contains(err.Error(), "without a result payload") {
		t.Fatalf("expected a diagnosable error, got %v", err)
	}
}

func TestPollTimesOut(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		return &automation.RunStatus{RunID: runID, Status: "RUNNING"}, nil
	}

	a, _ := newTestAggregator(t, runner, Config{Sources: []goal.Source{goal.Indeed}})
	_, err := a.Search(context.Background(), goal.Criteria{})
	if !errors.Is(err, ErrNoPayloads) {
		t.Fatalf("expected ErrNoPayloads, got %v", err)
	}
	if !strings.Contains(err.Error(), "run-indeed timed out") {
		t.Fatalf("expected the run id in the timeout, got %q", err.Error())
	}

	// 24 short waits cover the first minute, 32 medium ones the next four and
	// 15 long ones pass the twelve minute ceiling.
	if calls := runner.callsFor("run-indeed"); calls != 24+32+15+1 {
		t.Fatalf("unexpected number of polls: %d", calls)
	}
}

func TestPollStopsOnCancelledContext(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		return &automation.RunStatus{RunID: runID, Status: "RUNNING"}, nil
	}

	a, _ := newTestAggregator(t, runner, Config{Sources: []goal.Source{goal.Indeed}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Search(ctx, goal.Criteria{})
	if !errors.Is(err, ErrNoPayloads) || !strings.Contains(err.Error(), context.Canceled.Error()) {
		t.Fatalf("expected a cancellation reason, got %v", err)
	}
}

func TestSearchDeduplicatesAcrossSources(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		switch runID {
		case "run-linkedin":
			return completed(runID, []any{
				map[string]any{"title": "Go Developer", "company": "Acme", "url": "https://acme.example/1", "match_score": 70},
				map[string]any{"title": "SRE", "company": "Globex", "location": "Berlin"},
			}), nil
		case "run-google":
			return completed(runID, []any{
				map[string]any{"title": "go developer", "company": "ACME", "url": "https://acme.example/1", "match_score": 90},
				map[string]any{"title": "SRE", "company": "Globex"},
			}), nil
		default:
			return completed(runID, []any{}), nil
		}
	}

	a, _ := newTestAggregator(t, runner, Config{})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Opportunities.Len() != 2 {
		t.Fatalf("expected duplicates to collapse, got %v", titles(result))
	}

	best := result.Opportunities.Items[0]
	if best.Score() != 90 || best.Source != string(goal.GoogleJobs) {
		t.Fatalf("expected the higher score to win, got %+v", best)
	}
	sre := result.Opportunities.Items[1]
	if sre.Location != "Berlin" || sre.Source != string(goal.LinkedIn) {
		t.Fatalf("expected the more complete record to win, got %+v", sre)
	}
}

func TestSearchRanksAndCaps(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		items := make([]any, 0, 5)
		for i, score := range []int{40, 95, 0, 80, 60} {
			job := map[string]any{"title": fmt.Sprintf("%s-%d", runID, i), "company": "Acme"}
			if score > 0 {
				job["match_score"] = score
			}
			items = append(items, job)
		}
		return completed(runID, map[string]any{"jobs": items}), nil
	}

	a, _ := newTestAggregator(t, runner, Config{Sources: []goal.Source{goal.LinkedIn}, Limit: 3})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(titles(result), ","); got != "run-linkedin-1,run-linkedin-3,run-linkedin-4" {
		t.Fatalf("unexpected ranking: %s", got)
	}
}

func TestSearchDeduplicatesRunIDs(t *testing.T) {
	runner := newFakeRunner()
	runner.start = func(goal.Source) (string, error) { return "shared", nil }
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		return completed(runID, []any{map[string]any{"title": "Go Developer"}}), nil
	}

	a, _ := newTestAggregator(t, runner, Config{})
	result, err := a.Search(context.Background(), goal.Criteria{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Runs != 1 || runner.callsFor("shared") != 1 {
		t.Fatalf("expected a single poll of the shared run, runs=%d", result.Runs)
	}
}

func TestRequestOptions(t *testing.T) {
	runner := newFakeRunner()
	runner.status = func(runID string, _ int) (*automation.RunStatus, error) {
		return completed(runID, []any{}), nil
	}

	a, _ := newTestAggregator(t, runner, Config{
		StealthSources: []goal.Source{goal.LinkedIn},
		Proxy:          &automation.ProxyConfig{Enabled: true, CountryCode: "DE"},
		AgentMemory:    true,
		Integration:    "opportunity-scout",
		Concurrency:    1,
	})
	if _, err := a.Search(context.Background(), goal.Criteria{TitleKeywords: "golang"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	linkedin := runner.requests[goal.LinkedIn]
	if linkedin.BrowserProfile != automation.ProfileStealth {
		t.Fatalf("expected stealth profile for linkedin, got %q", linkedin.BrowserProfile)
	}
	indeed := runner.requests[goal.Indeed]
	if indeed.BrowserProfile != automation.ProfileLite {
		t.Fatalf("expected lite profile for indeed, got %q", indeed.BrowserProfile)
	}
	if indeed.ProxyConfig == nil || indeed.ProxyConfig.CountryCode != "DE" {
		t.Fatalf("expected proxy config, got %+v", indeed.ProxyConfig)
	}
	if indeed.FeatureFlags == nil || !indeed.FeatureFlags.EnableAgentMemory {
		t.Fatalf("expected agent memory flag")
	}
	if indeed.Integration != "opportunity-scout" || !strings.Contains(indeed.URL, "golang") {
		t.Fatalf("unexpected request: %+v", indeed)
	}
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    time.Duration
	}{
		{0, 2500 * time.Millisecond},
		{59 * time.Second, 2500 * time.Millisecond},
		{time.Minute, 7500 * time.Millisecond},
		{4*time.Minute + 59*time.Second, 7500 * time.Millisecond},
		{5 * time.Minute, 30 * time.Second},
		{11 * time.Minute, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := PollInterval(tt.elapsed); got != tt.want {
			t.Fatalf("PollInterval(%s) = %s, want %s", tt.elapsed, got, tt.want)
		}
	}
}

func TestSummarizeCapsReasons(t *testing.T) {
	failures := []Failure{
		{Source: goal.LinkedIn, Reason: "a"},
		{Source: goal.GoogleJobs, RunID: "r2", Reason: "b"},
		{Source: goal.Indeed, Reason: "c"},
		{Source: goal.Indeed, Reason: "d"},
	}

	got := summarize(failures, maxReportedFailures)
	if got != "linkedin: a; google (run r2): b; indeed: c" {
		t.Fatalf("unexpected summary: %q", got)
	}
	if summarize(nil, 3) != "no failure details" {
		t.Fatalf("unexpected empty summary")
	}
}

func TestNewRequiresRunner(t *testing.T) {
	if _, err := New(nil, Config{}, nil); err == nil {
		t.Fatalf("expected an error without a runner")
	}
}
