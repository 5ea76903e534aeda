package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-scout/internal/aggregator"
	"github.com/spigell/opportunity-scout/internal/ai"
	"github.com/spigell/opportunity-scout/internal/ai/gemini"
	"github.com/spigell/opportunity-scout/internal/automation"
	"github.com/spigell/opportunity-scout/internal/db"
	"github.com/spigell/opportunity-scout/internal/filtering"
	"github.com/spigell/opportunity-scout/internal/goal"
	"github.com/spigell/opportunity-scout/internal/logger"
	"github.com/spigell/opportunity-scout/internal/opportunity"
	"github.com/spigell/opportunity-scout/internal/secrets"
	"github.com/spigell/opportunity-scout/internal/store"
)

const (
	providerGemini = "gemini"
	// Read when neither automation.api-key nor a key file is configured.
	automationAPIKeyEnv = "AUTOMATION_API_KEY"
	geminiAPIKeyEnv     = "GEMINI_API_KEY"
)

// pipeline is one search followed by filtering and an optional import.
type pipeline struct {
	config     *Config
	sources    []goal.Source
	aggregator *aggregator.Aggregator
	filters    *filtering.Filtering
	importer   store.Importer
	closers    []func()
	logger     *zap.Logger
}

func newPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	sources, err := goal.ParseSources(config.Sources)
	if err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}

	agg, err := newAggregator(config, sources, logger)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		config:     config,
		sources:    sources,
		aggregator: agg,
		filters:    prepareFilters(ctx, config, logger),
		logger:     logger,
	}

	importer, closers, err := newImporter(ctx, config.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("building importer: %w", err)
	}
	p.importer = importer
	p.closers = closers

	for _, status := range p.filters.Describe() {
		logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	return p, nil
}

// run searches all sources and applies the filters.
func (p *pipeline) run(ctx context.Context) (*opportunity.Opportunities, error) {
	p.logger.Info("starting the search",
		zap.Strings("sources", sourceNames(p.sources)),
		zap.String("keywords", p.config.Search.Keywords()),
		zap.String("location", p.config.Search.Place()),
	)

	result, err := p.aggregator.Search(ctx, p.config.Search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	for _, failure := range result.Failures {
		p.logger.Warn("source failed", zap.String(logger.FieldSource, string(failure.Source)), zap.String("reason", failure.String()))
	}
	p.logger.Info("getting opportunities",
		zap.Int("count", result.Opportunities.Len()),
		zap.Int("runs", result.Runs),
		zap.Int("payloads", result.Payloads),
	)

	if result.Opportunities.Len() == 0 {
		return result.Opportunities, nil
	}

	filtered, err := p.filters.RunFilters(ctx, result.Opportunities)
	if err != nil {
		return nil, fmt.Errorf("filtering: %w", err)
	}
	return filtered, nil
}

// importResults stores the list and records it in the exclude file so the
// next search skips it.
func (p *pipeline) importResults(ctx context.Context, list *opportunity.Opportunities) error {
	if p.importer == nil {
		p.logger.Info("skipping import", zap.String("reason", "store driver is "+store.DriverNone))
		return nil
	}
	if list.Len() == 0 {
		return nil
	}

	stats, err := p.importer.Import(ctx, store.Batch{
		Source:        strings.Join(sourceNames(p.sources), ","),
		UserID:        p.config.UserID,
		Opportunities: list,
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	p.logger.Info("imported opportunities",
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
	)

	return appendToExcludeFile(p.config.ExcludeFile, list)
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func newAggregator(config *Config, sources []goal.Source, logger *zap.Logger) (*aggregator.Aggregator, error) {
	ac := config.Automation
	if ac == nil {
		return nil, errors.New("automation section is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "automation api key",
		Value: ac.APIKey,
		File:  ac.APIKeyFile,
		Env:   automationAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set automation.api-key-file or AUTOMATION_API_KEY_FILE)", err)
	}

	client, err := automation.New(ac.BaseURL, apiKey, ac.RequestTimeout, logger)
	if err != nil {
		return nil, err
	}

	var stealth []goal.Source
	if len(ac.StealthSources) > 0 {
		if stealth, err = goal.ParseSources(ac.StealthSources); err != nil {
			return nil, fmt.Errorf("parsing stealth sources: %w", err)
		}
	}

	var proxy *automation.ProxyConfig
	if ac.Proxy != nil && ac.Proxy.Enabled {
		proxy = &automation.ProxyConfig{Enabled: true, CountryCode: strings.ToUpper(strings.TrimSpace(ac.Proxy.CountryCode))}
	}

	return aggregator.New(client, aggregator.Config{
		Sources:        sources,
		Limit:          config.Limit,
		BrowserProfile: automation.ParseProfile(ac.BrowserProfile),
		StealthSources: stealth,
		Proxy:          proxy,
		AgentMemory:    ac.AgentMemory,
		Integration:    ac.Integration,
		RunTimeout:     ac.RunTimeout,
		Concurrency:    ac.Concurrency,
	}, logger)
}

func prepareFilters(ctx context.Context, config *Config, logger *zap.Logger) *filtering.Filtering {
	fc := config.Filters
	if fc == nil {
		fc = &FiltersConfig{}
	}

	aiFilter, aiErr := prepareAIFilter(ctx, config.AI, logger, config.ExcludeFile)
	if aiErr != nil {
		logger.Warn("skipping AI filter", zap.Error(aiErr))
		aiFilter = filtering.NewAIFit(&filtering.AIFitFilterConfig{Enabled: true}, nil)
	}

	f := filtering.New([]filtering.Filter{
		filtering.NewSeen(config.ExcludeFile),
		filtering.NewOrganizations(fc.ExcludeOrganizations),
		filtering.NewRedFlags(fc.RedFlags),
		filtering.NewMinimumScore(fc.MinimumScore),
		aiFilter,
	}, logger)

	if aiErr != nil {
		f.DisableByName("ai_fit", aiErr.Error())
	}

	return f
}

func prepareAIFilter(ctx context.Context, config *AIConfig, logger *zap.Logger, excludeFile string) (filtering.Filter, error) {
	if config == nil || !config.Enabled {
		return filtering.NewAIFit(&filtering.AIFitFilterConfig{
			Enabled: false,
		}, nil), nil
	}

	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}

	profile, err := secrets.Load(secrets.Source{
		Name:  "candidate profile",
		Value: config.Profile,
		File:  config.ProfileFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.profile or ai.profile-file)", err)
	}

	matcher, err := newAIMatcher(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("building ai matcher: %w", err)
	}

	return filtering.NewAIFit(&filtering.AIFitFilterConfig{
		Enabled:         config.Enabled,
		Provider:        config.Provider,
		MinimumFitScore: config.MinimumFitScore,
		Model:           config.Gemini.Model,
		MaxRetries:      config.Gemini.MaxRetries,
	}, &filtering.AIFitFilterDeps{
		Logger:   logger,
		Matcher:  matcher,
		Profile:  profile,
		SeenFile: excludeFile,
	}), nil
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != providerGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	aiLogger := logger.WithAIFields(log, providerGemini, cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		aiLogger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	return gemini.NewMatcher(generator, minScore, cfg.Gemini.MaxLogLength,
		aiLogger.With(zap.Float64("minimum_fit_score", minScore))), nil
}

// newImporter returns a nil importer for the none driver.
func newImporter(ctx context.Context, cfg *StoreConfig, logger *zap.Logger) (store.Importer, []func(), error) {
	if cfg == nil {
		cfg = &StoreConfig{}
	}

	var (
		importer store.Importer
		closers  []func()
	)

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", store.DriverNone:
		return nil, nil, nil
	case store.DriverFile:
		fileImporter, err := store.NewFileImporter(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		importer = fileImporter
	case store.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)

		pgImporter, err := store.NewPostgresImporter(pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		importer = pgImporter
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		return importer, closers, nil
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return nil, nil, err
	}
	closers = append(closers, func() { _ = rdb.Close() })

	notifier, err := store.NewNotifier(importer, rdb, cfg.Channel, logger)
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return nil, nil, err
	}

	return notifier, closers, nil
}

func appendToExcludeFile(path string, list *opportunity.Opportunities) error {
	if strings.TrimSpace(path) == "" || list.Len() == 0 {
		return nil
	}

	seen, err := opportunity.GetSeenFromFile(path)
	if err != nil {
		return err
	}

	seen.Append(list.ToSeen(time.Now()))

	return seen.ToFile(path)
}

func sourceNames(sources []goal.Source) []string {
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, string(src))
	}
	return names
}
