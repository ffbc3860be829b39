package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/debate"
	"github.com/fintel-ai/tribunal/internal/evidence"
	"github.com/fintel-ai/tribunal/internal/intel"
	"github.com/fintel-ai/tribunal/internal/narrative"
	"github.com/fintel-ai/tribunal/internal/store"
	anthropicpkg "github.com/fintel-ai/tribunal/pkg/anthropic"
	"github.com/fintel-ai/tribunal/pkg/perplexity"
)

// appEnv holds all initialized services needed by the investigate, batch,
// and serve commands.
type appEnv struct {
	Store   store.Store
	Monitor *alerts.Monitor
	Queue   *alerts.Queue

	prosecutor *debate.Prosecutor
	skeptic    *debate.Skeptic
	judge      *debate.Judge
}

// NewController builds a fresh debate controller. Controllers carry a
// per-run observer, so each investigation (and each streaming HTTP
// request) gets its own.
func (env *appEnv) NewController() *debate.Controller {
	return debate.NewController(env.prosecutor, env.skeptic, env.judge, cfg.Policy)
}

// Close releases resources held by the environment.
func (env *appEnv) Close() {
	if env.Store != nil {
		_ = env.Store.Close()
	}
}

// initEnv sets up the store, the narrative generators, the intel
// services, and the three debate agents. Callers should defer
// env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	fixture, err := intel.LoadFixture(cfg.Intel.FixturePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	graph := intel.NewGraph(fixture)
	docs := intel.NewDocIndex(fixture)
	memory, err := intel.NewMemoryBank(fixture, cfg.Intel.ProfileCacheSize)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Info("intel services seeded",
		zap.String("fixture", cfg.Intel.FixturePath),
		zap.Int("entities", len(fixture.Entities)),
		zap.Int("documents", len(fixture.Documents)),
	)

	if cfg.Anthropic.Key == "" {
		_ = st.Close()
		return nil, eris.New("TRIBUNAL_ANTHROPIC_KEY is required")
	}

	prosecutorGen := roleGenerator("prosecutor")
	skepticGen := roleGenerator("skeptic")
	judgeGen := roleGenerator("judge")

	prosGatherer := evidence.NewProsecutorGatherer(graph, memory, cfg.Policy)
	skepGatherer := evidence.NewSkepticGatherer(docs, memory, cfg.Policy)

	return &appEnv{
		Store:      st,
		Monitor:    alerts.NewMonitor(cfg.Alerts),
		Queue:      alerts.NewQueue(),
		prosecutor: debate.NewProsecutor(prosecutorGen, prosGatherer, cfg.Policy.MaxRounds),
		skeptic:    debate.NewSkeptic(skepticGen, skepGatherer, cfg.Policy.MaxRounds),
		judge:      debate.NewJudge(judgeGen, cfg.Policy),
	}, nil
}

// roleGenerator builds the narrative chain for one debate role: Anthropic
// primary, Perplexity secondary when a key is configured.
func roleGenerator(role string) narrative.Generator {
	primary := narrative.NewAnthropicGenerator(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		narrative.AnthropicOptions{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         cfg.Narrative.MaxTokens,
			Timeout:           time.Duration(cfg.Narrative.TimeoutSecs) * time.Second,
			RequestsPerMinute: cfg.Narrative.RequestsPerMinute,
			Role:              role,
		},
	)

	if cfg.Perplexity.Key == "" {
		return primary
	}

	secondary := narrative.NewPerplexityGenerator(
		perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		),
		narrative.PerplexityOptions{
			Model:             cfg.Perplexity.Model,
			Timeout:           time.Duration(cfg.Narrative.TimeoutSecs) * time.Second,
			RequestsPerMinute: cfg.Narrative.RequestsPerMinute,
		},
	)
	return narrative.NewFallbackGenerator(primary, secondary)
}

// initStore creates the persistence backend selected by config.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
