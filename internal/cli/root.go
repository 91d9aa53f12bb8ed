// Package cli implements the recall CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mindwell/recall/internal/agent"
	"github.com/mindwell/recall/internal/config"
	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/provider"
	"github.com/mindwell/recall/internal/retrieval"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/internal/storage/memory"
	"github.com/mindwell/recall/internal/storage/postgres"
	"github.com/mindwell/recall/internal/storage/sqlite"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Privacy-routed personal memory",
	Long: "recall stores personal memories across short-term, long-term, and episodic tiers,\n" +
		"retrieves them for queries, and routes generation so personal content stays on device.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file (default: RECALL_* environment only)")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func openStore(cfg *config.Config) storage.Store {
	switch cfg.Storage.Engine {
	case "memory":
		return memory.NewStore()
	case "postgres":
		embedder := newEmbedder(cfg)
		store, err := postgres.NewStore(cfg.Storage.PostgresDSN,
			postgres.WithEmbedder(embedder.Embed, embedder.Model()))
		if err != nil {
			exitErr("open postgres store", err)
		}
		return store
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			exitErr("create data directory", err)
		}
		store, err := sqlite.NewStore(filepath.Join(cfg.Storage.DataPath, "recall.db"))
		if err != nil {
			exitErr("open sqlite store", err)
		}
		return store
	}
}

// buildProviders assembles the provider set from the configuration. The
// local Ollama path is always present; cloud providers join when their API
// keys are configured.
func buildProviders(cfg *config.Config) []provider.GenerationProvider {
	providers := []provider.GenerationProvider{
		must(provider.New(provider.Settings{
			Kind:    "ollama",
			BaseURL: cfg.Provider.OllamaURL,
			Model:   cfg.Provider.OllamaModel,
		})),
	}
	if cfg.Provider.OpenAIAPIKey != "" {
		providers = append(providers, must(provider.New(provider.Settings{
			Kind:              "openai",
			APIKey:            cfg.Provider.OpenAIAPIKey,
			Model:             cfg.Provider.OpenAIModel,
			AllowPersonalData: cfg.Provider.AllowCloudPersonalData,
		})))
	}
	if cfg.Provider.AnthropicAPIKey != "" {
		providers = append(providers, must(provider.New(provider.Settings{
			Kind:              "anthropic",
			APIKey:            cfg.Provider.AnthropicAPIKey,
			Model:             cfg.Provider.AnthropicModel,
			AllowPersonalData: cfg.Provider.AllowCloudPersonalData,
		})))
	}
	return providers
}

func newEmbedder(cfg *config.Config) *provider.OllamaEmbedder {
	return provider.NewOllamaEmbedder(provider.OllamaEmbedderConfig{
		BaseURL: cfg.Provider.OllamaURL,
		Model:   cfg.Provider.OllamaEmbedModel,
	})
}

func buildRouter(cfg *config.Config, store storage.Store) *agent.Router {
	analyzer := privacy.MustNewAnalyzer()

	// The vector path only exists on the postgres engine with pgvector
	// present; everyone else ranks over the full note scan.
	var engineOpts []retrieval.Option
	if pg, ok := store.(*postgres.Store); ok && pg.VectorSearchAvailable() {
		if embeddings, err := postgres.NewEmbeddingProvider(pg); err == nil {
			engineOpts = append(engineOpts, retrieval.WithVectorSearch(embeddings, newEmbedder(cfg).Embed))
		}
	}
	engine := retrieval.NewEngine(store, analyzer, engineOpts...)

	var opts []agent.Option
	if cfg.Provider.Preferred != "" {
		opts = append(opts, agent.WithPreferredProvider(cfg.Provider.Preferred))
	}
	return agent.NewRouter(store, analyzer, engine, buildProviders(cfg), opts...)
}

func must(p provider.GenerationProvider, err error) provider.GenerationProvider {
	if err != nil {
		exitErr("configure provider", err)
	}
	return p
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
