package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/config"
	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/internal/metrics"
	"github.com/luoxifan/agentgraph/llm"
	"github.com/luoxifan/agentgraph/providers"
	"github.com/luoxifan/agentgraph/tools"
)

var rootCmd = &cobra.Command{
	Use:   "agentgraph",
	Short: "agentgraph runs agent flows from the command line",
	Long: `agentgraph wires agents into action-routed graphs and executes them.
It ships an interactive chat over a flow, direct tool execution, and
management of persisted runs.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
}

// loadConfig reads the config file named by --config, falling back to
// defaults plus environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.NewLoader().WithConfigPath(path).Load()
}

// buildLogger constructs the process logger from config.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	return config.BuildLogger(cfg.Log)
}

// buildProvider constructs the configured LLM backend. The kind flag, when
// set, overrides the config.
func buildProvider(cfg *config.Config, kind string, logger *zap.Logger) (llm.Provider, error) {
	if kind == "" {
		kind = cfg.Provider.Kind
	}
	client := cfg.Provider.ClientConfig()
	switch kind {
	case "openai":
		return providers.NewOpenAIProvider(client, logger), nil
	case "ollama":
		return providers.NewOllamaProvider(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q (want openai or ollama)", kind)
	}
}

// engineOptions assembles the flow options for a command: the configured
// input mode and step timeout, the process logger, and a Prometheus collector
// on reg (the default registerer when nil).
func engineOptions(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) ([]flow.Option, error) {
	opts, err := cfg.Flow.EngineOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		flow.WithLogger(logger),
		flow.WithMetrics(metrics.NewCollector("agentgraph", reg, logger)),
	)
	return opts, nil
}

// builtinRegistry returns a registry loaded with the bundled tools.
func builtinRegistry(logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger)
	if err := tools.RegisterMathTools(registry); err != nil {
		return nil, err
	}
	if err := tools.RegisterFileTools(registry); err != nil {
		return nil, err
	}
	if err := tools.RegisterSearchTools(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
