// Command edabot answers questions about tabular datasets by having an LLM
// write pandas code and running it.
//
// Usage:
//
//	edabot serve                          # HTTP API on server.listen_addr
//	edabot ask sales.csv "total by region --plot"
//	edabot chat sales.csv                 # interactive follow-up questions
//
// Configuration is read from edabot.toml (see --config) and EDABOT_*
// environment variables. Provider keys come from ANTHROPIC_API_KEY,
// GEMINI_API_KEY or OPENAI_API_KEY.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/config"
	"github.com/fwojciec/edabot/fs"
	edahttp "github.com/fwojciec/edabot/http"
	"github.com/fwojciec/edabot/imgur"
	"github.com/fwojciec/edabot/logger"
	"github.com/fwojciec/edabot/python"
)

const defaultConfigPath = "edabot.toml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys := apiKeys{
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
		Gemini:    os.Getenv("GEMINI_API_KEY"),
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
	}
	if err := newRootCmd(keys, os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "edabot: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by subcommands, filled in before any of them run.
type app struct {
	configPath string
	debug      bool

	cfg    config.Config
	keys   apiKeys
	logger *zap.Logger
}

func newRootCmd(keys apiKeys, getenv func(string) string) *cobra.Command {
	a := &app{keys: keys}

	cmd := &cobra.Command{
		Use:           "edabot",
		Short:         "Answer questions about tabular data with LLM-written pandas code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(getenv, cmd.Flags().Changed("config"))
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "Path to TOML config file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(a), newAskCmd(a), newChatCmd(a))
	return cmd
}

// load reads the config file, applies the environment and flags, and builds
// the logger. The default config file may be absent.
func (a *app) load(getenv func(string) string, explicit bool) error {
	cfg, err := config.Load(a.configPath, !explicit)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.New(cfg.Debug)
	return nil
}

// pipeline wires the execution stages around provider and loader.
func (a *app) pipeline(provider edabot.Provider, loader edabot.DatasetLoader) *edabot.Pipeline {
	cfg := a.cfg
	interp := python.New(
		python.WithPython(cfg.Python.Path),
		python.WithTimeout(cfg.Python.Timeout.Duration),
		python.WithMaxOutputBytes(cfg.Python.MaxOutputBytes),
		python.WithLogger(a.logger),
	)

	var exporter edabot.ChartExporter
	if cfg.Imgur.ClientID != "" {
		exporter = imgur.New(cfg.Imgur.ClientID,
			imgur.WithEndpoint(cfg.Imgur.Endpoint),
			imgur.WithLogger(a.logger))
	} else {
		a.logger.Info("imgur.client_id not set: charts will not be exported")
	}

	return edabot.NewPipeline(loader, provider,
		edabot.NewEngine(interp, exporter, edabot.WithEngineLogger(a.logger)),
		edabot.WithModel(cfg.LLM.Model),
		edabot.WithMaxTokens(cfg.LLM.MaxTokens),
		edabot.WithTemperature(cfg.LLM.Temperature),
		edabot.WithCompletionTimeout(cfg.LLM.Timeout.Duration),
		edabot.WithPreviewRows(cfg.Dataset.PreviewRows),
		edabot.WithResponseLimit(cfg.ResponseLimit),
		edabot.WithLogger(a.logger),
	)
}

// localLoader reads local files and falls back to HTTP for URLs.
func (a *app) localLoader() edabot.DatasetLoader {
	return fs.NewLoader(
		fs.WithMaxBytes(a.cfg.Dataset.MaxBytes),
		fs.WithFallback(edahttp.NewLoader(
			edahttp.WithMaxBytes(a.cfg.Dataset.MaxBytes),
			edahttp.WithLogger(a.logger),
		)),
	)
}
