package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/shivanshkc/esbench/internal/config"
	"github.com/shivanshkc/esbench/pkg/bench"
	"github.com/shivanshkc/esbench/pkg/event"
	"github.com/shivanshkc/esbench/pkg/publish"
)

var (
	runStream, runConnection, runParams, runEventType, runLogLevel string
	runFailFast                                                    bool
)

// runCmd runs every configured parameter set against the event store, one
// after the other, and prints a summary table at the end.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the throughput benchmark.",
	Long: `Run the throughput benchmark.
Every setting is read from the environment first and can be overridden by a flag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootEnvFile)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), err)
			return err
		}

		applyRunFlags(cmd, &cfg)
		if message := validateRunConfig(cfg); message != "" {
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return errors.New(message)
		}

		logger := buildLogger(cfg.LogLevel, cmd.OutOrStdout())
		return runBenchmark(cmd, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runStream, "stream", "s", "", "Stream to publish to. (env "+config.EnvStream+")")
	runCmd.Flags().StringVarP(&runConnection, "connection", "c", "",
		"Connection string: esdb://, esdb+discover://, kafka://brokers or memory://. (env "+config.EnvConnectionString+")")
	runCmd.Flags().StringVarP(&runParams, "params", "p", "",
		"Comma-separated SIZExCOUNTxPARALLEL parameter sets. (env "+config.EnvParams+")")
	runCmd.Flags().StringVar(&runEventType, "event-type", "", "Type name of the published events. (env "+config.EnvEventType+")")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "One of debug, info, warn, error. (env "+config.EnvLogLevel+")")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false,
		"Stop the other runners of a test as soon as one fails. (env "+config.EnvFailFast+")")
}

// applyRunFlags overrides the configuration with the flags set on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("stream") {
		cfg.Stream = runStream
	}
	if flags.Changed("connection") {
		cfg.ConnectionString = runConnection
	}
	if flags.Changed("params") {
		cfg.Params = runParams
	}
	if flags.Changed("event-type") {
		cfg.EventType = runEventType
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(runLogLevel)
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = runFailFast
	}
}

// runBenchmark connects to the event store and runs all parameter sets.
// The configuration must be valid.
func runBenchmark(cmd *cobra.Command, cfg config.Config, logger *slog.Logger) error {
	ctx := cmd.Context()
	logger.Info("starting up")

	sets, err := cfg.TestParams()
	if err != nil {
		logger.Error("invalid parameter sets", "error", err)
		return err
	}

	client, err := publish.Dial(ctx, cfg.ConnectionString, logger)
	if err != nil {
		logger.Error("failed to connect to eventstore", "error", err)
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close eventstore client", "error", err)
		}
	}()

	runID := uuid.NewString()
	logger.Debug("benchmark run", "id", runID, "stream", cfg.Stream, "sets", len(sets))

	reporter := &bench.TableReporter{}
	harness := &bench.Harness{
		Publisher: client,
		Factory:   event.NewFactory(cfg.EventType, runID),
		Stream:    cfg.Stream,
		Policy:    cfg.Policy(),
		Logger:    logger,
		Reporter:  reporter,
	}

	_, err = harness.Run(ctx, sets)
	reporter.Render(cmd.OutOrStdout())

	if err != nil {
		logger.Error("benchmark failed", "error", err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), text.FgGreen.Sprint("Benchmark complete."))
	return nil
}

// buildLogger returns the logger handed to every component of a run.
func buildLogger(level string, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}
