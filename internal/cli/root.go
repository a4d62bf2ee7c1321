// Package cli contains all the command-line interface logic for the application,
// powered by the cobra library. It defines the root command, subcommands,
// and their respective flags.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootEnvFile holds the value of the root command's persistent env-file flag.
var rootEnvFile string

// rootCmd represents the base command when called without any subcommands.
// It serves as the entry point and parent for all other commands.
var rootCmd = &cobra.Command{
	Use:   "esbench",
	Short: "A tool to benchmark the append throughput of an event store.",
	Long: `A tool to benchmark the append throughput of an event store.
It publishes batches of synthetic events from many concurrent runners and reports
the achieved throughput for every test parameter set.`,
	// Failures are logged by the commands themselves.
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute is the primary entry point for the CLI application, called by main.go.
//
// It sets up a single, root cancellable context and wires it up to respond
// to OS interruption signals (like Ctrl+C or SIGTERM). This context is then passed down
// to all cobra commands, so an interrupted benchmark stops before its next batch.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	// Cancel the context upon receiving a signal.
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootEnvFile, "env-file", ".env",
		"File of environment variables to load before reading the configuration.")
}
