package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deepgram/catgpt/internal/config"
	"github.com/deepgram/catgpt/pkg/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:   "catgpt",
		Short: "Terminal client for the CatGPT agent backend and the expense tracker",
		Long: `catgpt chats with the CatGPT backend, runs the agent flows it plans and
streams their progress, and keeps a small in-memory expense list.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				os.Setenv("LOG_LEVEL", "DEBUG")
				logger.Init(os.Stderr)
			}

			path, explicit := cfgFile, cfgFile != ""
			if !explicit {
				path = config.DefaultConfigPath()
			}
			if err := config.Load(path, explicit); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return nil
		},
	}

	// Disable completion command
	root.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is $HOME/.catgpt.yaml)")

	root.AddCommand(
		newChatCmd(),
		newRunCmd(),
		newExpensesCmd(),
		newFakesCmd(),
		newConfigCmd(),
	)
	return root
}
