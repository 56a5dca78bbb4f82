package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepgram/catgpt/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_url:         %s\n", config.GetAPIBaseURL())
			fmt.Fprintf(out, "stream_framing:  %s\n", config.GetStreamFraming())
			fmt.Fprintf(out, "request_timeout: %s\n", config.GetRequestTimeout())
			fmt.Fprintf(out, "watch_addr:      %s\n", config.GetWatchAddr())
			fmt.Fprintf(out, "redis_url:       %s\n", config.GetRedisURL())
			return nil
		},
	})

	var apiURL string
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file (default $HOME/.catgpt.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no home directory, pass a path")
			}

			cfg := config.File{
				APIURL:         apiURL,
				StreamFraming:  config.FramingAuto,
				RequestTimeout: config.DefaultRequestTimeout.String(),
			}
			if err := config.SaveToFile(&cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&apiURL, "api-url", config.DefaultAPIURL, "backend base URL")
	cmd.AddCommand(initCmd)

	return cmd
}
