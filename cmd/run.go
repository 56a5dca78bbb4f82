package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/deepgram/catgpt/internal/config"
	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/handlers"
	"github.com/deepgram/catgpt/internal/services"
)

func newRunCmd() *cobra.Command {
	var (
		framing   string
		watchAddr string
	)

	cmd := &cobra.Command{
		Use:   "run <flow.json|->",
		Short: "Run a flow and stream each agent's progress",
		Long: `run posts a flow (the {"agents": [...]} object returned by chat) to the
backend's /run endpoint and prints agent status as the stream arrives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := readFlow(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if err := flow.Validate(); err != nil {
				return fmt.Errorf("invalid flow: %w", err)
			}

			svcs, err := services.InitializeServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svcs.Close()

			if framing != "" {
				svcs.GetFlowRunService().SetFraming(framing)
			}

			stop, err := startWatchServer(cmd, svcs, watchAddr)
			if err != nil {
				return err
			}
			defer stop()

			return runFlow(cmd.Context(), svcs, cmd.OutOrStdout(), flow)
		},
	}

	cmd.Flags().StringVar(&framing, "framing", "", "stream framing: auto, sentinel or sse (default from config)")
	cmd.Flags().StringVar(&watchAddr, "watch-addr", "", "serve run status to websocket watchers on this address")
	return cmd
}

func readFlow(stdin io.Reader, path string) (*models.FlowResponse, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read flow: %w", err)
	}

	// accept a bare flow or a whole chat reply carrying one
	content, err := models.ParseReply(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}
	if content.Flow == nil {
		return nil, fmt.Errorf("no flow found in %s", path)
	}
	return content.Flow, nil
}

// startWatchServer serves /ws and /metrics on addr (flag, then config) and
// returns a function that shuts it down. With no address it does nothing.
func startWatchServer(cmd *cobra.Command, svcs *services.Services, addr string) (func(), error) {
	if addr == "" {
		addr = config.GetWatchAddr()
	}
	if addr == "" {
		return func() {}, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           handlers.NewWatchRouter(svcs.GetWatchers()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Watch server stopped")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Watch server listening")
	fmt.Fprintf(cmd.ErrOrStderr(), "Watch run status at ws://%s/ws\n", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
