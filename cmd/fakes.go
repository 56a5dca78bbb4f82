package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/deepgram/catgpt/internal/handlers"
)

func newFakesCmd() *cobra.Command {
	var (
		addr       string
		tokenDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fakes",
		Short: "Serve an in-memory fake of the CatGPT backend",
		Long: `fakes serves /chat, /chat/stream and /run with canned agents so the
client can be tried without the real backend. Add ?framing=sse to /run for
server-sent events instead of the <newline> framing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveFakes(cmd.Context(), addr, handlers.NewFakeBackend(tokenDelay))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().DurationVar(&tokenDelay, "token-delay", 200*time.Millisecond, "pause between streamed tokens")
	return cmd
}

func serveFakes(ctx context.Context, addr string, backend *handlers.FakeBackend) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           backend.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Fake backend starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("fake backend failed: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutting down fake backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
