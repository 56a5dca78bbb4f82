package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/render"
	"github.com/deepgram/catgpt/internal/services"
	"github.com/deepgram/catgpt/internal/services/chat"
	"github.com/deepgram/catgpt/internal/services/flowrun"
	"github.com/deepgram/catgpt/pkg/logger"
)

const chatHelp = `Commands:
  /new            start a new chat
  /sessions       list chats
  /switch N       switch to chat N
  /run            run the last flow of this chat
  /help           show this help
  /quit           leave
Anything else is sent as a message.`

func newChatCmd() *cobra.Command {
	var (
		streaming bool
		watchAddr string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the CatGPT backend",
		Long: `Without arguments chat starts an interactive session. With a message it
sends that one message, prints the reply and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := services.InitializeServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svcs.Close()

			stop, err := startWatchServer(cmd, svcs, watchAddr)
			if err != nil {
				return err
			}
			defer stop()

			repl := &chatREPL{
				svcs:      svcs,
				out:       cmd.OutOrStdout(),
				render:    render.New(cmd.OutOrStdout()),
				streaming: streaming,
			}

			if len(args) > 0 {
				repl.ensureSession(cmd.Context())
				repl.send(cmd.Context(), strings.Join(args, " "))
				return nil
			}
			return repl.loop(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&streaming, "stream", false, "use the streaming chat endpoint for text replies")
	cmd.Flags().StringVar(&watchAddr, "watch-addr", "", "serve run status to websocket watchers on this address")
	return cmd
}

type chatREPL struct {
	svcs      *services.Services
	out       io.Writer
	render    *render.Renderer
	streaming bool
}

func (r *chatREPL) ensureSession(ctx context.Context) string {
	if active, ok := r.svcs.GetSessionService().Active(); ok {
		return active.ID
	}
	return r.svcs.GetSessionService().NewSession(ctx).ID
}

func (r *chatREPL) loop(ctx context.Context, in io.Reader) error {
	id := r.ensureSession(ctx)
	if active, ok := r.svcs.GetSessionService().Get(id); ok && len(active.Messages) > 0 {
		r.render.Session(active)
	}
	fmt.Fprintln(r.out, "Type /help for commands.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "/") {
			r.send(ctx, line)
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, chatHelp)
		case "/new":
			r.svcs.GetSessionService().NewSession(ctx)
			fmt.Fprintln(r.out, "Started a new chat.")
		case "/sessions":
			active, _ := r.svcs.GetSessionService().Active()
			r.render.Sessions(r.svcs.GetSessionService().Sessions(), active.ID)
		case "/switch":
			r.switchTo(arg)
		case "/run":
			r.runLastFlow(ctx)
		default:
			fmt.Fprintf(r.out, "Unknown command %s\n", command)
		}
	}
}

func (r *chatREPL) switchTo(arg string) {
	sessions := r.svcs.GetSessionService().Sessions()
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(sessions) {
		fmt.Fprintf(r.out, "Pick a chat between 1 and %d\n", len(sessions))
		return
	}
	if err := r.svcs.GetSessionService().SelectSession(sessions[n-1].ID); err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.render.Session(sessions[n-1])
}

// send captures the active session before the request so the reply lands
// there even if the user switches chats meanwhile.
func (r *chatREPL) send(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	id := r.ensureSession(ctx)
	r.render.Thinking()

	var err error
	if r.streaming {
		err = r.svcs.GetChatService().SendStream(ctx, id, text, func(token string) {
			fmt.Fprint(r.out, token)
		})
		fmt.Fprintln(r.out)
	} else {
		err = r.svcs.GetChatService().Send(ctx, id, text)
	}

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return
	case errors.Is(err, chat.ErrBusy):
		fmt.Fprintln(r.out, "Still waiting for the previous reply.")
		return
	case err != nil:
		logger.Error(logger.CHAT, "Failed to send message: %v", err)
		return
	}

	if session, ok := r.svcs.GetSessionService().Get(id); ok && !r.streaming {
		r.render.Message(session.Messages[len(session.Messages)-1])
	}
}

func (r *chatREPL) runLastFlow(ctx context.Context) {
	active, ok := r.svcs.GetSessionService().Active()
	if !ok {
		return
	}
	for i := len(active.Messages) - 1; i >= 0; i-- {
		if flow := active.Messages[i].Content.Flow; flow != nil {
			runFlow(ctx, r.svcs, r.out, flow)
			return
		}
	}
	fmt.Fprintln(r.out, "No flow in this chat yet.")
}

// runFlow streams a run, printing a status line whenever an agent's status
// changes and the full result at the end.
func runFlow(ctx context.Context, svcs *services.Services, out io.Writer, flow *models.FlowResponse) error {
	renderer := render.New(out)
	lastLine := ""
	result, err := svcs.GetFlowRunService().Run(ctx, flow, func(snapshot flowrun.FlowExecutionResult) {
		if line := render.RunLine(snapshot); line != lastLine {
			fmt.Fprintln(out, line)
			lastLine = line
		}
	})
	if err != nil {
		logger.Error(logger.RUN, "Run failed: %v", err)
	}
	renderer.RunStatus(result)
	return err
}
