package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/catgpt/internal/config"
	"github.com/deepgram/catgpt/internal/handlers"
	"github.com/deepgram/catgpt/internal/render"
)

// execute runs the CLI against a fake backend with a config file pointing
// at it.
func execute(t *testing.T, server *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REDIS_URL", "")
	t.Setenv("CATGPT_API_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("CATGPT_WATCH_ADDR", "")
	t.Cleanup(config.SetFile(config.File{}))

	path := filepath.Join(t.TempDir(), "catgpt.yaml")
	cfg := config.File{APIURL: "http://127.0.0.1:1"}
	if server != nil {
		cfg.APIURL = server.URL
	}
	require.NoError(t, config.SaveToFile(&cfg, path))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--config", path}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()
	return out.String(), err
}

func newFakeServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(handlers.NewFakeBackend(0).Router())
	t.Cleanup(server.Close)
	return server
}

func TestMainServer(t *testing.T) {
	server := newFakeServer(t)

	t.Run("health endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/invalid")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/chat")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status code %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
		}
	})
}

func TestExpensesCommand(t *testing.T) {
	input := strings.Join([]string{
		"list",
		"submit", "Coffee", "3.50",
		"submit", "", "1",
		"submit", "Cake", "lots",
		"list",
		"quit",
	}, "\n") + "\n"

	out, err := execute(t, nil, input, "expenses")
	require.NoError(t, err)

	assert.Contains(t, out, "No expenses submitted yet.")
	assert.Contains(t, out, "Expense submitted! Expense ID:")
	assert.Contains(t, out, "Not submitted: all fields are required")
	assert.Contains(t, out, "Not submitted: amount must be a number")
	assert.Contains(t, out, "$3.50")
	assert.NotContains(t, out, "Cake")
}

func TestChatOneShot(t *testing.T) {
	server := newFakeServer(t)

	out, err := execute(t, server, "", "chat", "find", "cat", "facts")
	require.NoError(t, err)

	assert.Contains(t, out, "catgpt> Here is a plan with 3 agents.")
	assert.Contains(t, out, "1. Researcher (computeruse)")
	assert.Contains(t, out, "Search the web for: find cat facts")
}

func TestChatREPL(t *testing.T) {
	server := newFakeServer(t)

	input := strings.Join([]string{
		"hello cats",
		"/run",
		"/new",
		"/sessions",
		"/switch 1",
		"/switch 9",
		"/bogus",
		"/quit",
	}, "\n") + "\n"

	out, err := execute(t, server, input, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Type /help for commands.")
	assert.Contains(t, out, "1. Researcher (computeruse)")
	assert.Contains(t, out, "[completed] Summariser")
	assert.Contains(t, out, "Started a new chat.")
	assert.Contains(t, out, "1. hello cats (2 messages)")
	assert.Contains(t, out, "* 2. New chat (0 messages)")
	assert.Contains(t, out, "== hello cats ==")
	assert.Contains(t, out, "Pick a chat between 1 and 2")
	assert.Contains(t, out, "Unknown command /bogus")
}

func TestChatREPLBlankLine(t *testing.T) {
	server := newFakeServer(t)

	out, err := execute(t, server, "   \n\n/quit\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Type /help for commands.")
	assert.NotContains(t, out, render.ThinkingMarker)
}

func TestChatStreaming(t *testing.T) {
	server := newFakeServer(t)

	out, err := execute(t, server, "", "chat", "--stream", "purr")
	require.NoError(t, err)
	assert.Contains(t, out, "Meow! You said: purr")
}

func TestRunCommand(t *testing.T) {
	server := newFakeServer(t)

	flow, err := json.Marshal(handlers.PlanFlow("cats"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path, flow, 0600))

	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"From file", []string{"run", path}, ""},
		{"From stdin", []string{"run", "-"}, string(flow)},
		{"Sentinel forced", []string{"run", "--framing", "sentinel", path}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, server, tt.stdin, tt.args...)
			require.NoError(t, err)

			assert.Contains(t, out, "Researcher:running Librarian:planned Summariser:planned")
			assert.Contains(t, out, "[completed] Researcher")
			assert.Contains(t, out, "[completed] Summariser")
			assert.Contains(t, out, "Purr-fectly done.")
		})
	}
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"agents":[{"name":"A"}]}`), 0600))
	text := filepath.Join(dir, "text.json")
	require.NoError(t, os.WriteFile(text, []byte(`{"content":"just words"}`), 0600))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"Missing file", []string{"run", filepath.Join(dir, "nope.json")}, "failed to read flow"},
		{"Invalid flow", []string{"run", invalid}, "invalid flow"},
		{"No flow", []string{"run", text}, "no flow found"},
		{"Missing argument", []string{"run"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.yaml")

	out, err := execute(t, nil, "", "config", "init", "--api-url", "http://cats.example", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	written, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://cats.example", written.APIURL)

	out, err = execute(t, nil, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url:         http://127.0.0.1:1")
}

func TestMissingExplicitConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
