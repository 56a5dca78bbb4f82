// Package render prints sessions, flows, run status and expenses to a
// terminal. Markdown agent output goes through glamour when the writer is a
// terminal and is printed as is otherwise.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"golang.org/x/term"

	chatmodels "github.com/deepgram/catgpt/internal/domain/chat/models"
	expensemodels "github.com/deepgram/catgpt/internal/domain/expense/models"
	"github.com/deepgram/catgpt/internal/services/flowrun"
	"github.com/deepgram/catgpt/internal/services/session"
)

const (
	defaultWidth   = 80
	EmptyExpenses  = "No expenses submitted yet."
	ThinkingMarker = "…"
)

// Renderer writes plain text projections of state to w
type Renderer struct {
	w        io.Writer
	width    int
	markdown *glamour.TermRenderer
}

// New inspects w: terminals get their width and a styled markdown renderer
func New(w io.Writer) *Renderer {
	r := &Renderer{w: w, width: defaultWidth}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
		r.width = width
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width-4),
	)
	if err == nil {
		r.markdown = md
	}
	return r
}

// NewWithStyle always renders markdown with the named glamour style
func NewWithStyle(w io.Writer, style string, width int) (*Renderer, error) {
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Renderer{w: w, width: width, markdown: md}, nil
}

// Markdown renders md, falling back to the raw text
func (r *Renderer) Markdown(md string) string {
	if r.markdown == nil || strings.TrimSpace(md) == "" {
		return md
	}
	out, err := r.markdown.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func (r *Renderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}

// Message prints one chat message
func (r *Renderer) Message(msg chatmodels.Message) {
	if msg.Role == chatmodels.RoleUser {
		r.printf("you> %s\n", msg.Content.Text)
		return
	}
	if msg.Content.Text != "" {
		r.printf("catgpt> %s\n", msg.Content.Text)
	}
	if msg.Content.Flow != nil {
		r.Flow(msg.Content.Flow)
	}
}

// Thinking prints the pending indicator
func (r *Renderer) Thinking() {
	r.printf("catgpt> %s\n", ThinkingMarker)
}

// Session prints a session's title and messages
func (r *Renderer) Session(s chatmodels.Session) {
	r.printf("== %s ==\n", session.Title(s))
	for _, msg := range s.Messages {
		r.Message(msg)
	}
}

// Sessions lists sessions by title, marking the active one
func (r *Renderer) Sessions(sessions []chatmodels.Session, activeID string) {
	for i, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		r.printf("%s %d. %s (%s)\n", marker, i+1, session.Title(s), english.Plural(len(s.Messages), "message", "messages"))
	}
}

// Flow prints each agent card of a flow
func (r *Renderer) Flow(flow *chatmodels.FlowResponse) {
	for i, agent := range flow.Agents {
		r.printf("%d. %s (%s)\n", i+1, agent.Name, agent.Type)
		if agent.Instructions != "" {
			r.printf("   Instructions: %s\n", agent.Instructions)
		}
		if schema := chatmodels.SchemaString(agent.InputSchema); schema != "" {
			r.printf("   Input Schema:\n%s\n", indent(schema, "     "))
		}
		if schema := chatmodels.SchemaString(agent.OutputSchema); schema != "" {
			r.printf("   Output Schema:\n%s\n", indent(schema, "     "))
		}
	}
}

// RunStatus prints every planned agent with its status and, once the agent
// has produced output, its response.
func (r *Renderer) RunStatus(result flowrun.FlowExecutionResult) {
	for _, name := range result.Plan {
		status := result.StatusOf(name)
		r.printf("[%s] %s\n", status, name)
		if text := result.Response[name]; text != "" {
			if status == flowrun.Completed {
				text = r.Markdown(text)
			}
			r.printf("%s\n", indent(text, "    "))
		}
	}
}

// RunLine is a one line summary used while a run streams
func RunLine(result flowrun.FlowExecutionResult) string {
	parts := make([]string, 0, len(result.Plan))
	for _, name := range result.Plan {
		parts = append(parts, fmt.Sprintf("%s:%s", name, result.StatusOf(name)))
	}
	return strings.Join(parts, " ")
}

// Expenses prints the expense table or the empty placeholder
func (r *Renderer) Expenses(expenses []expensemodels.Expense) {
	if len(expenses) == 0 {
		r.printf("%s\n", EmptyExpenses)
		return
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Description\tAmount\tDate")
	for _, exp := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", exp.Desc, Amount(exp.Amount), humanize.Time(exp.Date))
	}
	tw.Flush()
}

// Confirmation is the banner shown after a submit
func (r *Renderer) Confirmation(id int64) {
	r.printf("Expense submitted! Expense ID: %d\n", id)
}

// Amount formats an expense amount with two decimals
func Amount(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
