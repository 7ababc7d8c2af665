// Package repl is the terminal view: a line-oriented chat loop over a
// chat.Store with slash commands for the sidebar and settings actions.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/arohi/internal/chat"
	"github.com/RichardoC/arohi/internal/models"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"go.uber.org/zap"
)

const Greeting = "Hi, I'm Arohi. How are you feeling today?"

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

type REPL struct {
	store  *chat.Store
	out    io.Writer
	logger *zap.Logger
}

func New(store *chat.Store, out io.Writer, logger *zap.Logger) *REPL {
	return &REPL{store: store, out: out, logger: logger}
}

// Run reads lines until EOF, Ctrl+C or /quit.
func (r *REPL) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	r.store.StartChat()
	r.printSession()

	for {
		input, err := line.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		if quit := r.Handle(ctx, input); quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Handle processes one line of input and reports whether the loop should end.
func (r *REPL) Handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, "/") {
		return r.command(input)
	}

	id := r.store.CurrentID()
	if _, ok := r.store.Current(); !ok {
		fmt.Fprintln(r.out, dimStyle.Render("No conversation selected. Use /new to start one."))
		return false
	}
	if r.store.Pending(id) {
		fmt.Fprintln(r.out, dimStyle.Render("Arohi is still thinking..."))
		return false
	}

	fmt.Fprintln(r.out, dimStyle.Render("Arohi is thinking..."))
	start := time.Now()
	bot, ok := r.store.SendMessage(ctx, id, input)
	if !ok {
		if ctx.Err() != nil {
			fmt.Fprintln(r.out, dimStyle.Render("Cancelled."))
		}
		return false
	}
	r.logger.Debug("Reply received", zap.Duration("took", time.Since(start)))
	r.printMessage(bot)
	return false
}

func (r *REPL) command(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/new":
		r.store.CreateSession()
		r.printSession()

	case "/list":
		r.printList()

	case "/select":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "usage: /select <number|id>")
			return false
		}
		r.store.SelectSession(r.resolve(fields[1]))
		r.printSession()

	case "/memory":
		if r.store.ToggleMemory() {
			fmt.Fprintln(r.out, "Memory on: earlier messages are shared with Arohi.")
		} else {
			fmt.Fprintln(r.out, "Memory off: each message is sent on its own.")
		}

	case "/theme":
		if len(fields) < 2 {
			fmt.Fprintf(r.out, "theme: %s\n", r.store.Settings().Theme)
			return false
		}
		r.store.SetTheme(models.Theme(fields[1]))
		fmt.Fprintf(r.out, "theme: %s\n", r.store.Settings().Theme)

	case "/clear":
		r.store.ClearAll()
		fmt.Fprintln(r.out, "All conversations deleted.")

	case "/help":
		fmt.Fprintln(r.out, helpText)

	default:
		fmt.Fprintf(r.out, "unknown command %s, try /help\n", fields[0])
	}
	return false
}

// resolve maps a 1-based list position to a session id; anything else is
// taken as an id.
func (r *REPL) resolve(arg string) string {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg
	}
	sessions := r.store.ListSessions()
	if n < 1 || n > len(sessions) {
		return arg
	}
	return sessions[n-1].ID
}

func (r *REPL) printList() {
	sessions := r.store.ListSessions()
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("No conversations yet."))
		return
	}
	current := r.store.CurrentID()
	for i, session := range sessions {
		entry := fmt.Sprintf("%2d. %s (%d messages)", i+1, session.Title, len(session.Messages))
		if session.ID == current {
			entry = activeStyle.Render(entry + " *")
		}
		fmt.Fprintln(r.out, entry)
	}
}

func (r *REPL) printSession() {
	session, ok := r.store.Current()
	if !ok {
		fmt.Fprintln(r.out, dimStyle.Render("No conversation selected."))
		return
	}
	fmt.Fprintln(r.out, activeStyle.Render("# "+session.Title))
	if len(session.Messages) == 0 {
		fmt.Fprintln(r.out, botStyle.Render("Arohi: ")+Greeting)
		return
	}
	for _, msg := range session.Messages {
		r.printMessage(msg)
	}
}

func (r *REPL) printMessage(msg models.Message) {
	if msg.Sender == models.SenderUser {
		fmt.Fprintln(r.out, userStyle.Render("You: ")+msg.Text)
		return
	}
	fmt.Fprintln(r.out, botStyle.Render("Arohi:"))
	rendered, err := glamour.Render(msg.Text, string(r.store.Settings().Theme))
	if err != nil {
		r.logger.Debug("Falling back to plain output", zap.Error(err))
		fmt.Fprintln(r.out, msg.Text)
		return
	}
	fmt.Fprint(r.out, rendered)
}

const helpText = `Commands:
  /new             start a new conversation
  /list            list conversations
  /select <n|id>   switch conversation
  /memory          toggle conversation memory
  /theme [dark|light]
  /clear           delete all conversations
  /quit            exit`
