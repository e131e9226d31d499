// Package tui is the terminal chat: upload one document, then ask questions about it.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
)

// Authors shown in the transcript.
const (
	AuthorUser   = "You"
	AuthorAnswer = "Answer"
	AuthorSystem = "kotae"
)

// Conversation is the part of a session the chat drives.
type Conversation interface {
	Upload(ctx context.Context, up session.Upload) (*indexer.Result, error)
	Ask(ctx context.Context, question string) (*models.Answer, error)
	Explain(err error) string
	State() session.State
	MaxUploadMB() int
}

// Entry is one transcript message.
type Entry struct {
	Author string
	Text   string
}

type uploadDoneMsg struct {
	name string
	res  *indexer.Result
	err  error
}

type answerMsg struct {
	ans *models.Answer
	err error
}

// inboxMsg carries a file dropped into the watched inbox.
type inboxMsg string

// Model is the Bubble Tea model for the chat.
type Model struct {
	conv       Conversation
	ctx        context.Context
	input      textinput.Model
	viewport   viewport.Model
	transcript []Entry
	inbox      <-chan string
	file       string
	busy       bool
	queued     []string
	status     string
	ready      bool
}

// Option configures a Model.
type Option func(*Model)

// WithInbox delivers file paths from ch as uploads while the chat waits for one.
func WithInbox(ch <-chan string) Option {
	return func(m *Model) { m.inbox = ch }
}

// WithFile uploads path as soon as the chat starts.
func WithFile(path string) Option {
	return func(m *Model) { m.file = path }
}

// WithContext sets the context for session calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// New creates the chat model. The transcript opens with the upload prompt.
func New(conv Conversation, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0
	m := Model{
		conv:     conv,
		ctx:      context.Background(),
		input:    ti,
		viewport: viewport.New(0, 0),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.add(AuthorSystem, session.UploadPrompt(conv.MaxUploadMB()))
	if m.file != "" {
		m.busy = true
		m.add(AuthorSystem, "Processing "+filepath.Base(m.file)+"...")
	}
	m.syncPlaceholder()
	return m
}

// Transcript returns the messages so far.
func (m Model) Transcript() []Entry {
	return append([]Entry(nil), m.transcript...)
}

// Init starts the cursor blink, the inbox listener, and the WithFile upload.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitInbox()}
	if m.file != "" {
		cmds = append(cmds, m.UploadFile(m.file))
	}
	return tea.Batch(cmds...)
}

// UploadFile returns a command that uploads path; use it with tea.Program.Send or at start.
func (m Model) UploadFile(path string) tea.Cmd {
	conv, ctx := m.conv, m.ctx
	return func() tea.Msg {
		name := filepath.Base(path)
		res, err := conv.Upload(ctx, session.Upload{Name: name, Path: path})
		return uploadDoneMsg{name: name, res: res, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	conv, ctx := m.conv, m.ctx
	return func() tea.Msg {
		ans, err := conv.Ask(ctx, question)
		return answerMsg{ans: ans, err: err}
	}
}

func (m Model) waitInbox() tea.Cmd {
	if m.inbox == nil {
		return nil
	}
	ch := m.inbox
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return inboxMsg(path)
	}
}

// Update handles keys, window size, and finished session calls.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-bh-ih-3)
		m.refresh()
		return m, nil

	case uploadDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.add(AuthorSystem, m.conv.Explain(msg.err))
		} else {
			m.add(AuthorSystem, fmt.Sprintf("Processing %s is done (%d segments). You can now ask questions!", msg.res.Name, msg.res.Segments))
		}
		m.syncPlaceholder()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.add(AuthorSystem, m.conv.Explain(msg.err))
		} else {
			m.add(AuthorAnswer, msg.ans.Render())
		}
		if len(m.queued) > 0 && m.conv.State() == session.StateReady {
			next := m.queued[0]
			m.queued = m.queued[1:]
			m.busy = true
			m.syncPlaceholder()
			return m, m.ask(next)
		}
		m.queued = nil
		m.syncPlaceholder()
		return m, nil

	case inboxMsg:
		next := m.waitInbox()
		if m.busy || m.conv.State() != session.StateAwaitingUpload {
			return m, next
		}
		m.busy = true
		m.add(AuthorSystem, "Processing "+filepath.Base(string(msg))+"...")
		return m, tea.Batch(m.UploadFile(string(msg)), next)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.viewport, _ = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.busy {
		// Questions typed while an answer is pending are sent in order once it
		// arrives. Uploads still wait for the current one to finish.
		if m.conv.State() != session.StateReady {
			return m, nil
		}
		m.input.SetValue("")
		m.add(AuthorUser, text)
		m.queued = append(m.queued, text)
		m.syncPlaceholder()
		return m, nil
	}
	m.input.SetValue("")
	m.add(AuthorUser, text)
	m.busy = true
	m.syncPlaceholder()
	if m.conv.State() == session.StateAwaitingUpload {
		m.status = "Processing " + filepath.Base(text) + "..."
		return m, m.UploadFile(text)
	}
	return m, m.ask(text)
}

func (m *Model) add(author, text string) {
	m.transcript = append(m.transcript, Entry{Author: author, Text: text})
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.transcript, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *Model) syncPlaceholder() {
	switch {
	case m.busy && len(m.queued) > 0:
		m.input.Placeholder = "Working..."
		m.status = fmt.Sprintf("%d queued", len(m.queued))
	case m.busy:
		m.input.Placeholder = "Working..."
	case m.conv.State() == session.StateAwaitingUpload:
		m.input.Placeholder = "Path to a PDF, Word, or Excel file"
		m.status = "Waiting for a document"
	default:
		m.input.Placeholder = "Ask a question about the document"
		m.status = "Ready"
	}
}

// View renders the transcript, the input box, and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("kotae")
	status := statusStyle.Render(m.status)
	if m.busy {
		label := "Working..."
		if len(m.queued) > 0 {
			label += " " + m.status
		}
		status = busyStyle.Render(label)
	}
	return header + "\n" + transcriptStyle.Render(m.viewport.View()) + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

func renderTranscript(entries []Entry, width int) string {
	var b strings.Builder
	body := lipgloss.NewStyle()
	if width > 0 {
		body = body.Width(width)
	}
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(authorStyle(e.Author).Render(e.Author))
		b.WriteString("\n")
		b.WriteString(body.Render(e.Text))
	}
	return b.String()
}

func authorStyle(author string) lipgloss.Style {
	switch author {
	case AuthorUser:
		return userStyle
	case AuthorAnswer:
		return answerStyle
	default:
		return systemStyle
	}
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	systemStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	busyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
