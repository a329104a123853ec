package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/openpose-go/sharedptr"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	ownedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	sharedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxEvents = 8

type keyMap struct {
	Wrap         key.Binding
	Attach       key.Binding
	Get          key.Binding
	ReleaseCopy  key.Binding
	ReleaseOwner key.Binding
	Quit         key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Wrap, k.Attach, k.Get, k.ReleaseCopy, k.ReleaseOwner, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Wrap:         key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "wrap")),
	Attach:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "native copy")),
	Get:          key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "get")),
	ReleaseCopy:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "release copy")),
	ReleaseOwner: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "release owner")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type interactiveModel struct {
	err     error
	session *session
	help    help.Model
	result  string
	kind    sharedptr.Kind
	useWasm bool
}

type openedMsg struct {
	err     error
	session *session
}

func newInteractiveModel(kind sharedptr.Kind, useWasm bool) *interactiveModel {
	return &interactiveModel{
		kind:    kind,
		useWasm: useWasm,
		help:    help.New(),
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.open
}

func (m *interactiveModel) open() tea.Msg {
	s, err := newSession(context.Background(), m.kind, m.useWasm)
	return openedMsg{session: s, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		m.session = msg.session
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			if m.session != nil {
				m.session.close(context.Background())
			}
			return m, tea.Quit
		}
		if m.session == nil {
			return m, nil
		}

		m.err = nil
		m.result = ""
		switch {
		case key.Matches(msg, keys.Wrap):
			if m.err = m.session.wrap(); m.err == nil {
				m.result = fmt.Sprintf("wrapped %s", m.session.raw)
			}
		case key.Matches(msg, keys.Attach):
			if m.err = m.session.attach(); m.err == nil {
				m.result = fmt.Sprintf("attached copy #%d", len(m.session.attached))
			}
		case key.Matches(msg, keys.Get):
			p, err := m.session.get()
			m.err = err
			if err == nil {
				m.result = fmt.Sprintf("view of %s", p)
			}
		case key.Matches(msg, keys.ReleaseCopy):
			if m.err = m.session.releaseAttached(); m.err == nil {
				m.result = "released copy"
			}
		case key.Matches(msg, keys.ReleaseOwner):
			if m.err = m.session.releaseOwner(); m.err == nil {
				m.result = "released owner"
			}
		}
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if m.session == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
		}
		return "Opening native library..."
	}

	s := m.session
	var b strings.Builder

	b.WriteString(titleStyle.Render("Shared Pointers"))
	b.WriteString(fmt.Sprintf(" %s via %s\n\n", m.kind, s.lib.Name()))

	b.WriteString(headerStyle.Render("Heap"))
	b.WriteString("\n")
	snap := s.heap.Snapshot()
	if len(snap) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, e := range snap {
		if e.Shared {
			b.WriteString(sharedStyle.Render(fmt.Sprintf("  shared %s -> %s", e.Ptr, e.Target)))
		} else {
			b.WriteString(ownedStyle.Render(fmt.Sprintf("  object %s %s use=%d", e.Ptr, e.Stem, e.UseCount)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Holders"))
	b.WriteString("\n")
	if s.owner != nil {
		b.WriteString(formatHolder("owner", s.owner))
	}
	for i, h := range s.attached {
		b.WriteString(formatHolder(fmt.Sprintf("copy #%d", i+1), h))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Events"))
	b.WriteString("\n")
	events := s.events
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	for _, e := range events {
		b.WriteString(eventStyle.Render("  " + e))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.result != "":
		b.WriteString(resultStyle.Render(m.result))
	}
	if v := s.heap.Violations(); len(v) > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d heap violations", len(v))))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(keys))

	return b.String()
}

func formatHolder(name string, h holder) string {
	handle, err := h.Handle()
	if err != nil {
		return fmt.Sprintf("  %-8s released\n", name)
	}
	return fmt.Sprintf("  %-8s %s\n", name, handle)
}

func runInteractive(kind sharedptr.Kind, useWasm bool) error {
	p := tea.NewProgram(newInteractiveModel(kind, useWasm), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
