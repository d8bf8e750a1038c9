// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view workflow over the persisted generation history:
//  1. [TrackListView] : Browse saved clips, newest first
//  2. [DetailView] : Inspect one clip and open its audio in the system browser
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, o, r, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	DetailView
)

// ClipLister loads persisted clips. Implemented by
// [repositories.JobRepository].
type ClipLister interface {
	List(ctx context.Context, limit int) ([]models.Clip, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	repo      ClipLister
	opener    func(url string) error
	width     int
	height    int
	trackList list.Model
	listReady bool
	selected  *models.Clip
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	open    key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open audio")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.open},
		{k.refresh, k.quit},
	}
}

var _ list.Item = clipItem{}

// clipItem wraps [models.Clip] to implement list.Item.
type clipItem struct {
	clip models.Clip
}

func (i clipItem) FilterValue() string { return i.clip.Title }
func (i clipItem) Title() string {
	if i.clip.Title != "" {
		return i.clip.Title
	}
	return i.clip.ID
}
func (i clipItem) Description() string {
	desc := i.clip.Status
	if i.clip.Tags != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.clip.Tags)
	}
	if d := clipLength(i.clip); d != "" {
		desc = fmt.Sprintf("%s • %s", desc, d)
	}
	return desc
}

type clipsLoadedMsg struct {
	clips []models.Clip
	err   error
}

type openedMsg struct {
	err error
}

// NewModel creates a new TUI model over the given history store.
//
// opener defaults to [shared.OpenBrowser]; tests substitute a recorder.
func NewModel(ctx context.Context, repo ClipLister, opener func(url string) error) *Model {
	if opener == nil {
		opener = shared.OpenBrowser
	}
	return &Model{
		ctx:    ctx,
		view:   TrackListView,
		repo:   repo,
		opener: opener,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by loading the saved clips.
func (m *Model) Init() tea.Cmd {
	return m.loadClips()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case clipsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.clips))
		for i, clip := range msg.clips {
			items[i] = clipItem{clip: clip}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = "Generated tracks"
		m.trackList.SetSize(m.width-4, m.height-8)
		m.listReady = true
		m.status = ""
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.status = styles.warn.Render(fmt.Sprintf("could not open browser: %v", msg.err))
		} else {
			m.status = styles.ok.Render("opened in browser")
		}
		return m, nil
	}

	if m.listReady && m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case DetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.status = "refreshing..."
		return m, m.loadClips()
	case "enter":
		if selected := m.trackList.SelectedItem(); selected != nil {
			if item, ok := selected.(clipItem); ok {
				clip := item.clip
				m.selected = &clip
				m.view = DetailView
			}
		}
		return m, nil
	}

	if !m.listReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TrackListView
		m.selected = nil
		m.status = ""
		return m, nil
	case "o":
		if m.selected != nil && m.selected.AudioURL != "" {
			return m, m.openAudio(m.selected.AudioURL)
		}
		m.status = styles.warn.Render("no audio available yet")
		return m, nil
	}
	return m, nil
}

func (m *Model) loadClips() tea.Cmd {
	return func() tea.Msg {
		clips, err := m.repo.List(m.ctx, 0)
		return clipsLoadedMsg{clips: clips, err: err}
	}
}

func (m *Model) openAudio(url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: m.opener(url)}
	}
}

func (m *Model) renderTrackList() string {
	if !m.listReady {
		return "Loading saved tracks..."
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	body := fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
	if m.status != "" {
		body = fmt.Sprintf("%s\n%s", body, m.status)
	}
	return body
}

func (m *Model) renderDetail() string {
	clip := m.selected
	if clip == nil {
		return "No clip selected"
	}

	name := clip.Title
	if name == "" {
		name = clip.ID
	}
	title := styles.title.Render(name)

	status := clip.Status
	switch {
	case clip.Finished():
		status = styles.ok.Render(status)
	case clip.Failed():
		status = styles.err.Render(status)
	}

	info := fmt.Sprintf("\nID: %s\nStatus: %s\nModel: %s\n", clip.ID, status, clip.ModelName)
	if clip.Tags != "" {
		info += fmt.Sprintf("Tags: %s\n", clip.Tags)
	}
	if d := clipLength(*clip); d != "" {
		info += fmt.Sprintf("Length: %s\n", d)
	}
	if clip.AudioURL != "" {
		info += fmt.Sprintf("Audio: %s\n", clip.AudioURL)
	}
	if clip.ErrorMessage != "" {
		info += styles.warn.Render(fmt.Sprintf("Error: %s\n", clip.ErrorMessage))
	}

	helpKeys := []key.Binding{m.keys.open, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	body := fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
	if m.status != "" {
		body = fmt.Sprintf("%s\n%s", body, m.status)
	}
	return body
}

func clipLength(clip models.Clip) string {
	if clip.Duration == "" {
		return ""
	}
	seconds, err := strconv.ParseFloat(clip.Duration, 64)
	if err != nil {
		return clip.Duration
	}
	return shared.FormatDuration(seconds)
}
