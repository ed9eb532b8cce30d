package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/crate/internal/artwork"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/library"
)

// ApplicationState represents the current input mode
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateSearching
)

// Library is the part of the library service the browser drives.
type Library interface {
	Records() []domain.Record
	DeleteRecord(index int) (domain.Record, error)
	UndoLastDelete() (domain.Record, int, error)
	CanUndo() bool
	CoverImage(index int) (artwork.Lookup, error)
	CurrentSelection() (int, bool)
	SetSelection(index int) int
	Search(query string) []library.Match
}

// CacheControl exposes the memory flush of the artwork cache.
type CacheControl interface {
	ClearMemory()
}

// CoverStatus is the state of the cover shown in the detail pane
type CoverStatus int

const (
	CoverNone CoverStatus = iota
	CoverPending
	CoverReady
	CoverFailed
)

// CoverView is what the detail pane knows about the selected cover
type CoverView struct {
	Key    string
	Status CoverStatus
	Info   artwork.ImageInfo
	Err    error
}

const (
	tickInterval = 100 * time.Millisecond
	statusTTL    = 3 * time.Second
)

// coverRequestMsg asks the model to look up the selected cover
type coverRequestMsg struct{}

// Model is the Bubble Tea model for the album browser
type Model struct {
	State ApplicationState
	Ready bool

	// Services
	Library Library
	Cache   CacheControl
	logger  *slog.Logger

	// Data
	Records []domain.Record
	Cursor  int
	Cover   CoverView

	// Search
	SearchInput textinput.Model
	Matches     []library.Match
	MatchCursor int

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int
}

// NewModel creates the browser over lib. cache may be nil.
func NewModel(lib Library, cache CacheControl, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "artist or album"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	m := Model{
		State:       StateBrowsing,
		Library:     lib,
		Cache:       cache,
		logger:      logger,
		SearchInput: ti,
	}
	m.reload()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return coverRequestMsg{} },
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		return m, nil

	case tea.KeyMsg:
		if m.State == StateSearching {
			return m.handleSearchKey(msg)
		}
		return m.handleBrowseKey(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(tickInterval)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case coverRequestMsg:
		cmd := m.requestCover()
		return m, cmd

	case CoverLoadedMsg:
		// A result for a cover no longer on screen is dropped
		if msg.Key != m.Cover.Key || m.Cover.Status != CoverPending {
			return m, nil
		}
		m.applyCover(msg.Data, msg.Err)
		return m, nil
	}

	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Up):
		return m.moveTo(m.Cursor - 1)

	case key.Matches(msg, Keys.Down):
		return m.moveTo(m.Cursor + 1)

	case key.Matches(msg, Keys.Home):
		return m.moveTo(0)

	case key.Matches(msg, Keys.End):
		return m.moveTo(len(m.Records) - 1)

	case key.Matches(msg, Keys.Delete):
		if len(m.Records) == 0 {
			return m, nil
		}
		removed, err := m.Library.DeleteRecord(m.Cursor)
		m.reload()
		if err != nil && removed.Title == "" {
			cmd := m.setStatus(fmt.Sprintf("Delete failed: %v", err), true)
			return m, cmd
		}
		status := m.setStatus(fmt.Sprintf("Deleted %s (u to undo)", removed.Title), false)
		if err != nil {
			status = m.setStatus(fmt.Sprintf("Deleted %s but not saved: %v", removed.Title, err), true)
		}
		cover := m.requestCover()
		return m, tea.Batch(status, cover)

	case key.Matches(msg, Keys.Undo):
		restored, _, err := m.Library.UndoLastDelete()
		if errors.Is(err, domain.ErrNothingToUndo) {
			cmd := m.setStatus("Nothing to undo", false)
			return m, cmd
		}
		m.reload()
		status := m.setStatus(fmt.Sprintf("Restored %s", restored.Title), false)
		if err != nil {
			status = m.setStatus(fmt.Sprintf("Restored %s but not saved: %v", restored.Title, err), true)
		}
		cover := m.requestCover()
		return m, tea.Batch(status, cover)

	case key.Matches(msg, Keys.Search):
		m.State = StateSearching
		m.SearchInput.SetValue("")
		m.Matches = nil
		m.MatchCursor = 0
		cmd := m.SearchInput.Focus()
		return m, cmd

	case key.Matches(msg, Keys.ClearCache):
		if m.Cache == nil {
			return m, nil
		}
		m.Cache.ClearMemory()
		cmd := m.setStatus("Cleared cover memory cache", false)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.exitSearch()
		return m, nil

	case tea.KeyEnter:
		target := -1
		if m.MatchCursor < len(m.Matches) {
			target = m.Matches[m.MatchCursor].Index
		}
		m.exitSearch()
		if target < 0 {
			return m, nil
		}
		return m.moveTo(target)

	case tea.KeyUp:
		if m.MatchCursor > 0 {
			m.MatchCursor--
		}
		return m, nil

	case tea.KeyDown:
		if m.MatchCursor < len(m.Matches)-1 {
			m.MatchCursor++
		}
		return m, nil

	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	m.Matches = m.Library.Search(m.SearchInput.Value())
	m.MatchCursor = 0
	return m, cmd
}

func (m *Model) exitSearch() {
	m.State = StateBrowsing
	m.SearchInput.Blur()
	m.Matches = nil
	m.MatchCursor = 0
}

// moveTo selects index (clamped by the service) and looks up its cover
func (m Model) moveTo(index int) (tea.Model, tea.Cmd) {
	if len(m.Records) == 0 {
		return m, nil
	}
	sel := m.Library.SetSelection(index)
	if sel == m.Cursor && m.Cover.Status != CoverNone {
		return m, nil
	}
	m.Cursor = sel
	cmd := m.requestCover()
	return m, cmd
}

// reload refreshes the record list and cursor from the service
func (m *Model) reload() {
	m.Records = m.Library.Records()
	if sel, ok := m.Library.CurrentSelection(); ok {
		m.Cursor = sel
	} else {
		m.Cursor = 0
	}
}

// requestCover starts the lookup for the selected record. Cache hits land
// immediately; misses return a command that waits for the fetch.
func (m *Model) requestCover() tea.Cmd {
	if len(m.Records) == 0 {
		m.Cover = CoverView{}
		return nil
	}

	lookup, err := m.Library.CoverImage(m.Cursor)
	if err != nil {
		m.Cover = CoverView{Status: CoverFailed, Err: err}
		return nil
	}

	m.Cover = CoverView{Key: lookup.Key, Status: CoverPending}
	if lookup.Ready() {
		m.applyCover(lookup.Data, nil)
		return nil
	}
	return WaitCoverCmd(lookup.Key, lookup.Pending)
}

func (m *Model) applyCover(data []byte, err error) {
	if err == nil {
		var info artwork.ImageInfo
		if info, err = artwork.Describe(data); err == nil {
			m.Cover.Status = CoverReady
			m.Cover.Info = info
			m.Cover.Err = nil
			return
		}
	}
	m.logger.Debug("cover unavailable", "key", m.Cover.Key, "error", err)
	m.Cover.Status = CoverFailed
	m.Cover.Err = err
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(statusTTL)
}
