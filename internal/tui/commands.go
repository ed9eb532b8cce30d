package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/crate/internal/artwork"
)

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// WaitCoverCmd blocks on a pending lookup off the update loop
func WaitCoverCmd(key string, pending <-chan artwork.Result) tea.Cmd {
	return func() tea.Msg {
		res := <-pending
		return CoverLoadedMsg{Key: key, Data: res.Data, Err: res.Err}
	}
}
