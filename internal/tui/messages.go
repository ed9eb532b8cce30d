package tui

// Message types for the TUI

// TickMsg drives the spinner animation
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// CoverLoadedMsg delivers the outcome of a pending cover lookup
type CoverLoadedMsg struct {
	Key  string
	Data []byte
	Err  error
}
