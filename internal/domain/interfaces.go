package domain

import "context"

// CoverFetcher is the remote artwork source. Given a cover reference it
// returns the raw image bytes or fails. One attempt per call.
type CoverFetcher interface {
	Fetch(ctx context.Context, coverRef string) ([]byte, error)
}

// CoverFetcherFunc adapts a function to CoverFetcher.
type CoverFetcherFunc func(ctx context.Context, coverRef string) ([]byte, error)

// Fetch implements CoverFetcher.
func (f CoverFetcherFunc) Fetch(ctx context.Context, coverRef string) ([]byte, error) {
	return f(ctx, coverRef)
}

// UndoEntry pairs a removed record with the index it occupied.
type UndoEntry struct {
	Record Record `json:"record"`
	Index  int    `json:"index"`
}
