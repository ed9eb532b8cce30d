package library

import (
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/crate/internal/domain"
)

// Match is one search hit. MatchedIndexes are byte offsets into Text.
type Match struct {
	Index          int
	Record         domain.Record
	Text           string
	MatchedIndexes []int
	Score          int
}

// searchIndex implements fuzzy.Source over "<artist> <title>". The
// matcher folds case itself, so the text is kept as displayed.
type searchIndex struct {
	records []domain.Record
	text    []string
}

func newSearchIndex(records []domain.Record) *searchIndex {
	idx := &searchIndex{records: records, text: make([]string, len(records))}
	for i, r := range records {
		idx.text[i] = searchText(r)
	}
	return idx
}

func (idx *searchIndex) String(i int) string { return idx.text[i] }
func (idx *searchIndex) Len() int            { return len(idx.records) }

func searchText(r domain.Record) string {
	return r.Artist + " " + r.Title
}

// Search ranks records against query, best first.
func (s *Service) Search(query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	idx := newSearchIndex(s.Records())
	found := fuzzy.FindFrom(query, idx)

	matches := make([]Match, len(found))
	for i, m := range found {
		r := idx.records[m.Index]
		matches[i] = Match{
			Index:          m.Index,
			Record:         r,
			Text:           idx.text[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	s.logger.Debug("search", "query", query, "results", len(matches))
	return matches
}

// FilterGenre returns the indexes of records whose genre fuzzily contains
// genre, ignoring case and diacritics. An empty genre matches everything.
func (s *Service) FilterGenre(genre string) []int {
	genre = strings.TrimSpace(genre)

	var out []int
	for i, r := range s.Records() {
		if genre == "" || lfuzzy.MatchNormalizedFold(genre, r.Genre) {
			out = append(out, i)
		}
	}
	return out
}
