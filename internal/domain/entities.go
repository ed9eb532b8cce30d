package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Record is one catalog entry. It is a plain value: copy it freely.
// Construct records with NewRecord so every field is validated.
type Record struct {
	Title    string `json:"title" yaml:"title"`
	Artist   string `json:"artist" yaml:"artist"`
	Genre    string `json:"genre" yaml:"genre"`
	CoverRef string `json:"cover_url" yaml:"cover_url"`
	Year     string `json:"year" yaml:"year"`
}

// NewRecord trims and validates every field. All five fields are required.
func NewRecord(title, artist, genre, coverRef, year string) (Record, error) {
	r := Record{
		Title:    strings.TrimSpace(title),
		Artist:   strings.TrimSpace(artist),
		Genre:    strings.TrimSpace(genre),
		CoverRef: strings.TrimSpace(coverRef),
		Year:     strings.TrimSpace(year),
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate reports the first empty field.
func (r Record) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"artist", r.Artist},
		{"genre", r.Genre},
		{"cover_url", r.CoverRef},
		{"year", r.Year},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError(f.name, "must not be empty")
		}
	}
	return nil
}

// TableRepresentation returns the label/value pairs shown in detail views.
func (r Record) TableRepresentation() (titles, values []string) {
	return []string{"Artist", "Album", "Genre", "Year"},
		[]string{r.Artist, r.Title, r.Genre, r.Year}
}

// CacheKey returns the artwork cache key for this record's cover.
func (r Record) CacheKey() string {
	return CacheKey(r.CoverRef)
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CacheKey derives the cache key for a cover reference: its last path
// segment with query and fragment stripped, reduced to filename-safe
// characters. References without a usable segment hash to a short hex key.
func CacheKey(coverRef string) string {
	ref := strings.TrimSpace(coverRef)

	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	seg := path.Base(strings.ReplaceAll(p, "\\", "/"))
	seg = unsafeKeyChars.ReplaceAllString(seg, "_")
	seg = strings.Trim(seg, "._")
	if seg != "" {
		return seg
	}

	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:6])
}
