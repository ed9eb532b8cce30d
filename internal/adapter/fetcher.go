package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/mitchellh/go-homedir"

	"github.com/mmcdole/crate/internal/domain"
)

// ID3Scheme marks cover references that point at artwork embedded in an MP3.
const ID3Scheme = "id3"

// maxCoverBytes bounds a single HTTP download.
const maxCoverBytes = 32 << 20

var (
	errNoPicture     = errors.New("no embedded picture")
	errCoverTooLarge = errors.New("cover exceeds size limit")
)

// Fetcher routes cover references to HTTP, the local filesystem or ID3
// picture frames. Each call makes one attempt.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

var _ domain.CoverFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher from the fetch config.
func NewFetcher(cfg FetchConfig) *Fetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = "crate/1.0"
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  ua,
		maxBytes:   maxCoverBytes,
	}
}

// Fetch implements domain.CoverFetcher.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters
		return readLocal(ref)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, ref)
	case "file":
		return readLocal(u.Path)
	case ID3Scheme:
		return readEmbeddedPicture(u.Path)
	default:
		return nil, fmt.Errorf("unsupported cover scheme %q", u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// One byte past the limit tells a full body from a truncated one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", errCoverTooLarge, f.maxBytes)
	}
	return data, nil
}

func readLocal(path string) ([]byte, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(expanded)
}

// readEmbeddedPicture returns the first APIC frame of an MP3.
func readEmbeddedPicture(path string) ([]byte, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Attached picture"}})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer tag.Close()

	for _, frame := range tag.GetFrames(tag.CommonID("Attached picture")) {
		if pic, ok := frame.(id3v2.PictureFrame); ok && len(pic.Picture) > 0 {
			return pic.Picture, nil
		}
	}
	return nil, errNoPicture
}

// ID3CoverRef builds the cover reference for artwork embedded in path.
func ID3CoverRef(path string) string {
	u := url.URL{Scheme: ID3Scheme, Path: filepath.ToSlash(path)}
	return u.String()
}

// ReadMP3Record builds a record from an MP3's ID3 tags. The album tag is
// the record title, falling back to the track title. The cover points at
// the file's embedded picture. When a tag is missing the partial record is
// returned along with the validation error.
func ReadMP3Record(path string) (domain.Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Record{}, err
	}

	tag, err := id3v2.Open(abs, id3v2.Options{Parse: true})
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to read tags: %w", err)
	}
	defer tag.Close()

	title := tag.Album()
	if strings.TrimSpace(title) == "" {
		title = tag.Title()
	}
	year := tag.Year()
	if len(year) > 4 {
		// TDRC may carry a full date
		year = year[:4]
	}

	r, err := domain.NewRecord(title, tag.Artist(), tag.Genre(), ID3CoverRef(abs), year)
	if err != nil {
		return domain.Record{
			Title:    strings.TrimSpace(title),
			Artist:   strings.TrimSpace(tag.Artist()),
			Genre:    strings.TrimSpace(tag.Genre()),
			CoverRef: ID3CoverRef(abs),
			Year:     strings.TrimSpace(year),
		}, err
	}
	return r, nil
}
