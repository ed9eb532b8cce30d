package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/artwork"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/output"
	"github.com/mmcdole/crate/internal/store"
)

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return i, nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var genre string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in catalog order",
		Example: `  crate list
  crate list --genre pop -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, genre)
		},
	}
	cmd.Flags().StringVar(&genre, "genre", "", "only records whose genre matches")
	return cmd
}

func runList(cmd *cobra.Command, opts *rootOptions, genre string) error {
	return withApp(opts, func(a *app) error {
		records := a.svc.Records()
		selected, ok := a.svc.CurrentSelection()
		if !ok {
			selected = -1
		}
		if genre == "" {
			return render(cmd, opts, output.RecordList{Records: records, Selected: selected})
		}

		// Filtered rows keep their catalog index.
		var hits output.SearchResults
		for _, i := range a.svc.FilterGenre(genre) {
			hits = append(hits, output.SearchHit{Index: i, Record: records[i]})
		}
		return render(cmd, opts, hits)
	})
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show INDEX",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				r, err := a.svc.Record(index)
				if err != nil {
					return err
				}
				return render(cmd, opts, output.RecordDetail{Index: index, Record: r})
			})
		},
	}
}

type addOptions struct {
	title, artist, genre, cover, year string
	fromMP3                           string
	index                             int
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	add := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Long: `Add a record at --index, or at the end when --index is omitted.

With --from-mp3 the record is read from the file's ID3 tags and its embedded
picture becomes the cover. Explicit flags override the tags.`,
		Example: `  crate add --title Bad --artist "Michael Jackson" --genre Pop --year 1987 --cover https://example.com/bad.jpg
  crate add --from-mp3 ~/Music/track01.mp3 --index 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := add.record()
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				index := add.index
				if !cmd.Flags().Changed("index") {
					index = a.svc.Len()
				}
				n, err := a.svc.AddRecord(record, index)
				if err != nil {
					return err
				}
				at, _ := a.svc.CurrentSelection()
				return render(cmd, opts, output.KeyValues{
					{Key: "added", Value: record.Title},
					{Key: "index", Value: at},
					{Key: "records", Value: n},
				})
			})
		},
	}

	cmd.Flags().StringVar(&add.title, "title", "", "album title")
	cmd.Flags().StringVar(&add.artist, "artist", "", "artist")
	cmd.Flags().StringVar(&add.genre, "genre", "", "genre")
	cmd.Flags().StringVar(&add.cover, "cover", "", "cover reference: URL, path or id3:// reference")
	cmd.Flags().StringVar(&add.year, "year", "", "release year")
	cmd.Flags().IntVar(&add.index, "index", 0, "insert position (clamped to the catalog)")
	cmd.Flags().StringVar(&add.fromMP3, "from-mp3", "", "read the record from an MP3 file's tags")
	return cmd
}

func (o *addOptions) record() (domain.Record, error) {
	if o.fromMP3 == "" {
		return domain.NewRecord(o.title, o.artist, o.genre, o.cover, o.year)
	}

	r, err := adapter.ReadMP3Record(o.fromMP3)
	if err != nil && !errors.Is(err, domain.ErrInvalidRecord) {
		return domain.Record{}, err
	}
	return domain.NewRecord(
		override(r.Title, o.title),
		override(r.Artist, o.artist),
		override(r.Genre, o.genre),
		override(r.CoverRef, o.cover),
		override(r.Year, o.year),
	)
}

func override(tag, flag string) string {
	if flag != "" {
		return flag
	}
	return tag
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete INDEX",
		Aliases: []string{"rm"},
		Short:   "Delete a record (undoable)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				r, err := a.svc.DeleteRecord(index)
				if err != nil {
					return err
				}
				return render(cmd, opts, output.KeyValues{
					{Key: "deleted", Value: r.Title},
					{Key: "index", Value: index},
					{Key: "records", Value: a.svc.Len()},
				})
			})
		},
	}
}

func newUndoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the most recently deleted record",
		Long: `Restore the most recently deleted record at its old position.

The undo history survives between runs unless undo.persist is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				r, index, err := a.svc.UndoLastDelete()
				if err != nil {
					return err
				}
				return render(cmd, opts, output.KeyValues{
					{Key: "restored", Value: r.Title},
					{Key: "index", Value: index},
					{Key: "records", Value: a.svc.Len()},
				})
			})
		},
	}
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select [INDEX]",
		Short: "Show or set the selected record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := -1
			if len(args) == 1 {
				i, err := parseIndex(args[0])
				if err != nil {
					return err
				}
				index = i
			}
			return withApp(opts, func(a *app) error {
				if len(args) == 1 {
					a.svc.SetSelection(index)
				}
				selected, ok := a.svc.CurrentSelection()
				if !ok {
					return render(cmd, opts, output.KeyValues{{Key: "selected", Value: "none"}})
				}
				r, err := a.svc.Record(selected)
				if err != nil {
					return err
				}
				return render(cmd, opts, output.RecordDetail{Index: selected, Record: r})
			})
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "search QUERY",
		Short:   "Fuzzy search by artist and album",
		Example: `  crate search "jackson bad"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(opts, func(a *app) error {
				matches := a.svc.Search(query)
				hits := make(output.SearchResults, 0, len(matches))
				for _, m := range matches {
					hits = append(hits, output.SearchHit{Index: m.Index, Score: m.Score, Record: m.Record})
				}
				return render(cmd, opts, hits)
			})
		},
	}
}

func newCoverCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "cover INDEX",
		Short: "Fetch a record's cover art",
		Long: `Fetch the cover for a record through the cache, then describe it or
write it to --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				r, err := a.svc.Record(index)
				if err != nil {
					return err
				}
				lookup, err := a.svc.CoverImage(index)
				if err != nil {
					return err
				}

				source := "cache"
				data := lookup.Data
				if !lookup.Ready() {
					source = "fetched"
					data, err = a.covers.Wait(cmd.Context(), r.CoverRef)
					if err != nil {
						return err
					}
				}

				info, err := artwork.Describe(data)
				if err != nil {
					return err
				}
				fields := output.KeyValues{
					{Key: "key", Value: lookup.Key},
					{Key: "format", Value: info.Format},
					{Key: "width", Value: info.Width},
					{Key: "height", Value: info.Height},
					{Key: "size", Value: info.Size},
					{Key: "source", Value: source},
				}
				if out != "" {
					if err := store.WriteFileAtomic(out, data); err != nil {
						return fmt.Errorf("failed to write cover: %w", err)
					}
					fields = append(fields, output.Field{Key: "written_to", Value: out})
				}
				return render(cmd, opts, fields)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the image bytes to this file")
	return cmd
}

func newPrefetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch",
		Short: "Warm the cover cache for every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				records := a.svc.Records()
				refs := make([]string, len(records))
				for i, r := range records {
					refs[i] = r.CoverRef
				}

				report, err := a.covers.Prefetch(cmd.Context(), refs, a.cfg.Cache.PrefetchConcurrency)
				if err != nil {
					return err
				}
				stats := a.covers.Stats()
				return render(cmd, opts, output.KeyValues{
					{Key: "covers", Value: report.Keys},
					{Key: "cached", Value: report.Cached},
					{Key: "failed", Value: report.Failed},
					{Key: "disk_hits", Value: stats.DiskHits},
					{Key: "fetches", Value: stats.Fetches},
				})
			})
		},
	}
}
