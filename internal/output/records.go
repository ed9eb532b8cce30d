package output

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mmcdole/crate/internal/domain"
)

// IndexedRecord is a record with its catalog position.
type IndexedRecord struct {
	Index    int           `json:"index" yaml:"index"`
	Selected bool          `json:"selected,omitempty" yaml:"selected,omitempty"`
	Record   domain.Record `json:"record" yaml:"record"`
}

// RecordList renders the catalog. Selected is -1 when nothing is selected.
type RecordList struct {
	Records  []domain.Record
	Selected int
}

func (l RecordList) Value() any {
	out := make([]IndexedRecord, len(l.Records))
	for i, r := range l.Records {
		out[i] = IndexedRecord{Index: i, Selected: i == l.Selected, Record: r}
	}
	return out
}

func (l RecordList) Table() Data {
	data := Data{
		Headers:    []string{"#", "Artist", "Album", "Genre", "Year"},
		RightAlign: []int{0},
	}
	for i, r := range l.Records {
		idx := strconv.Itoa(i)
		if i == l.Selected {
			idx = "*" + idx
		}
		data.Rows = append(data.Rows, []string{idx, r.Artist, r.Title, r.Genre, r.Year})
	}
	return data
}

// RecordDetail renders one record as label/value rows.
type RecordDetail struct {
	Index  int
	Record domain.Record
}

func (d RecordDetail) Value() any {
	return IndexedRecord{Index: d.Index, Record: d.Record}
}

func (d RecordDetail) Table() Data {
	titles, values := d.Record.TableRepresentation()
	data := Data{Headers: []string{"Field", "Value"}}
	for i := range titles {
		data.Rows = append(data.Rows, []string{titles[i], values[i]})
	}
	data.Rows = append(data.Rows, []string{"Cover", d.Record.CoverRef})
	return data
}

// SearchHit is one search result.
type SearchHit struct {
	Index  int           `json:"index" yaml:"index"`
	Score  int           `json:"score" yaml:"score"`
	Record domain.Record `json:"record" yaml:"record"`
}

// SearchResults renders ranked matches.
type SearchResults []SearchHit

func (s SearchResults) Value() any { return []SearchHit(s) }

func (s SearchResults) Table() Data {
	data := Data{
		Headers:    []string{"#", "Artist", "Album", "Score"},
		RightAlign: []int{0, 3},
	}
	for _, h := range s {
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(h.Index), h.Record.Artist, h.Record.Title, strconv.Itoa(h.Score),
		})
	}
	return data
}

// Field is a named value in a KeyValues table.
type Field struct {
	Key   string
	Value any
}

// KeyValues renders snake_case keys as a two-column table and as a map.
type KeyValues []Field

func (kv KeyValues) Value() any {
	out := make(map[string]any, len(kv))
	for _, f := range kv {
		out[f.Key] = f.Value
	}
	return out
}

func (kv KeyValues) Table() Data {
	caser := cases.Title(language.English)
	data := Data{Headers: []string{"Property", "Value"}}
	for _, f := range kv {
		label := caser.String(strings.ReplaceAll(f.Key, "_", " "))
		data.Rows = append(data.Rows, []string{label, toString(f.Value)})
	}
	return data
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
