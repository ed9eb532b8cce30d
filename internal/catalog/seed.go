package catalog

import "github.com/mmcdole/crate/internal/domain"

const placeholderCover = "https://ksassets.timeincuk.net/wp/uploads/sites/55/2015/05/2013bowieddavidBowie600g080313.jpg"

// Placeholders returns the built-in albums used to seed an empty library.
func Placeholders() []domain.Record {
	return []domain.Record{
		{Title: "Best of Bowie", Artist: "David Bowie", Genre: "Pop", CoverRef: placeholderCover, Year: "1992"},
		{Title: "It's My Life", Artist: "No Doubt", Genre: "Pop", CoverRef: placeholderCover, Year: "2003"},
		{Title: "Nothing Like The Sun", Artist: "Sting", Genre: "Pop", CoverRef: placeholderCover, Year: "1999"},
		{Title: "Staring at the Sun", Artist: "U2", Genre: "Pop", CoverRef: placeholderCover, Year: "2000"},
		{Title: "American Pie", Artist: "Madonna", Genre: "Pop", CoverRef: placeholderCover, Year: "2000"},
	}
}
