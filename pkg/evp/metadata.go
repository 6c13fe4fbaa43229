package evp

import (
	"errors"
	"unicode/utf8"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

var errIndexOutOfRange = errors.New("index out of range")

// Title returns the package's title.
func (p *Package) Title() string { return p.title }

// SetTitle sets the package's title, enforcing the 1..30 character
// invariant from spec.md 3.
func (p *Package) SetTitle(title string) error {
	if len(title) == 0 {
		return &evperrors.NameEmpty{Field: "title"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return &evperrors.NameTooLong{Field: "title", Max: maxTitleLen}
	}
	p.title = title
	p.markDirty()
	return nil
}

// Description returns the package's optional description.
func (p *Package) Description() string { return p.description }

// SetDescription sets the package's optional description.
func (p *Package) SetDescription(desc string) {
	p.description = desc
	p.markDirty()
}

// Authors returns the package's authors in order.
func (p *Package) Authors() []Author {
	out := make([]Author, len(p.authors))
	copy(out, p.authors)
	return out
}

// AddAuthor appends an author. name must not be empty.
func (p *Package) AddAuthor(name, email string) error {
	if name == "" {
		return &evperrors.NameEmpty{Field: "author name"}
	}
	p.authors = append(p.authors, Author{Name: name, Email: email})
	p.markDirty()
	return nil
}

// RemoveAuthor removes the author at index i.
func (p *Package) RemoveAuthor(i int) error {
	if i < 0 || i >= len(p.authors) {
		return &evperrors.Io{Op: "evp: remove author", Err: errIndexOutOfRange}
	}
	p.authors = append(p.authors[:i], p.authors[i+1:]...)
	p.markDirty()
	return nil
}
