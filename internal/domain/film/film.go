package film

import (
	"strconv"
	"strings"
)

// Document is the unit indexed by both retrieval paths.
type Document struct {
	id    int64
	title string
	text  string
}

// NewDocument creates a document value.
func NewDocument(id int64, title, text string) Document {
	return Document{id: id, title: title, text: text}
}

// ID returns the film identifier.
func (d Document) ID() int64 { return d.id }

// Title returns the film title.
func (d Document) Title() string { return d.title }

// Text returns the searchable body.
func (d Document) Text() string { return d.text }

// SearchText is the concatenation tokenized by the sparse index.
func (d Document) SearchText() string {
	if d.title == "" {
		return d.text
	}
	return d.title + " " + d.text
}

// Film is a corpus row as stored by the catalogue.
type Film struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Year        int     `json:"year,omitempty"`
	Region      string  `json:"region,omitempty"`
	Director    string  `json:"director,omitempty"`
	Actors      string  `json:"actors,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	CoverURL    string  `json:"cover_url,omitempty"`
}

// Content renders the labelled description fed to the embedding model
// and the sparse tokenizer. Empty fields are skipped.
func (f *Film) Content() string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+value)
		}
	}

	add("电影名称：", f.Title)
	add("类型：", f.Category)
	if f.Year > 0 {
		add("年份：", strconv.Itoa(f.Year))
	}
	add("地区：", f.Region)
	add("导演：", f.Director)
	add("主演：", f.Actors)
	if f.Rating > 0 {
		add("评分：", strconv.FormatFloat(f.Rating, 'f', 1, 64))
	}
	add("简介：", f.Description)

	return strings.Join(lines, "\n")
}

// Document derives the indexed document.
func (f *Film) Document() Document {
	return NewDocument(f.ID, f.Title, f.Content())
}

// Documents converts a slice of films preserving order.
func Documents(films []Film) []Document {
	docs := make([]Document, len(films))
	for i := range films {
		docs[i] = films[i].Document()
	}
	return docs
}
