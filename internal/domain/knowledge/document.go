package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Document is one entry of the agronomic corpus (immutable value object).
type Document struct {
	id        string
	title     string
	source    string
	body      string
	keywords  []string
	embedding []float32
}

// NewDocument validates and creates a Document.
// Keywords are lower-cased and de-duplicated, first occurrence wins.
func NewDocument(id, title, source, body string, keywords []string, embedding []float32) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if strings.TrimSpace(title) == "" {
		return Document{}, fmt.Errorf("document %s: title is required", id)
	}
	if strings.TrimSpace(body) == "" {
		return Document{}, fmt.Errorf("document %s: body is required", id)
	}

	lower := cases.Lower(language.Und)
	seen := make(map[string]bool, len(keywords))
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(lower.String(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		kw = append(kw, k)
	}

	var emb []float32
	if len(embedding) > 0 {
		emb = append([]float32(nil), embedding...)
	}

	return Document{id: id, title: title, source: source, body: body, keywords: kw, embedding: emb}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Source returns the citing organization and publication.
func (d *Document) Source() string { return d.source }

// Body returns the full text.
func (d *Document) Body() string { return d.body }

// Keywords returns the ordered keyword set.
func (d *Document) Keywords() []string { return append([]string(nil), d.keywords...) }

// Embedding returns the stored vector. Ranking does not use it.
func (d *Document) Embedding() []float32 { return append([]float32(nil), d.embedding...) }
