package knowledge

import "fmt"

// Corpus is a fixed, versioned, read-only set of documents.
// Safe for concurrent reads once constructed.
type Corpus struct {
	version string
	docs    []Document
}

// NewCorpus builds a corpus, rejecting duplicate IDs. Order is preserved.
func NewCorpus(version string, docs ...Document) (*Corpus, error) {
	seen := make(map[string]bool, len(docs))
	for i := range docs {
		id := docs[i].ID()
		if seen[id] {
			return nil, fmt.Errorf("duplicate document ID %q", id)
		}
		seen[id] = true
	}
	return &Corpus{version: version, docs: append([]Document(nil), docs...)}, nil
}

// Version returns the corpus version label.
func (c *Corpus) Version() string {
	if c == nil {
		return ""
	}
	return c.version
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// At returns the i-th document. The pointer is shared and must not be modified.
func (c *Corpus) At(i int) *Document { return &c.docs[i] }

// Get looks up a document by ID.
func (c *Corpus) Get(id string) (*Document, bool) {
	for i := 0; i < c.Len(); i++ {
		if c.docs[i].ID() == id {
			return &c.docs[i], true
		}
	}
	return nil, false
}

// Summary is the listing form of a document, without body.
type Summary struct {
	ID       string
	Title    string
	Source   string
	Keywords []string
}

// Listing returns summaries of every document in corpus order.
func (c *Corpus) Listing() []Summary {
	out := make([]Summary, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		d := &c.docs[i]
		out = append(out, Summary{ID: d.ID(), Title: d.Title(), Source: d.Source(), Keywords: d.Keywords()})
	}
	return out
}
