package knowledge

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTopK is used when the caller passes a non-positive limit.
const DefaultTopK = 3

// Result is a scored reference to a corpus document.
type Result struct {
	doc   *Document
	score float64
}

// NewResult creates a Result (tests, hydration).
func NewResult(doc *Document, score float64) Result { return Result{doc: doc, score: score} }

// Document returns the matched document, owned by the corpus.
func (r Result) Document() *Document { return r.doc }

// Score returns the keyword overlap ratio in (0,1].
func (r Result) Score() float64 { return r.score }

// Retrieve ranks corpus documents by the fraction of their keywords that occur
// in the lower-cased query. Zero-score documents are dropped; ties keep corpus order.
func Retrieve(query string, corpus *Corpus, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	q := strings.TrimSpace(query)
	if q == "" || corpus.Len() == 0 {
		return []Result{}
	}
	// Caser carries state; one per call.
	q = cases.Lower(language.Und).String(q)

	results := make([]Result, 0, corpus.Len())
	for i := 0; i < corpus.Len(); i++ {
		doc := corpus.At(i)
		if s := overlap(q, doc.keywords); s > 0 {
			results = append(results, Result{doc: doc, score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func overlap(query string, keywords []string) float64 {
	var matched int
	for _, k := range keywords {
		if strings.Contains(query, k) {
			matched++
		}
	}
	n := len(keywords)
	if n < 1 {
		n = 1
	}
	return float64(matched) / float64(n)
}
