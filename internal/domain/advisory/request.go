package advisory

import (
	"github.com/kailas-cloud/agroverse/internal/domain"
	"github.com/kailas-cloud/agroverse/internal/domain/knowledge"
)

// UserContext is optional information about the farmer asking.
type UserContext struct {
	Crops      []string
	Location   string
	Experience string
}

// Request is an assembled advisory prompt with its provenance (immutable).
type Request struct {
	query     string
	results   []knowledge.Result
	user      *UserContext
	image     []byte
	imageMIME string
	prompt    string
	sources   []string
}

// Query returns the farmer question, verbatim.
func (r Request) Query() string { return r.query }

// Results returns the retrieval results the prompt was built from, in rank order.
func (r Request) Results() []knowledge.Result {
	return append([]knowledge.Result(nil), r.results...)
}

// User returns the user context, nil when absent.
func (r Request) User() *UserContext {
	if r.user == nil {
		return nil
	}
	uc := *r.user
	uc.Crops = append([]string(nil), r.user.Crops...)
	return &uc
}

// Prompt returns the assembled prompt text.
func (r Request) Prompt() string { return r.prompt }

// Sources returns the cited sources in rank order, duplicates kept.
func (r Request) Sources() []string { return append([]string(nil), r.sources...) }

// HasImage reports whether an image is attached.
func (r Request) HasImage() bool { return len(r.image) > 0 }

// WithImage returns a copy of the request carrying an inline image.
func (r Request) WithImage(image []byte, mime string) Request {
	r.image = append([]byte(nil), image...)
	r.imageMIME = mime
	return r
}

// Generation returns the gateway prompt for this request.
func (r Request) Generation() domain.Prompt {
	return domain.Prompt{Text: r.prompt, Image: r.image, ImageMIME: r.imageMIME}
}
