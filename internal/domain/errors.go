package domain

import "errors"

// KeyPrefix namespaces every key agroverse writes to the key-value store.
const KeyPrefix = "agroverse:"

var (
	// ErrInvalidFeature signals a measurement of the wrong type (e.g. a string where a number is required).
	ErrInvalidFeature = errors.New("invalid feature")
	// ErrEmptyQuery signals a missing advisory query.
	ErrEmptyQuery = errors.New("query is required")
	// ErrImageRequired signals a vision request without an image payload.
	ErrImageRequired = errors.New("image is required")
	// ErrInvalidImage signals an image payload that is not valid base64.
	ErrInvalidImage = errors.New("invalid image encoding")

	// ErrGenerationTimeout signals that the generative service did not answer in time.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrGenerationUnavailable signals a transport failure or non-2xx reply from the generative service.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrGenerationMalformed signals a reply without usable text.
	ErrGenerationMalformed = errors.New("malformed generation reply")
	// ErrGenerationBudgetExceeded signals an exhausted generation token budget.
	ErrGenerationBudgetExceeded = errors.New("generation budget exceeded")
	// ErrImageNotSupported signals a provider without vision input.
	ErrImageNotSupported = errors.New("image input not supported by provider")
)

// IsGenerationError reports whether err originates at the generation gateway boundary.
func IsGenerationError(err error) bool {
	return errors.Is(err, ErrGenerationTimeout) ||
		errors.Is(err, ErrGenerationUnavailable) ||
		errors.Is(err, ErrGenerationMalformed) ||
		errors.Is(err, ErrGenerationBudgetExceeded) ||
		errors.Is(err, ErrImageNotSupported)
}
