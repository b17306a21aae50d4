package translator

import (
	"context"
)

// Request is a single span of text to translate.
type Request struct {
	Text   string
	Source string
	Target string

	// Credential is an abuse-exemption cookie. Backends that have no use for it ignore it.
	Credential string
	// DetectBlock makes a backend inspect failed responses for a human-verification
	// challenge and report it as *BlockedError instead of *HTTPError.
	DetectBlock bool
}

// Translator is one translation backend. Implementations make exactly one
// outbound call per Translate and never retry on their own.
type Translator interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}
