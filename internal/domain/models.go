package domain

// Domain contains core models and interfaces.

// Page is a single URL discovered from a source.
type Page struct {
	ID            string
	SourceID      string
	URL           string
	NormalizedURL string
}
