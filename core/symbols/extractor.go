// Package symbols wraps the tree-sitter based code-symbol extractor as an
// external collaborator: a pure function
// extract_symbols(source, language) -> [Symbol]. The core never parses
// source code itself.
package symbols

// Symbol is one code-level entity discovered in a source file (function,
// type, constant, ...). Kind is left as a free-form string since the
// concrete symbol taxonomy belongs to the extractor, not the core.
type Symbol struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int
}

// Extractor is the minimal contract the engine consumes.
type Extractor interface {
	Extract(source []byte, language string) ([]Symbol, error)
}

// NullExtractor implements Extractor by returning no symbols for any
// input; used when no concrete tree-sitter binding has been wired, so
// callers that accept Symbol nodes keep working without a Symbol kind
// ever being produced.
type NullExtractor struct{}

// Extract always returns an empty, error-free result.
func (NullExtractor) Extract(source []byte, language string) ([]Symbol, error) {
	return nil, nil
}
