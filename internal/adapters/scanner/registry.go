// Package scanner walks source roots and extracts structural file
// summaries through per-language parsers.
package scanner

import (
	"path/filepath"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
)

// LanguageParser defines the interface each supported language implements.
type LanguageParser interface {
	// Language returns the language name (e.g. "go", "python").
	Language() string

	// Extensions returns the file extensions this parser handles.
	Extensions() []string

	// Parse extracts the structural summary from source code.
	Parse(path string, content []byte) (domain.FileSummary, error)
}

// Registry maps file extensions to language parsers.
type Registry struct {
	parsers   map[string]LanguageParser
	extToLang map[string]string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// NewDefaultRegistry creates a registry with all supported language parsers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoParser())
	r.Register(NewPythonParser())
	r.Register(NewJavaScriptParser())
	return r
}

// Register adds a language parser to the registry.
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[ext] = lang
	}
}

// ParserFor returns the parser responsible for the given file, if any.
func (r *Registry) ParserFor(path string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	p, ok := r.parsers[lang]
	return p, ok
}
