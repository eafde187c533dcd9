// Package registry selects the parser for a statement file by filename and
// header sniffing.
package registry

import (
	"fmt"

	"github.com/guiplbarros-ai/extrato/internal/parser"
	"github.com/guiplbarros-ai/extrato/internal/parsers/csvparse"
	"github.com/guiplbarros-ai/extrato/internal/parsers/ofxparse"
)

// HeaderSize is how many leading bytes FindParser inspects. Enough for the
// OFX header markers and a CSV header row.
const HeaderSize = 512

// Registry holds all registered parsers. OFX is tried before CSV because CSV
// accepts generic text extensions.
type Registry struct {
	parsers []parser.Parser
}

// New creates a registry with all built-in parsers.
func New() *Registry {
	return &Registry{
		parsers: []parser.Parser{
			ofxparse.NewParser(),
			csvparse.NewParser(),
		},
	}
}

// Register adds a custom parser.
func (r *Registry) Register(p parser.Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser returns the first parser claiming the file, given its name and
// a raw header sample (up to HeaderSize bytes).
func (r *Registry) FindParser(filename string, header []byte) (parser.Parser, error) {
	if len(header) > HeaderSize {
		header = header[:HeaderSize]
	}
	for _, p := range r.parsers {
		if p.CanParse(filename, header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no parser found for file: %s", filename)
}

// ByName returns the parser with the given name, for explicit format
// overrides.
func (r *Registry) ByName(name string) (parser.Parser, error) {
	for _, p := range r.parsers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown parser: %s", name)
}

// ListParsers returns the names of all registered parsers.
func (r *Registry) ListParsers() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}
