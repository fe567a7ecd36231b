// Package adapter defines the per-language scanning contract and the
// shared reference-resolution phase. Each language adapter walks the
// AST of one file and emits definitions into an IR plus raw
// references; after all files are scanned and the symbol table is
// built, ResolveRefs turns the raw references into graph edges.
package adapter

import (
	"fmt"

	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
	"github.com/AperturePlus/synapse/internal/symtab"
)

// SourceFile is one file handed to an adapter. RelPath is the
// normalized forward-slash path relative to the project root and is
// what ends up in entity attributes.
type SourceFile struct {
	Path     string
	RelPath  string
	Language lang.Language
	Content  []byte
}

// RefKind distinguishes the resolution strategy for a raw reference.
type RefKind int

const (
	// RefCall is a call site: resolved against callables by name and
	// arity.
	RefCall RefKind = iota
	// RefType is a type reference (extends, implements, embeds):
	// resolved against types through the file's import context.
	RefType
	// RefImport is a module import: resolved against modules by
	// qualified name.
	RefImport
)

// RawRef is a reference collected during the definition scan, resolved
// later once the full symbol table exists.
type RawRef struct {
	Kind     RefKind
	Rel      ir.RelType
	SourceID string
	// Name is the reference as written: a type name, an import path,
	// or a call target ("run", "svc.run").
	Name string
	// EnclosingTypeQN scopes call resolution to the surrounding type.
	EnclosingTypeQN string
	// Argc is the call-site argument count for RefCall.
	Argc int
	Line int
}

// FileResult is the output of scanning one file.
type FileResult struct {
	File SourceFile
	IR   *ir.IR
	Ctx  symtab.FileContext
	Refs []RawRef
}

// Adapter scans files of one language.
type Adapter interface {
	Language() lang.Language
	// Scan parses the file and extracts its definitions and raw
	// references. A syntactically broken file returns a ParseError;
	// the pipeline skips it and keeps going.
	Scan(project string, file SourceFile) (*FileResult, error)
}

// ParseError reports a file the adapter could not parse. The scan
// continues past it; the file is counted as skipped.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Registry holds the configured adapters for a scan.
type Registry struct {
	adapters map[lang.Language]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[lang.Language]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Language()] = a
	}
	return r
}

// For returns the adapter for a language. The language set is closed;
// an unknown language is a programming error surfaced as an error, not
// a silent skip.
func (r *Registry) For(l lang.Language) (Adapter, error) {
	a, ok := r.adapters[l]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for language %q", l)
	}
	return a, nil
}

// Languages returns the languages this registry can scan.
func (r *Registry) Languages() []lang.Language {
	out := make([]lang.Language, 0, len(r.adapters))
	for l := range r.adapters {
		out = append(out, l)
	}
	return out
}
