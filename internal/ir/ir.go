// Package ir holds the intermediate representation of a scanned codebase:
// a flat, id-keyed set of modules, types, and callables plus the
// relationships between them. Adapters produce one IR per source file;
// the pipeline merges them into a single project IR before writing.
package ir

import (
	"sort"

	"github.com/AperturePlus/synapse/internal/lang"
)

// EntityKind labels the graph node category an entity maps to.
type EntityKind string

const (
	KindModule   EntityKind = "Module"
	KindType     EntityKind = "Type"
	KindCallable EntityKind = "Callable"
)

// TypeKind classifies a type entity.
type TypeKind string

const (
	TypeClass     TypeKind = "CLASS"
	TypeInterface TypeKind = "INTERFACE"
	TypeStruct    TypeKind = "STRUCT"
	TypeEnum      TypeKind = "ENUM"
	TypeTrait     TypeKind = "TRAIT"
)

// CallableKind classifies a callable entity.
type CallableKind string

const (
	CallableFunction    CallableKind = "FUNCTION"
	CallableMethod      CallableKind = "METHOD"
	CallableConstructor CallableKind = "CONSTRUCTOR"
)

// Visibility of a type or callable. Languages without explicit
// modifiers map their conventions onto these values (Go exported
// names are public, unexported are private).
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityPackage   Visibility = "package"
)

// RelType is the relationship category between two entities.
type RelType string

const (
	RelContains   RelType = "CONTAINS"
	RelCalls      RelType = "CALLS"
	RelExtends    RelType = "EXTENDS"
	RelImplements RelType = "IMPLEMENTS"
	RelImports    RelType = "IMPORTS"
	RelEmbeds     RelType = "EMBEDS"
	RelOverrides  RelType = "OVERRIDES"
)

// Module is a namespace-level container: a Go package, Java package,
// or PHP namespace.
type Module struct {
	ID            string        `json:"id"`
	QualifiedName string        `json:"qualifiedName"`
	Name          string        `json:"name"`
	Language      lang.Language `json:"language"`
	Path          string        `json:"path,omitempty"`
}

// Type is a class, interface, struct, enum, or trait.
type Type struct {
	ID            string        `json:"id"`
	QualifiedName string        `json:"qualifiedName"`
	Name          string        `json:"name"`
	Kind          TypeKind      `json:"kind"`
	Language      lang.Language `json:"language"`
	Visibility    Visibility    `json:"visibility"`
	ModuleID      string        `json:"moduleId"`
	FilePath      string        `json:"filePath"`
	StartLine     int           `json:"startLine"`
	EndLine       int           `json:"endLine"`
}

// Callable is a function, method, or constructor. Signature is the
// parenthesized comma-joined parameter type list, e.g. "(String, int)".
// QualifiedName plus Signature disambiguates overloads.
type Callable struct {
	ID            string        `json:"id"`
	QualifiedName string        `json:"qualifiedName"`
	Name          string        `json:"name"`
	Kind          CallableKind  `json:"kind"`
	Signature     string        `json:"signature"`
	Language      lang.Language `json:"language"`
	Visibility    Visibility    `json:"visibility"`
	ModuleID      string        `json:"moduleId"`
	TypeID        string        `json:"typeId,omitempty"`
	FilePath      string        `json:"filePath"`
	StartLine     int           `json:"startLine"`
	EndLine       int           `json:"endLine"`
}

// Relationship is a directed edge between two entities, keyed by the
// (SourceID, TargetID, Type) triple. Duplicate triples are collapsed
// during merge.
type Relationship struct {
	SourceID string  `json:"sourceId"`
	TargetID string  `json:"targetId"`
	Type     RelType `json:"type"`
}

// Key uniquely identifies this relationship for dedup purposes.
func (r Relationship) Key() string {
	return r.SourceID + "\x00" + r.TargetID + "\x00" + string(r.Type)
}

// UnresolvedRef records a reference the adapter could not resolve to a
// known entity: an unknown callee, a type from an unscanned dependency.
// These are surfaced in scan summaries rather than silently dropped.
type UnresolvedRef struct {
	SourceID string  `json:"sourceId"`
	Name     string  `json:"name"`
	Type     RelType `json:"type"`
	FilePath string  `json:"filePath"`
	Line     int     `json:"line"`
}

// IR is the merged representation of one or more scanned files.
// Entities are keyed by their deterministic id so merge is set union.
type IR struct {
	Project       string                   `json:"project"`
	Modules       map[string]*Module       `json:"modules"`
	Types         map[string]*Type         `json:"types"`
	Callables     map[string]*Callable     `json:"callables"`
	Relationships map[string]*Relationship `json:"relationships"`
	Unresolved    []UnresolvedRef          `json:"unresolved,omitempty"`
}

// New returns an empty IR for the given project.
func New(project string) *IR {
	return &IR{
		Project:       project,
		Modules:       make(map[string]*Module),
		Types:         make(map[string]*Type),
		Callables:     make(map[string]*Callable),
		Relationships: make(map[string]*Relationship),
	}
}

// AddModule inserts a module, ignoring an identical duplicate.
func (r *IR) AddModule(m *Module) {
	if _, ok := r.Modules[m.ID]; !ok {
		r.Modules[m.ID] = m
	}
}

// AddType inserts a type, ignoring an identical duplicate.
func (r *IR) AddType(t *Type) {
	if _, ok := r.Types[t.ID]; !ok {
		r.Types[t.ID] = t
	}
}

// AddCallable inserts a callable, ignoring an identical duplicate.
func (r *IR) AddCallable(c *Callable) {
	if _, ok := r.Callables[c.ID]; !ok {
		r.Callables[c.ID] = c
	}
}

// AddRelationship inserts an edge, collapsing duplicate triples.
func (r *IR) AddRelationship(rel Relationship) {
	key := rel.Key()
	if _, ok := r.Relationships[key]; !ok {
		cp := rel
		r.Relationships[key] = &cp
	}
}

// AddUnresolved records a reference that could not be resolved.
func (r *IR) AddUnresolved(u UnresolvedRef) {
	r.Unresolved = append(r.Unresolved, u)
}

// HasEntity reports whether any entity with the given id exists.
func (r *IR) HasEntity(id string) bool {
	if _, ok := r.Modules[id]; ok {
		return true
	}
	if _, ok := r.Types[id]; ok {
		return true
	}
	_, ok := r.Callables[id]
	return ok
}

// EntityCount returns the total number of entities across all kinds.
func (r *IR) EntityCount() int {
	return len(r.Modules) + len(r.Types) + len(r.Callables)
}

// Languages returns the sorted set of languages present in the IR,
// derived from the entities rather than carried as separate state.
func (r *IR) Languages() []lang.Language {
	seen := make(map[lang.Language]struct{})
	for _, m := range r.Modules {
		seen[m.Language] = struct{}{}
	}
	for _, t := range r.Types {
		seen[t.Language] = struct{}{}
	}
	for _, c := range r.Callables {
		seen[c.Language] = struct{}{}
	}
	out := make([]lang.Language, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
