// Package symtab builds the project-wide symbol table used by the
// resolution phase. The table is populated from the definition scan
// and queried while resolving calls, extends, and implements edges.
// All lookups are deterministic: given the same set of declarations,
// the same query returns the same answer regardless of insertion order.
package symtab

import (
	"sort"
	"strings"

	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
)

// Decl is one resolvable declaration: a type or callable entity id
// with the keys resolution needs. FilePath and Line locate the
// declaration so duplicate definitions can be told apart from the
// same file being registered twice.
type Decl struct {
	ID            string
	Kind          ir.EntityKind
	QualifiedName string
	Name          string
	Signature     string
	Language      lang.Language
	ModuleQN      string
	FilePath      string
	Line          int
}

// Conflict records two declarations that collide on the same exact
// key. The first registration wins; the loser is excluded from the
// table and reported so the scan summary can surface it.
type Conflict struct {
	Key      string
	Kept     Decl
	Excluded Decl
}

// MatchStatus describes how a signature lookup was satisfied.
type MatchStatus int

const (
	MatchNone MatchStatus = iota
	MatchExact
	MatchArity
	MatchTiebreak
)

// Table indexes declarations by exact key, by qualified name, and by
// simple name. Exact keys include the entity kind and the signature,
// so overloads coexist and a module sharing a qualified name with a
// type (a PHP namespace Foo next to a global class Foo) never
// collides.
type Table struct {
	exact     map[string]Decl   // kind|lang|qn|sig -> decl
	byQN      map[string][]Decl // lang|qn -> overload set
	byName    map[string][]Decl // lang|name -> candidates
	conflicts []Conflict
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{
		exact:  make(map[string]Decl),
		byQN:   make(map[string][]Decl),
		byName: make(map[string][]Decl),
	}
}

func exactKey(k ir.EntityKind, l lang.Language, qn, sig string) string {
	return string(k) + "\x00" + string(l) + "\x00" + qn + "\x00" + sig
}

func qnKey(l lang.Language, qn string) string {
	return string(l) + "\x00" + qn
}

// Add registers a declaration. Modules may be re-declared across
// files of the same package or namespace without conflict, and an
// exact duplicate of an existing declaration is a no-op. Any other
// collision on the exact key keeps the earlier declaration and
// records a Conflict.
func (t *Table) Add(d Decl) {
	key := exactKey(d.Kind, d.Language, d.QualifiedName, d.Signature)
	if kept, ok := t.exact[key]; ok {
		if kept.Kind == ir.KindModule || kept == d {
			return
		}
		t.conflicts = append(t.conflicts, Conflict{Key: key, Kept: kept, Excluded: d})
		return
	}
	t.exact[key] = d
	t.byQN[qnKey(d.Language, d.QualifiedName)] = append(t.byQN[qnKey(d.Language, d.QualifiedName)], d)
	t.byName[qnKey(d.Language, d.Name)] = append(t.byName[qnKey(d.Language, d.Name)], d)
}

// Conflicts returns the declarations excluded from the table.
func (t *Table) Conflicts() []Conflict {
	return t.conflicts
}

// Lookup returns the declarations registered under a qualified name,
// sorted by signature for stable iteration.
func (t *Table) Lookup(l lang.Language, qualifiedName string) []Decl {
	decls := append([]Decl(nil), t.byQN[qnKey(l, qualifiedName)]...)
	sortDecls(decls)
	return decls
}

// LookupName returns the declarations registered under a simple name,
// sorted by qualified name then signature.
func (t *Table) LookupName(l lang.Language, name string) []Decl {
	decls := append([]Decl(nil), t.byName[qnKey(l, name)]...)
	sortDecls(decls)
	return decls
}

// LookupSignature resolves a callable qualified name plus call-site
// signature against the overload set. Match preference: exact
// signature, then nearest parameter count, then lexicographically
// smallest candidate signature. The result never depends on
// registration order.
func (t *Table) LookupSignature(l lang.Language, qualifiedName, signature string) (Decl, MatchStatus) {
	if d, ok := t.exact[exactKey(ir.KindCallable, l, qualifiedName, signature)]; ok {
		return d, MatchExact
	}
	var candidates []Decl
	for _, d := range t.Lookup(l, qualifiedName) {
		if d.Kind == ir.KindCallable {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return Decl{}, MatchNone
	}
	if len(candidates) == 1 {
		return candidates[0], MatchTiebreak
	}

	want := arity(signature)
	best := candidates[0]
	bestDist := distance(arity(best.Signature), want)
	for _, c := range candidates[1:] {
		dist := distance(arity(c.Signature), want)
		if dist < bestDist || (dist == bestDist && c.Signature < best.Signature) {
			best, bestDist = c, dist
		}
	}
	if bestDist == 0 {
		return best, MatchArity
	}
	return best, MatchTiebreak
}

func sortDecls(decls []Decl) {
	sort.Slice(decls, func(i, j int) bool {
		if decls[i].QualifiedName != decls[j].QualifiedName {
			return decls[i].QualifiedName < decls[j].QualifiedName
		}
		return decls[i].Signature < decls[j].Signature
	})
}

// arity counts the parameters in a "(A, B, C)" signature string.
func arity(signature string) int {
	inner := strings.TrimSuffix(strings.TrimPrefix(signature, "("), ")")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return 0
	}
	return strings.Count(inner, ",") + 1
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
