package symtab

import (
	"strings"

	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
)

// FileContext carries the per-file resolution context an adapter
// gathers during the definition scan: the enclosing module, the
// imported modules, and local name aliases (PHP use clauses, Java
// imports, Go import aliases).
type FileContext struct {
	Language lang.Language
	ModuleQN string
	// Imports maps a visible simple name to the qualified name it
	// refers to, e.g. "List" -> "java.util.List" or "db" ->
	// "example.com/app/db".
	Imports map[string]string
	// Wildcards holds module prefixes imported wholesale, e.g.
	// "java.util" from "import java.util.*".
	Wildcards []string
}

// ResolveType resolves a type name seen in source to a declared type.
// Resolution order: already-qualified names, explicit imports and
// aliases, same module, wildcard imports, then a unique global
// candidate. Ambiguous names (multiple global candidates, none
// preferred) return false so the caller records an unresolved ref.
func (t *Table) ResolveType(fc FileContext, name string) (Decl, bool) {
	if name == "" {
		return Decl{}, false
	}

	// Already fully qualified.
	if d, ok := t.typeByQN(fc.Language, name); ok {
		return d, true
	}

	// Explicit import or alias.
	if qn, ok := fc.Imports[name]; ok {
		if d, ok := t.typeByQN(fc.Language, qn); ok {
			return d, true
		}
	}

	// Same module.
	if fc.ModuleQN != "" {
		if d, ok := t.typeByQN(fc.Language, joinQN(fc.Language, fc.ModuleQN, name)); ok {
			return d, true
		}
	}

	// Wildcard imports, in declaration order.
	for _, prefix := range fc.Wildcards {
		if d, ok := t.typeByQN(fc.Language, joinQN(fc.Language, prefix, name)); ok {
			return d, true
		}
	}

	// Unique global candidate by simple name.
	var match Decl
	var count int
	for _, d := range t.LookupName(fc.Language, name) {
		if d.Kind == ir.KindType {
			match = d
			count++
		}
	}
	if count == 1 {
		return match, true
	}
	return Decl{}, false
}

// ResolveCallable resolves a callable reference, either a qualified
// "receiver.name" form against a known receiver or a bare name within
// the file's module. Returns the matched declaration and how it
// matched.
func (t *Table) ResolveCallable(fc FileContext, qualifiedName, signature string) (Decl, MatchStatus) {
	if d, status := t.LookupSignature(fc.Language, qualifiedName, signature); status != MatchNone {
		return d, status
	}
	if fc.ModuleQN != "" && !strings.Contains(qualifiedName, separatorFor(fc.Language)) {
		return t.LookupSignature(fc.Language, joinQN(fc.Language, fc.ModuleQN, qualifiedName), signature)
	}
	return Decl{}, MatchNone
}

// ResolveCall resolves a call site by target name and argument count.
// Qualified names ("alias.fn") are expanded through the import map
// first. Bare names are tried against the enclosing type, then the
// file's module, then globally: a bare name resolves globally only
// when exactly one candidate remains after arity filtering.
func (t *Table) ResolveCall(fc FileContext, enclosingTypeQN, name string, argc int) (Decl, MatchStatus) {
	sep := separatorFor(fc.Language)
	sig := PseudoSig(argc)

	if i := strings.LastIndex(name, sep); i > 0 {
		qualifier, member := name[:i], name[i+len(sep):]
		if qn, ok := fc.Imports[qualifier]; ok {
			if d, status := t.LookupSignature(fc.Language, qn+sep+member, sig); status != MatchNone {
				return d, status
			}
		}
		if d, status := t.LookupSignature(fc.Language, name, sig); status != MatchNone {
			return d, status
		}
		// Qualifier may be a type in the same module (static call).
		if td, ok := t.ResolveType(fc, qualifier); ok {
			if d, status := t.LookupSignature(fc.Language, td.QualifiedName+sep+member, sig); status != MatchNone {
				return d, status
			}
		}
		return Decl{}, MatchNone
	}

	if enclosingTypeQN != "" {
		if d, status := t.LookupSignature(fc.Language, enclosingTypeQN+sep+name, sig); status != MatchNone {
			return d, status
		}
	}
	if fc.ModuleQN != "" {
		if d, status := t.LookupSignature(fc.Language, joinQN(fc.Language, fc.ModuleQN, name), sig); status != MatchNone {
			return d, status
		}
	}

	var candidates []Decl
	for _, d := range t.LookupName(fc.Language, name) {
		if d.Kind == ir.KindCallable {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], MatchTiebreak
	}
	var byArity []Decl
	for _, d := range candidates {
		if arity(d.Signature) == argc {
			byArity = append(byArity, d)
		}
	}
	if len(byArity) == 1 {
		return byArity[0], MatchArity
	}
	return Decl{}, MatchNone
}

// PseudoSig builds a placeholder signature carrying only arity, for
// call sites where argument types are unknown.
func PseudoSig(argc int) string {
	if argc == 0 {
		return "()"
	}
	parts := make([]string, argc)
	for i := range parts {
		parts[i] = "?"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Table) typeByQN(l lang.Language, qn string) (Decl, bool) {
	for _, d := range t.Lookup(l, qn) {
		if d.Kind == ir.KindType {
			return d, true
		}
	}
	return Decl{}, false
}

func separatorFor(l lang.Language) string {
	if l == lang.PHP {
		return "\\"
	}
	return "."
}

func joinQN(l lang.Language, prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + separatorFor(l) + name
}
