package ir

import "github.com/AperturePlus/synapse/internal/lang"

// UnresolvedName is the qualified name of the per-language marker
// entity that unresolved calls point at. Calls whose target is not
// declared anywhere in the scanned tree still produce a CALLS edge,
// to this marker, instead of being dropped.
const UnresolvedName = "<unresolved>"

// UnresolvedMarker returns the marker callable for a language. Its id
// is deterministic like any other entity, so repeated scans converge
// on one marker per (project, language).
func UnresolvedMarker(project string, l lang.Language) *Callable {
	return &Callable{
		ID:            CallableID(project, l, UnresolvedName, ""),
		QualifiedName: UnresolvedName,
		Name:          UnresolvedName,
		Kind:          CallableFunction,
		Language:      l,
		Visibility:    VisibilityPublic,
	}
}

// UnresolvedMarkerType is the marker for type references whose target
// is not declared in the scanned tree, such as a class extending a
// library type.
func UnresolvedMarkerType(project string, l lang.Language) *Type {
	return &Type{
		ID:            TypeID(project, l, UnresolvedName),
		QualifiedName: UnresolvedName,
		Name:          UnresolvedName,
		Kind:          TypeClass,
		Language:      l,
		Visibility:    VisibilityPublic,
	}
}