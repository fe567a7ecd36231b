package ir

import "fmt"

// ConflictError reports two entities that share an id but disagree on
// attributes. Because ids are derived from the canonical identity
// tuple, this only happens when the same declaration is scanned with
// inconsistent metadata, which indicates an adapter bug or a corrupted
// input. Merge treats it as a hard error rather than picking a winner.
type ConflictError struct {
	ID     string
	Kind   EntityKind
	Field  string
	Left   string
	Right  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ir merge conflict: %s %s field %q: %q != %q", e.Kind, e.ID, e.Field, e.Left, e.Right)
}

// Merge folds src into dst. Entities are set-unioned by id; identical
// duplicates collapse silently. Entities with the same id but
// different attributes abort the merge with a ConflictError. Merge is
// associative and commutative over conflict-free inputs, so per-file
// IRs can be folded in any grouping.
func Merge(dst, src *IR) error {
	for id, m := range src.Modules {
		if existing, ok := dst.Modules[id]; ok {
			if err := compareModules(existing, m); err != nil {
				return err
			}
			continue
		}
		dst.Modules[id] = m
	}
	for id, t := range src.Types {
		if existing, ok := dst.Types[id]; ok {
			if err := compareTypes(existing, t); err != nil {
				return err
			}
			continue
		}
		dst.Types[id] = t
	}
	for id, c := range src.Callables {
		if existing, ok := dst.Callables[id]; ok {
			if err := compareCallables(existing, c); err != nil {
				return err
			}
			continue
		}
		dst.Callables[id] = c
	}
	for key, rel := range src.Relationships {
		if _, ok := dst.Relationships[key]; !ok {
			dst.Relationships[key] = rel
		}
	}
	dst.Unresolved = append(dst.Unresolved, src.Unresolved...)
	return nil
}

func compareModules(a, b *Module) error {
	switch {
	case a.QualifiedName != b.QualifiedName:
		return conflict(a.ID, KindModule, "qualifiedName", a.QualifiedName, b.QualifiedName)
	case a.Name != b.Name:
		return conflict(a.ID, KindModule, "name", a.Name, b.Name)
	case a.Language != b.Language:
		return conflict(a.ID, KindModule, "language", string(a.Language), string(b.Language))
	}
	return nil
}

func compareTypes(a, b *Type) error {
	switch {
	case a.QualifiedName != b.QualifiedName:
		return conflict(a.ID, KindType, "qualifiedName", a.QualifiedName, b.QualifiedName)
	case a.Kind != b.Kind:
		return conflict(a.ID, KindType, "kind", string(a.Kind), string(b.Kind))
	case a.Language != b.Language:
		return conflict(a.ID, KindType, "language", string(a.Language), string(b.Language))
	case a.Visibility != b.Visibility:
		return conflict(a.ID, KindType, "visibility", string(a.Visibility), string(b.Visibility))
	case a.ModuleID != b.ModuleID:
		return conflict(a.ID, KindType, "moduleId", a.ModuleID, b.ModuleID)
	case a.FilePath != b.FilePath:
		return conflict(a.ID, KindType, "filePath", a.FilePath, b.FilePath)
	}
	return nil
}

func compareCallables(a, b *Callable) error {
	switch {
	case a.QualifiedName != b.QualifiedName:
		return conflict(a.ID, KindCallable, "qualifiedName", a.QualifiedName, b.QualifiedName)
	case a.Signature != b.Signature:
		return conflict(a.ID, KindCallable, "signature", a.Signature, b.Signature)
	case a.Kind != b.Kind:
		return conflict(a.ID, KindCallable, "kind", string(a.Kind), string(b.Kind))
	case a.Language != b.Language:
		return conflict(a.ID, KindCallable, "language", string(a.Language), string(b.Language))
	case a.Visibility != b.Visibility:
		return conflict(a.ID, KindCallable, "visibility", string(a.Visibility), string(b.Visibility))
	case a.ModuleID != b.ModuleID:
		return conflict(a.ID, KindCallable, "moduleId", a.ModuleID, b.ModuleID)
	case a.TypeID != b.TypeID:
		return conflict(a.ID, KindCallable, "typeId", a.TypeID, b.TypeID)
	case a.FilePath != b.FilePath:
		return conflict(a.ID, KindCallable, "filePath", a.FilePath, b.FilePath)
	}
	return nil
}

func conflict(id string, kind EntityKind, field, left, right string) error {
	return &ConflictError{ID: id, Kind: kind, Field: field, Left: left, Right: right}
}
