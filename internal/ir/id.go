package ir

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"

	"github.com/AperturePlus/synapse/internal/lang"
)

// EntityID computes the deterministic id for an entity from its
// canonical tuple: project, language, kind, qualified name, and
// signature (empty for modules and types). The same tuple always
// yields the same id, on any machine, in any scan order. Ids are
// 32 lowercase hex characters (xxh3 128-bit).
func EntityID(project string, l lang.Language, kind EntityKind, qualifiedName, signature string) string {
	buf := make([]byte, 0, len(project)+len(l)+len(kind)+len(qualifiedName)+len(signature)+4)
	buf = append(buf, project...)
	buf = append(buf, '|')
	buf = append(buf, l...)
	buf = append(buf, '|')
	buf = append(buf, kind...)
	buf = append(buf, '|')
	buf = append(buf, qualifiedName...)
	buf = append(buf, '|')
	buf = append(buf, signature...)

	sum := xxh3.Hash128(buf).Bytes()
	return hex.EncodeToString(sum[:])
}

// ModuleID computes the id for a module entity.
func ModuleID(project string, l lang.Language, qualifiedName string) string {
	return EntityID(project, l, KindModule, qualifiedName, "")
}

// TypeID computes the id for a type entity.
func TypeID(project string, l lang.Language, qualifiedName string) string {
	return EntityID(project, l, KindType, qualifiedName, "")
}

// CallableID computes the id for a callable entity. Overloads with the
// same qualified name get distinct ids through the signature.
func CallableID(project string, l lang.Language, qualifiedName, signature string) string {
	return EntityID(project, l, KindCallable, qualifiedName, signature)
}
