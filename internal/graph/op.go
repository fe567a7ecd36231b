// Package graph turns a merged IR into batched, validated, idempotent
// upsert operations against a graph backend. Labels and relationship
// types are drawn from closed whitelists so no scanned identifier can
// ever reach the backend as query text.
package graph

import (
	"sort"

	"github.com/AperturePlus/synapse/internal/ir"
)

// Node labels. The set is closed; anything else is rejected before it
// reaches the backend.
const (
	LabelModule   = "Module"
	LabelType     = "Type"
	LabelCallable = "Callable"
)

var nodeLabels = map[string]struct{}{
	LabelModule:   {},
	LabelType:     {},
	LabelCallable: {},
}

var relTypes = map[ir.RelType]struct{}{
	ir.RelContains:   {},
	ir.RelCalls:      {},
	ir.RelExtends:    {},
	ir.RelImplements: {},
	ir.RelImports:    {},
	ir.RelEmbeds:     {},
	ir.RelOverrides:  {},
}

// ValidLabel reports whether the label is in the node whitelist.
func ValidLabel(label string) bool {
	_, ok := nodeLabels[label]
	return ok
}

// ValidRelType reports whether the relationship type is whitelisted.
func ValidRelType(t ir.RelType) bool {
	_, ok := relTypes[t]
	return ok
}

// NodeUpsert is one node write. Props carry only data values; the
// label decides the query shape.
type NodeUpsert struct {
	ID    string
	Label string
	Props map[string]any
}

// EdgeUpsert is one relationship write between existing nodes.
type EdgeUpsert struct {
	SourceID string
	TargetID string
	Type     ir.RelType
}

// OpKind distinguishes node and edge batches.
type OpKind int

const (
	OpNodes OpKind = iota
	OpEdges
)

// BatchOp is one homogeneous chunk handed to the backend: all rows
// share a project and either a label or a relationship type, so the
// backend can render a single parameterized statement.
type BatchOp struct {
	Kind    OpKind
	Project string
	Label   string
	RelType ir.RelType
	Nodes   []NodeUpsert
	Edges   []EdgeUpsert
}

// nodesByLabel converts IR entities into per-label upsert lists,
// sorted by id so identical IRs always produce identical batches.
func nodesByLabel(rep *ir.IR) map[string][]NodeUpsert {
	out := make(map[string][]NodeUpsert, 3)
	for _, m := range rep.Modules {
		out[LabelModule] = append(out[LabelModule], NodeUpsert{
			ID:    m.ID,
			Label: LabelModule,
			Props: map[string]any{
				"qualifiedName": m.QualifiedName,
				"name":          m.Name,
				"language":      string(m.Language),
				"path":          m.Path,
			},
		})
	}
	for _, t := range rep.Types {
		out[LabelType] = append(out[LabelType], NodeUpsert{
			ID:    t.ID,
			Label: LabelType,
			Props: map[string]any{
				"qualifiedName": t.QualifiedName,
				"name":          t.Name,
				"kind":          string(t.Kind),
				"language":      string(t.Language),
				"visibility":    string(t.Visibility),
				"moduleId":      t.ModuleID,
				"filePath":      t.FilePath,
				"startLine":     t.StartLine,
				"endLine":       t.EndLine,
			},
		})
	}
	for _, c := range rep.Callables {
		out[LabelCallable] = append(out[LabelCallable], NodeUpsert{
			ID:    c.ID,
			Label: LabelCallable,
			Props: map[string]any{
				"qualifiedName": c.QualifiedName,
				"name":          c.Name,
				"kind":          string(c.Kind),
				"signature":     c.Signature,
				"language":      string(c.Language),
				"visibility":    string(c.Visibility),
				"moduleId":      c.ModuleID,
				"typeId":        c.TypeID,
				"filePath":      c.FilePath,
				"startLine":     c.StartLine,
				"endLine":       c.EndLine,
			},
		})
	}
	for label := range out {
		nodes := out[label]
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	}
	return out
}

// edgesByType converts IR relationships into per-type upsert lists,
// sorted by (source, target) for deterministic batch contents.
func edgesByType(rep *ir.IR) map[ir.RelType][]EdgeUpsert {
	out := make(map[ir.RelType][]EdgeUpsert)
	for _, rel := range rep.Relationships {
		out[rel.Type] = append(out[rel.Type], EdgeUpsert{
			SourceID: rel.SourceID,
			TargetID: rel.TargetID,
			Type:     rel.Type,
		})
	}
	for t := range out {
		edges := out[t]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].SourceID != edges[j].SourceID {
				return edges[i].SourceID < edges[j].SourceID
			}
			return edges[i].TargetID < edges[j].TargetID
		})
	}
	return out
}

func sortedLabels(m map[string][]NodeUpsert) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRelTypes(m map[ir.RelType][]EdgeUpsert) []ir.RelType {
	keys := make([]ir.RelType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
