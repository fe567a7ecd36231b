package adapter

import (
	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/symtab"
)

// ResolveStats summarizes the reference-resolution phase.
type ResolveStats struct {
	Resolved   int
	Unresolved int
	Ambiguous  int
}

// BuildTable populates a symbol table from the definitions in the
// scanned file results.
func BuildTable(results []*FileResult) *symtab.Table {
	table := symtab.NewTable()
	for _, res := range results {
		for _, m := range res.IR.Modules {
			table.Add(symtab.Decl{
				ID:            m.ID,
				Kind:          ir.KindModule,
				QualifiedName: m.QualifiedName,
				Name:          m.Name,
				Language:      m.Language,
				ModuleQN:      m.QualifiedName,
			})
		}
		for _, t := range res.IR.Types {
			table.Add(symtab.Decl{
				ID:            t.ID,
				Kind:          ir.KindType,
				QualifiedName: t.QualifiedName,
				Name:          t.Name,
				Language:      t.Language,
				FilePath:      t.FilePath,
				Line:          t.StartLine,
			})
		}
		for _, c := range res.IR.Callables {
			table.Add(symtab.Decl{
				ID:            c.ID,
				Kind:          ir.KindCallable,
				QualifiedName: c.QualifiedName,
				Name:          c.Name,
				Signature:     c.Signature,
				Language:      c.Language,
				FilePath:      c.FilePath,
				Line:          c.StartLine,
			})
		}
	}
	return table
}

// ExcludeConflicts strips every entity involved in a symbol-table
// conflict from the file results, along with the relationships and
// raw references anchored on it. Duplicate definitions are reported
// in the scan summary instead of racing each other into the graph.
func ExcludeConflicts(results []*FileResult, conflicts []symtab.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	excluded := make(map[string]bool, len(conflicts))
	for _, c := range conflicts {
		excluded[c.Kept.ID] = true
		excluded[c.Excluded.ID] = true
	}
	for _, res := range results {
		for id := range res.IR.Types {
			if excluded[id] {
				delete(res.IR.Types, id)
			}
		}
		for id := range res.IR.Callables {
			if excluded[id] {
				delete(res.IR.Callables, id)
			}
		}
		for key, rel := range res.IR.Relationships {
			if excluded[rel.SourceID] || excluded[rel.TargetID] {
				delete(res.IR.Relationships, key)
			}
		}
		refs := res.Refs[:0]
		for _, ref := range res.Refs {
			if !excluded[ref.SourceID] {
				refs = append(refs, ref)
			}
		}
		res.Refs = refs
	}
}

// ResolveRefs resolves the raw references collected during scanning
// and adds the resulting edges to the merged IR. Call and type
// references that do not resolve still produce an edge to the
// per-language unresolved marker, so a call into library code is
// distinguishable from no call at all. Unresolved imports are
// recorded on the IR without an edge.
func ResolveRefs(project string, results []*FileResult, table *symtab.Table, merged *ir.IR) ResolveStats {
	var stats ResolveStats
	for _, res := range results {
		for _, ref := range res.Refs {
			target, status := resolveOne(table, res.Ctx, ref)
			if status == symtab.MatchNone {
				stats.Unresolved++
				merged.AddUnresolved(ir.UnresolvedRef{
					SourceID: ref.SourceID,
					Name:     ref.Name,
					Type:     ref.Rel,
					FilePath: res.File.RelPath,
					Line:     ref.Line,
				})
				switch ref.Kind {
				case RefCall:
					marker := ir.UnresolvedMarker(project, res.File.Language)
					if !merged.HasEntity(marker.ID) {
						merged.AddCallable(marker)
					}
					merged.AddRelationship(ir.Relationship{
						SourceID: ref.SourceID,
						TargetID: marker.ID,
						Type:     ir.RelCalls,
					})
				case RefType:
					marker := ir.UnresolvedMarkerType(project, res.File.Language)
					if !merged.HasEntity(marker.ID) {
						merged.AddType(marker)
					}
					merged.AddRelationship(ir.Relationship{
						SourceID: ref.SourceID,
						TargetID: marker.ID,
						Type:     ref.Rel,
					})
				}
				continue
			}
			if status == symtab.MatchTiebreak {
				stats.Ambiguous++
			}
			if target.ID == ref.SourceID && ref.Rel != ir.RelCalls {
				// Self edges are only meaningful for recursion.
				continue
			}
			stats.Resolved++
			merged.AddRelationship(ir.Relationship{
				SourceID: ref.SourceID,
				TargetID: target.ID,
				Type:     ref.Rel,
			})
		}
	}
	return stats
}

func resolveOne(table *symtab.Table, fc symtab.FileContext, ref RawRef) (symtab.Decl, symtab.MatchStatus) {
	switch ref.Kind {
	case RefCall:
		return table.ResolveCall(fc, ref.EnclosingTypeQN, ref.Name, ref.Argc)
	case RefType:
		d, ok := table.ResolveType(fc, ref.Name)
		if !ok {
			return symtab.Decl{}, symtab.MatchNone
		}
		return d, symtab.MatchExact
	case RefImport:
		for _, d := range table.Lookup(fc.Language, ref.Name) {
			if d.Kind == ir.KindModule {
				return d, symtab.MatchExact
			}
		}
		return symtab.Decl{}, symtab.MatchNone
	}
	return symtab.Decl{}, symtab.MatchNone
}
