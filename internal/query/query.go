// Package query answers topology questions over the stored graph:
// who calls this, what does it call, what does a type inherit from,
// what does a module depend on. Traversals are breadth-first,
// depth-limited, and paginated in a stable order.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/store"
)

// Service exposes the traversal queries.
type Service struct {
	store    *store.Store
	pageSize int
	maxDepth int
}

// New builds a query service with the given pagination and depth
// defaults.
func New(s *store.Store, pageSize, maxDepth int) *Service {
	return &Service{store: s, pageSize: pageSize, maxDepth: maxDepth}
}

// Options tunes one query.
type Options struct {
	// Depth limits traversal; zero means the service default.
	Depth int
	// Page is the 1-based page number; zero means the first page.
	Page int
	// PageSize overrides the service default when positive.
	PageSize int
}

// Result is one traversal hit with the depth it was first reached at.
type Result struct {
	Node  *store.Node `json:"node"`
	Depth int         `json:"depth"`
}

// Page is one page of traversal results.
type Page struct {
	Results  []Result `json:"results"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
	HasMore  bool     `json:"hasMore"`
}

func (s *Service) normalize(opts Options) Options {
	if opts.Depth <= 0 {
		opts.Depth = s.maxDepth
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = s.pageSize
	}
	return opts
}

// Callers returns the callables that transitively call the named one,
// following CALLS edges backward.
func (s *Service) Callers(ctx context.Context, project, qualifiedName string, opts Options) (*Page, error) {
	return s.traverseFrom(ctx, project, qualifiedName, []ir.RelType{ir.RelCalls}, store.Incoming, opts)
}

// Callees returns the callables the named one transitively calls.
func (s *Service) Callees(ctx context.Context, project, qualifiedName string, opts Options) (*Page, error) {
	return s.traverseFrom(ctx, project, qualifiedName, []ir.RelType{ir.RelCalls}, store.Outgoing, opts)
}

// Ancestors returns the types the named type extends, implements, or
// embeds, transitively.
func (s *Service) Ancestors(ctx context.Context, project, typeName string, opts Options) (*Page, error) {
	return s.traverseFrom(ctx, project, typeName,
		[]ir.RelType{ir.RelExtends, ir.RelImplements, ir.RelEmbeds}, store.Outgoing, opts)
}

// Descendants returns the types that extend, implement, or embed the
// named type, transitively.
func (s *Service) Descendants(ctx context.Context, project, typeName string, opts Options) (*Page, error) {
	return s.traverseFrom(ctx, project, typeName,
		[]ir.RelType{ir.RelExtends, ir.RelImplements, ir.RelEmbeds}, store.Incoming, opts)
}

// Dependencies returns the modules the named module transitively
// imports.
func (s *Service) Dependencies(ctx context.Context, project, moduleName string, opts Options) (*Page, error) {
	return s.traverseFrom(ctx, project, moduleName, []ir.RelType{ir.RelImports}, store.Outgoing, opts)
}

// Dependents returns the modules that transitively import the named
// module.
func (s *Service) Dependents(ctx context.Context, project, moduleName string, opts Options) (*Page, error) {
	return s.traverseFrom(ctx, project, moduleName, []ir.RelType{ir.RelImports}, store.Incoming, opts)
}

func (s *Service) traverseFrom(ctx context.Context, project, name string, rels []ir.RelType, dir store.Direction, opts Options) (*Page, error) {
	opts = s.normalize(opts)

	starts, err := s.startNodes(ctx, project, name)
	if err != nil {
		return nil, err
	}
	startIDs := make([]string, 0, len(starts))
	visited := make(map[string]struct{}, len(starts))
	for _, n := range starts {
		startIDs = append(startIDs, n.ID)
		visited[n.ID] = struct{}{}
	}

	var collected []Result
	frontier := startIDs
	for depth := 1; depth <= opts.Depth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []string
		for _, rel := range rels {
			nodes, err := s.store.Neighbors(ctx, project, frontier, rel, dir)
			if err != nil {
				return nil, err
			}
			for _, n := range nodes {
				if _, seen := visited[n.ID]; seen {
					continue
				}
				visited[n.ID] = struct{}{}
				collected = append(collected, Result{Node: n, Depth: depth})
				next = append(next, n.ID)
			}
		}
		frontier = next
	}

	sort.Slice(collected, func(i, j int) bool {
		a, b := collected[i], collected[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Node.QualifiedName != b.Node.QualifiedName {
			return a.Node.QualifiedName < b.Node.QualifiedName
		}
		return a.Node.Signature < b.Node.Signature
	})
	return paginate(collected, opts), nil
}

// startNodes resolves the query subject: first as a qualified name,
// then as a simple name if nothing matched.
func (s *Service) startNodes(ctx context.Context, project, name string) ([]*store.Node, error) {
	nodes, err := s.store.NodesByQualifiedName(ctx, project, name)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		nodes, err = s.store.NodesByName(ctx, project, name)
		if err != nil {
			return nil, err
		}
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%q: %w", name, store.ErrNotFound)
	}
	return nodes, nil
}

func paginate(results []Result, opts Options) *Page {
	total := len(results)
	start := (opts.Page - 1) * opts.PageSize
	if start > total {
		start = total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}
	return &Page{
		Results:  results[start:end],
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		HasMore:  end < total,
	}
}
