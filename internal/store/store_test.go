package store

import (
	"context"
	"errors"
	"testing"

	"github.com/AperturePlus/synapse/internal/graph"
	"github.com/AperturePlus/synapse/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func nodeOp(project string, nodes ...graph.NodeUpsert) *graph.BatchOp {
	return &graph.BatchOp{Kind: graph.OpNodes, Project: project, Label: nodes[0].Label, Nodes: nodes}
}

func callableNode(id, qn, name, sig string) graph.NodeUpsert {
	return graph.NodeUpsert{
		ID:    id,
		Label: graph.LabelCallable,
		Props: map[string]any{
			"qualifiedName": qn,
			"name":          name,
			"kind":          "FUNCTION",
			"signature":     sig,
			"language":      "go",
			"visibility":    "public",
			"filePath":      "main.go",
			"startLine":     1,
			"endLine":       3,
		},
	}
}

func TestUpsertNodesIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	op := nodeOp("proj",
		callableNode("id1", "app.Run", "Run", "()"),
		callableNode("id2", "app.Stop", "Stop", "()"),
	)
	if err := s.ExecuteBatch(ctx, op); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if err := s.ExecuteBatch(ctx, op); err != nil {
		t.Fatalf("second ExecuteBatch: %v", err)
	}

	ids, err := s.ExistingIDs(ctx, "proj")
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 nodes after double upsert, got %d", len(ids))
	}
}

func TestUpsertUpdatesAttributes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ExecuteBatch(ctx, nodeOp("proj", callableNode("id1", "app.Run", "Run", "()"))); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	updated := callableNode("id1", "app.Run", "Run", "()")
	updated.Props["startLine"] = 10
	updated.Props["endLine"] = 20
	if err := s.ExecuteBatch(ctx, nodeOp("proj", updated)); err != nil {
		t.Fatalf("ExecuteBatch update: %v", err)
	}

	n, err := s.NodeByID(ctx, "proj", "id1")
	if err != nil {
		t.Fatalf("NodeByID: %v", err)
	}
	if n.StartLine != 10 || n.EndLine != 20 {
		t.Errorf("expected updated lines 10-20, got %d-%d", n.StartLine, n.EndLine)
	}
}

func TestProjectIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ExecuteBatch(ctx, nodeOp("alpha", callableNode("id1", "a.F", "F", "()"))); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if err := s.ExecuteBatch(ctx, nodeOp("beta", callableNode("id1", "a.F", "F", "()"))); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}

	if err := s.ClearProject(ctx, "alpha"); err != nil {
		t.Fatalf("ClearProject: %v", err)
	}
	alpha, _ := s.ExistingIDs(ctx, "alpha")
	beta, _ := s.ExistingIDs(ctx, "beta")
	if len(alpha) != 0 {
		t.Errorf("alpha should be empty, has %d", len(alpha))
	}
	if len(beta) != 1 {
		t.Errorf("beta should be untouched, has %d", len(beta))
	}
}

func TestEdgesAndNeighbors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ExecuteBatch(ctx, nodeOp("proj",
		callableNode("caller", "app.Caller", "Caller", "()"),
		callableNode("callee", "app.Callee", "Callee", "()"),
	)); err != nil {
		t.Fatalf("ExecuteBatch nodes: %v", err)
	}
	edgeOp := &graph.BatchOp{
		Kind:    graph.OpEdges,
		Project: "proj",
		RelType: ir.RelCalls,
		Edges:   []graph.EdgeUpsert{{SourceID: "caller", TargetID: "callee", Type: ir.RelCalls}},
	}
	if err := s.ExecuteBatch(ctx, edgeOp); err != nil {
		t.Fatalf("ExecuteBatch edges: %v", err)
	}
	// Re-inserting the same edge must not duplicate it.
	if err := s.ExecuteBatch(ctx, edgeOp); err != nil {
		t.Fatalf("second edge ExecuteBatch: %v", err)
	}

	out, err := s.Neighbors(ctx, "proj", []string{"caller"}, ir.RelCalls, Outgoing)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(out) != 1 || out[0].ID != "callee" {
		t.Fatalf("expected [callee], got %+v", out)
	}

	in, err := s.Neighbors(ctx, "proj", []string{"callee"}, ir.RelCalls, Incoming)
	if err != nil {
		t.Fatalf("Neighbors incoming: %v", err)
	}
	if len(in) != 1 || in[0].ID != "caller" {
		t.Fatalf("expected [caller], got %+v", in)
	}
}

func TestNodesByQualifiedNameOverloads(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ExecuteBatch(ctx, nodeOp("proj",
		callableNode("id1", "com.example.Fmt.render", "render", "(String)"),
		callableNode("id2", "com.example.Fmt.render", "render", "(Object)"),
	)); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	nodes, err := s.NodesByQualifiedName(ctx, "proj", "com.example.Fmt.render")
	if err != nil {
		t.Fatalf("NodesByQualifiedName: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 overloads, got %d", len(nodes))
	}
	if nodes[0].Signature != "(Object)" {
		t.Errorf("expected signature ordering, got %s first", nodes[0].Signature)
	}
}

func TestProjectLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "demo", "/tmp/demo")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" {
		t.Error("expected generated project id")
	}

	if _, err := s.CreateProject(ctx, "demo", "/elsewhere"); !errors.Is(err, ErrProjectExists) {
		t.Errorf("expected ErrProjectExists, got %v", err)
	}

	if err := s.ArchiveProject(ctx, "demo"); err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	active, err := s.ListProjects(ctx, false)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("archived project still listed: %+v", active)
	}
	all, err := s.ListProjects(ctx, true)
	if err != nil {
		t.Fatalf("ListProjects all: %v", err)
	}
	if len(all) != 1 || all[0].ArchivedAt == nil {
		t.Errorf("expected 1 archived project, got %+v", all)
	}

	if err := s.DeleteProject(ctx, "demo"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := s.GetProject(ctx, "demo"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound after delete, got %v", err)
	}
}
