package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
)

type fakeClient struct {
	mu       sync.Mutex
	existing map[string]struct{}
	batches  []*BatchOp
	nodes    map[string]NodeUpsert
	edges    map[string]EdgeUpsert
	failures int
	failWith error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		existing: make(map[string]struct{}),
		nodes:    make(map[string]NodeUpsert),
		edges:    make(map[string]EdgeUpsert),
	}
}

func (c *fakeClient) ExecuteBatch(_ context.Context, op *BatchOp) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return c.failWith
	}
	c.batches = append(c.batches, op)
	for _, n := range op.Nodes {
		c.nodes[n.ID] = n
	}
	for _, e := range op.Edges {
		c.edges[e.SourceID+"|"+e.TargetID+"|"+string(e.Type)] = e
	}
	return nil
}

func (c *fakeClient) ExistingIDs(_ context.Context, _ string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(c.existing))
	for id := range c.existing {
		out[id] = struct{}{}
	}
	return out, nil
}

func (c *fakeClient) ClearProject(_ context.Context, _ string) error {
	c.nodes = make(map[string]NodeUpsert)
	c.edges = make(map[string]EdgeUpsert)
	return nil
}

func buildIR(t *testing.T, callables int) *ir.IR {
	t.Helper()
	rep := ir.New("proj")
	modID := ir.ModuleID("proj", lang.Go, "example.com/app/db")
	rep.AddModule(&ir.Module{ID: modID, QualifiedName: "example.com/app/db", Name: "db", Language: lang.Go})
	for i := 0; i < callables; i++ {
		qn := "example.com/app/db.fn" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		id := ir.CallableID("proj", lang.Go, qn, "()")
		rep.AddCallable(&ir.Callable{
			ID: id, QualifiedName: qn, Name: qn, Kind: ir.CallableFunction,
			Signature: "()", Language: lang.Go, Visibility: ir.VisibilityPrivate, ModuleID: modID,
		})
		rep.AddRelationship(ir.Relationship{SourceID: modID, TargetID: id, Type: ir.RelContains})
	}
	return rep
}

func TestWriteChunking(t *testing.T) {
	client := newFakeClient()
	w := NewWriter(client, WithBatchSize(10))

	rep := buildIR(t, 25)
	result, err := w.Write(context.Background(), rep)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// 26 nodes total: 1 module chunk + ceil(25/10)=3 callable chunks.
	var nodeChunks, edgeChunks int
	for _, b := range client.batches {
		switch b.Kind {
		case OpNodes:
			nodeChunks++
			if len(b.Nodes) > 10 {
				t.Errorf("node chunk exceeds batch size: %d", len(b.Nodes))
			}
		case OpEdges:
			edgeChunks++
		}
	}
	if nodeChunks != 4 {
		t.Errorf("expected 4 node chunks, got %d", nodeChunks)
	}
	if edgeChunks != 3 {
		t.Errorf("expected 3 edge chunks, got %d", edgeChunks)
	}
	if result.NodesWritten != 26 {
		t.Errorf("expected 26 nodes written, got %d", result.NodesWritten)
	}
	if result.EdgesWritten != 25 {
		t.Errorf("expected 25 edges written, got %d", result.EdgesWritten)
	}
}

func TestWriteNodesBeforeEdges(t *testing.T) {
	client := newFakeClient()
	w := NewWriter(client, WithBatchSize(10))

	if _, err := w.Write(context.Background(), buildIR(t, 5)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	sawEdges := false
	for _, b := range client.batches {
		if b.Kind == OpEdges {
			sawEdges = true
		}
		if b.Kind == OpNodes && sawEdges {
			t.Fatal("node batch executed after edge batch")
		}
	}
}

func TestWriteDropsDanglingEdges(t *testing.T) {
	client := newFakeClient()
	w := NewWriter(client, WithBatchSize(100))

	rep := buildIR(t, 2)
	rep.Relationships["dangling"] = &ir.Relationship{
		SourceID: "nope", TargetID: "alsonope", Type: ir.RelCalls,
	}
	result, err := w.Write(context.Background(), rep)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if result.EdgesDropped != 1 {
		t.Errorf("expected 1 dropped edge, got %d", result.EdgesDropped)
	}
	if result.EdgesWritten != 2 {
		t.Errorf("expected surviving edges to commit, got %d", result.EdgesWritten)
	}
	for _, chunk := range result.Chunks {
		if chunk.Kind == OpEdges && chunk.RelType == ir.RelCalls {
			if chunk.State != StateRejected {
				t.Errorf("fully invalid chunk should be rejected, got %s", chunk.State)
			}
			if len(chunk.Dropped) != 1 {
				t.Errorf("expected 1 reported issue, got %d", len(chunk.Dropped))
			}
		}
	}
}

func TestChunkStateHistory(t *testing.T) {
	client := newFakeClient()
	w := NewWriter(client, WithBatchSize(100))

	rep := buildIR(t, 2)
	rep.Relationships["dangling"] = &ir.Relationship{
		SourceID: "nope", TargetID: "alsonope", Type: ir.RelCalls,
	}
	result, err := w.Write(context.Background(), rep)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantStates := func(got []BatchState, want ...BatchState) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("expected states %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected states %v, got %v", want, got)
			}
		}
	}

	for _, chunk := range result.Chunks {
		switch {
		case chunk.Kind == OpNodes:
			wantStates(chunk.History,
				StatePending, StateValidating, StateValid, StateCommitting, StateCommitted)
		case chunk.RelType == ir.RelContains:
			wantStates(chunk.History,
				StatePending, StateValidating, StateValid, StateCommitting, StateCommitted)
		case chunk.RelType == ir.RelCalls:
			// Every edge in the chunk is dangling.
			wantStates(chunk.History,
				StatePending, StateValidating, StateInvalid, StateRejected)
		}
	}
}

func TestWriteAcceptsEdgesToExistingNodes(t *testing.T) {
	client := newFakeClient()
	client.existing["stored-elsewhere"] = struct{}{}
	w := NewWriter(client, WithBatchSize(100))

	rep := buildIR(t, 1)
	var callableID string
	for id := range rep.Callables {
		callableID = id
	}
	rep.Relationships["x"] = &ir.Relationship{
		SourceID: callableID, TargetID: "stored-elsewhere", Type: ir.RelCalls,
	}
	result, err := w.Write(context.Background(), rep)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if result.EdgesDropped != 0 {
		t.Errorf("edge to already-stored node should validate, dropped %d", result.EdgesDropped)
	}
}

func TestWriteIdempotent(t *testing.T) {
	client := newFakeClient()
	w := NewWriter(client, WithBatchSize(10))

	rep := buildIR(t, 8)
	if _, err := w.Write(context.Background(), rep); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	nodesAfterFirst := len(client.nodes)
	edgesAfterFirst := len(client.edges)

	if _, err := w.Write(context.Background(), rep); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if len(client.nodes) != nodesAfterFirst {
		t.Errorf("node count changed on rewrite: %d -> %d", nodesAfterFirst, len(client.nodes))
	}
	if len(client.edges) != edgesAfterFirst {
		t.Errorf("edge count changed on rewrite: %d -> %d", edgesAfterFirst, len(client.edges))
	}
}

func TestWriteRetriesTransient(t *testing.T) {
	client := newFakeClient()
	client.failures = 2
	client.failWith = Transient(errors.New("lock timeout"))
	w := NewWriter(client, WithBatchSize(100), WithMaxRetries(5))

	if _, err := w.Write(context.Background(), buildIR(t, 3)); err != nil {
		t.Fatalf("expected transient failures to be retried, got %v", err)
	}
}

func TestWritePermanentFailureAborts(t *testing.T) {
	client := newFakeClient()
	client.failures = 1
	client.failWith = errors.New("constraint violation")
	w := NewWriter(client, WithBatchSize(100), WithMaxRetries(5))

	if _, err := w.Write(context.Background(), buildIR(t, 3)); err == nil {
		t.Fatal("expected permanent failure to abort the write")
	}
	if len(client.batches) != 0 {
		// The first batch failed; nothing later should have run.
		t.Errorf("expected no committed batches, got %d", len(client.batches))
	}
}

func TestWriteCancelledContext(t *testing.T) {
	client := newFakeClient()
	w := NewWriter(client, WithBatchSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Write(ctx, buildIR(t, 5)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDeterministicBatchOrder(t *testing.T) {
	run := func() []string {
		client := newFakeClient()
		w := NewWriter(client, WithBatchSize(4))
		if _, err := w.Write(context.Background(), buildIR(t, 10)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		var ids []string
		for _, b := range client.batches {
			for _, n := range b.Nodes {
				ids = append(ids, n.ID)
			}
			for _, e := range b.Edges {
				ids = append(ids, e.SourceID+">"+e.TargetID)
			}
		}
		return ids
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("batch order diverged at %d: %s vs %s", i, first[i], second[i])
		}
	}
}
