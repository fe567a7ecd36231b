package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/AperturePlus/synapse/internal/ir"
)

// BatchState tracks a chunk through the write lifecycle.
type BatchState string

const (
	StatePending    BatchState = "PENDING"
	StateValidating BatchState = "VALIDATING"
	StateValid      BatchState = "VALID"
	StateCommitting BatchState = "COMMITTING"
	StateCommitted  BatchState = "COMMITTED"
	StateInvalid    BatchState = "INVALID"
	StateRejected   BatchState = "REJECTED"
)

// EdgeIssue reports one edge dropped during validation.
type EdgeIssue struct {
	Edge   EdgeUpsert
	Reason string
}

// ChunkReport summarizes one chunk's outcome. History records every
// state the chunk passed through; State is the terminal one.
type ChunkReport struct {
	Kind    OpKind
	Label   string
	RelType ir.RelType
	Index   int
	Size    int
	State   BatchState
	History []BatchState
	Dropped []EdgeIssue
}

func (r *ChunkReport) to(s BatchState) {
	r.State = s
	r.History = append(r.History, s)
}

// WriteResult summarizes a whole write.
type WriteResult struct {
	Project      string
	NodesWritten int
	EdgesWritten int
	EdgesDropped int
	Chunks       []ChunkReport
	Duration     time.Duration
}

// Writer pushes a merged IR into a graph backend in fixed-size,
// idempotent chunks: all nodes first, then edges, so edge validation
// can rely on every endpoint either existing in the backend already or
// being part of the same write. Writes to the same project are
// serialized; different projects may write concurrently.
type Writer struct {
	client     Client
	batchSize  int
	maxRetries uint64
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBatchSize overrides the default chunk size.
func WithBatchSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithMaxRetries caps retry attempts for transient backend failures.
func WithMaxRetries(n uint64) WriterOption {
	return func(w *Writer) { w.maxRetries = n }
}

// WithLogger sets the writer's logger.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

const defaultBatchSize = 500

// NewWriter returns a Writer over the given backend.
func NewWriter(client Client, opts ...WriterOption) *Writer {
	w := &Writer{
		client:     client,
		batchSize:  defaultBatchSize,
		maxRetries: 3,
		logger:     slog.Default(),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) projectLock(project string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[project]
	if !ok {
		l = &sync.Mutex{}
		w.locks[project] = l
	}
	return l
}

// Write pushes the IR for one project. Nodes are written before edges.
// Each edge chunk is validated against the union of already-stored ids
// and the ids in this IR: edges with missing endpoints are dropped and
// reported while the rest of the chunk still commits. A chunk whose
// edges are all invalid is rejected without touching the backend.
func (w *Writer) Write(ctx context.Context, rep *ir.IR) (*WriteResult, error) {
	lock := w.projectLock(rep.Project)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	result := &WriteResult{Project: rep.Project}

	existing, err := w.client.ExistingIDs(ctx, rep.Project)
	if err != nil {
		return nil, fmt.Errorf("load existing ids: %w", err)
	}
	validIDs := make(map[string]struct{}, len(existing)+rep.EntityCount())
	for id := range existing {
		validIDs[id] = struct{}{}
	}
	for id := range rep.Modules {
		validIDs[id] = struct{}{}
	}
	for id := range rep.Types {
		validIDs[id] = struct{}{}
	}
	for id := range rep.Callables {
		validIDs[id] = struct{}{}
	}

	byLabel := nodesByLabel(rep)
	for _, label := range sortedLabels(byLabel) {
		if err := w.writeNodes(ctx, rep.Project, label, byLabel[label], result); err != nil {
			return result, err
		}
	}

	byType := edgesByType(rep)
	for _, relType := range sortedRelTypes(byType) {
		if err := w.writeEdges(ctx, rep.Project, relType, byType[relType], validIDs, result); err != nil {
			return result, err
		}
	}

	result.Duration = time.Since(start)
	w.logger.Info("graph.write.done",
		"project", rep.Project,
		"nodes", result.NodesWritten,
		"edges", result.EdgesWritten,
		"dropped", result.EdgesDropped,
		"duration", result.Duration)
	return result, nil
}

func (w *Writer) writeNodes(ctx context.Context, project, label string, nodes []NodeUpsert, result *WriteResult) error {
	for index, chunk := range chunks(nodes, w.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		report := ChunkReport{Kind: OpNodes, Label: label, Index: index, Size: len(chunk)}
		report.to(StatePending)

		// Node validation is the label whitelist; properties travel as
		// bound parameters and need no per-row checks.
		report.to(StateValidating)
		if !ValidLabel(label) {
			report.to(StateInvalid)
			report.to(StateRejected)
			result.Chunks = append(result.Chunks, report)
			return fmt.Errorf("label %q not in whitelist", label)
		}
		report.to(StateValid)

		report.to(StateCommitting)
		err := w.commit(ctx, &BatchOp{
			Kind:    OpNodes,
			Project: project,
			Label:   label,
			Nodes:   chunk,
		})
		if err != nil {
			report.to(StateRejected)
			result.Chunks = append(result.Chunks, report)
			return fmt.Errorf("commit %s chunk %d: %w", label, index, err)
		}
		report.to(StateCommitted)
		result.NodesWritten += len(chunk)
		result.Chunks = append(result.Chunks, report)
	}
	return nil
}

func (w *Writer) writeEdges(ctx context.Context, project string, relType ir.RelType, edges []EdgeUpsert, validIDs map[string]struct{}, result *WriteResult) error {
	if !ValidRelType(relType) {
		return fmt.Errorf("relationship type %q not in whitelist", relType)
	}
	for index, chunk := range chunks(edges, w.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		report := ChunkReport{Kind: OpEdges, RelType: relType, Index: index, Size: len(chunk)}
		report.to(StatePending)

		report.to(StateValidating)
		valid := chunk[:0:0]
		for _, e := range chunk {
			if _, ok := validIDs[e.SourceID]; !ok {
				report.Dropped = append(report.Dropped, EdgeIssue{Edge: e, Reason: "unknown source node"})
				continue
			}
			if _, ok := validIDs[e.TargetID]; !ok {
				report.Dropped = append(report.Dropped, EdgeIssue{Edge: e, Reason: "unknown target node"})
				continue
			}
			valid = append(valid, e)
		}
		result.EdgesDropped += len(report.Dropped)

		if len(valid) == 0 {
			report.to(StateInvalid)
			report.to(StateRejected)
			if len(report.Dropped) > 0 {
				w.logger.Warn("graph.write.chunk_rejected",
					"project", project, "rel", relType, "chunk", index, "dropped", len(report.Dropped))
			}
			result.Chunks = append(result.Chunks, report)
			continue
		}
		if len(report.Dropped) > 0 {
			w.logger.Warn("graph.write.edges_dropped",
				"project", project, "rel", relType, "chunk", index, "dropped", len(report.Dropped))
		}

		report.to(StateValid)
		report.to(StateCommitting)
		err := w.commit(ctx, &BatchOp{
			Kind:    OpEdges,
			Project: project,
			RelType: relType,
			Edges:   valid,
		})
		if err != nil {
			report.to(StateRejected)
			result.Chunks = append(result.Chunks, report)
			return fmt.Errorf("commit %s chunk %d: %w", relType, index, err)
		}
		report.to(StateCommitted)
		result.EdgesWritten += len(valid)
		result.Chunks = append(result.Chunks, report)
	}
	return nil
}

// commit executes one batch, retrying transient failures with
// exponential backoff. Permanent failures abort immediately.
func (w *Writer) commit(ctx context.Context, op *BatchOp) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.maxRetries), ctx)
	return backoff.Retry(func() error {
		err := w.client.ExecuteBatch(ctx, op)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// chunks splits items into slices of at most size elements.
func chunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
