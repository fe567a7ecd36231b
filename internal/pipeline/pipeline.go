// Package pipeline orchestrates a full project scan: discover files,
// scan them concurrently per language, merge the per-file results in
// deterministic order, resolve references, and write the graph.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AperturePlus/synapse/internal/adapter"
	"github.com/AperturePlus/synapse/internal/adapter/golang"
	"github.com/AperturePlus/synapse/internal/adapter/javalang"
	"github.com/AperturePlus/synapse/internal/adapter/phplang"
	"github.com/AperturePlus/synapse/internal/discover"
	"github.com/AperturePlus/synapse/internal/graph"
	"github.com/AperturePlus/synapse/internal/ir"
	"github.com/AperturePlus/synapse/internal/lang"
	"github.com/AperturePlus/synapse/internal/metrics"
)

// ScanResult summarizes one pipeline run.
type ScanResult struct {
	Project      string        `json:"project"`
	Files        int           `json:"files"`
	Skipped      []string      `json:"skipped,omitempty"`
	Modules      int           `json:"modules"`
	Types        int           `json:"types"`
	Callables    int           `json:"callables"`
	NodesWritten int           `json:"nodesWritten"`
	EdgesWritten int           `json:"edgesWritten"`
	EdgesDropped int           `json:"edgesDropped"`
	Unresolved   int           `json:"unresolved"`
	Ambiguous    int           `json:"ambiguous"`
	Conflicts    int           `json:"conflicts"`
	Duration     time.Duration `json:"duration"`
}

// Options configures a pipeline run.
type Options struct {
	// Languages restricts the scan; empty means all supported.
	Languages []lang.Language
	// Workers caps concurrent file scans; zero means GOMAXPROCS.
	Workers int
	// ClearFirst wipes the project's graph before writing, turning
	// the scan into a full rebuild instead of an additive update.
	ClearFirst bool
	// ExtraIgnores are extra discovery ignore patterns.
	ExtraIgnores []string
}

// Pipeline wires discovery, adapters, and the graph writer together.
type Pipeline struct {
	writer  *graph.Writer
	backend graph.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a pipeline over the given backend.
func New(backend graph.Client, writer *graph.Writer, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{writer: writer, backend: backend, logger: logger, metrics: m}
}

// Scan runs the full pipeline for one project rooted at root.
func (p *Pipeline) Scan(ctx context.Context, project, root string, opts Options) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{Project: project}

	files, err := discover.Files(root, discover.Options{
		Languages:    opts.Languages,
		ExtraIgnores: opts.ExtraIgnores,
	})
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	result.Files = len(files)
	p.logger.Info("pipeline.discover.done", "project", project, "files", len(files))

	registry := adapter.NewRegistry(
		golang.New(goModulePath(root, project)),
		javalang.New(),
		phplang.New(),
	)

	results, skipped, err := p.scanFiles(ctx, project, files, registry, opts.Workers)
	if err != nil {
		return nil, err
	}
	result.Skipped = skipped

	table := adapter.BuildTable(results)
	conflicts := table.Conflicts()
	result.Conflicts = len(conflicts)
	for _, c := range conflicts {
		p.logger.Warn("pipeline.symtab.conflict",
			"first", c.Kept.FilePath, "duplicate", c.Excluded.FilePath)
	}
	adapter.ExcludeConflicts(results, conflicts)

	// Files come back in discovery order, so the merged IR is
	// identical run to run.
	merged := ir.New(project)
	for _, res := range results {
		if err := ir.Merge(merged, res.IR); err != nil {
			return nil, fmt.Errorf("merge %s: %w", res.File.RelPath, err)
		}
	}

	stats := adapter.ResolveRefs(project, results, table, merged)
	result.Unresolved = stats.Unresolved
	result.Ambiguous = stats.Ambiguous

	result.Modules = len(merged.Modules)
	result.Types = len(merged.Types)
	result.Callables = len(merged.Callables)
	p.logger.Info("pipeline.resolve.done",
		"project", project,
		"entities", merged.EntityCount(),
		"relationships", len(merged.Relationships),
		"unresolved", stats.Unresolved)

	if opts.ClearFirst {
		if err := p.backend.ClearProject(ctx, project); err != nil {
			return nil, fmt.Errorf("clear project: %w", err)
		}
	}

	writeStart := time.Now()
	wr, err := p.writer.Write(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("write graph: %w", err)
	}
	result.NodesWritten = wr.NodesWritten
	result.EdgesWritten = wr.EdgesWritten
	result.EdgesDropped = wr.EdgesDropped

	result.Duration = time.Since(start)
	if p.metrics != nil {
		p.metrics.NodesWritten.Add(float64(wr.NodesWritten))
		p.metrics.EdgesWritten.Add(float64(wr.EdgesWritten))
		p.metrics.EdgesDropped.Add(float64(wr.EdgesDropped))
		p.metrics.ScanDuration.Observe(result.Duration.Seconds())
		p.metrics.WriteDuration.Observe(time.Since(writeStart).Seconds())
	}
	p.logger.Info("pipeline.scan.done",
		"project", project,
		"files", result.Files,
		"skipped", len(result.Skipped),
		"duration", result.Duration)
	return result, nil
}

// scanFiles parses files concurrently. Results keep discovery order
// regardless of which worker finished first.
func (p *Pipeline) scanFiles(ctx context.Context, project string, files []discover.FileInfo, registry *adapter.Registry, workers int) ([]*adapter.FileResult, []string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]*adapter.FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(file.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", file.RelPath, err)
			}
			a, err := registry.For(file.Language)
			if err != nil {
				return err
			}
			res, err := a.Scan(project, adapter.SourceFile{
				Path:     file.Path,
				RelPath:  file.RelPath,
				Language: file.Language,
				Content:  content,
			})
			if err != nil {
				var pe *adapter.ParseError
				if errors.As(err, &pe) {
					p.logger.Warn("pipeline.scan.skip", "file", file.RelPath, "error", pe.Err)
					if p.metrics != nil {
						p.metrics.FilesSkipped.WithLabelValues(string(file.Language)).Inc()
					}
					return nil
				}
				return err
			}
			if p.metrics != nil {
				p.metrics.FilesScanned.WithLabelValues(string(file.Language)).Inc()
			}
			slots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	results := make([]*adapter.FileResult, 0, len(files))
	var skipped []string
	for i, res := range slots {
		if res == nil {
			skipped = append(skipped, files[i].RelPath)
			continue
		}
		results = append(results, res)
	}
	return results, skipped, nil
}

// goModulePath reads the module directive from the project's go.mod.
// Projects without one fall back to the project name, which keeps Go
// package qualified names stable if unanchored.
func goModulePath(root, project string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return project
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return project
}
