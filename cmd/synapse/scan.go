package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AperturePlus/synapse/internal/graph"
	"github.com/AperturePlus/synapse/internal/lang"
	"github.com/AperturePlus/synapse/internal/pipeline"
	"github.com/AperturePlus/synapse/internal/store"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		root       string
		languages  []string
		clearFirst bool
		ignores    []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <project>",
		Short: "Scan a codebase and write its topology graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := args[0]
			ctx := cmd.Context()

			// A registered project supplies its root; --root overrides
			// and registers unknown projects on the fly.
			p, err := a.store.GetProject(ctx, project)
			switch {
			case err == nil:
				if root == "" {
					root = p.RootPath
				}
			case errors.Is(err, store.ErrProjectNotFound):
				if root == "" {
					return fmt.Errorf("project %q is not registered; pass --root", project)
				}
				if _, err := a.store.CreateProject(ctx, project, root); err != nil {
					return err
				}
			default:
				return err
			}

			var langs []lang.Language
			for _, name := range languages {
				l := lang.Language(name)
				if !lang.Valid(l) {
					return fmt.Errorf("unsupported language %q", name)
				}
				langs = append(langs, l)
			}

			writer := graph.NewWriter(a.store,
				graph.WithBatchSize(a.cfg.BatchSize),
				graph.WithMaxRetries(uint64(a.cfg.MaxRetries)),
				graph.WithLogger(a.logger))
			pipe := pipeline.New(a.store, writer, a.logger, a.metrics)

			result, err := pipe.Scan(ctx, project, root, pipeline.Options{
				Languages:    langs,
				Workers:      a.cfg.Workers,
				ClearFirst:   clearFirst,
				ExtraIgnores: ignores,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Printf("scanned %d files (%d skipped) in %s\n", result.Files, len(result.Skipped), result.Duration.Round(1e6))
			fmt.Printf("  modules %d, types %d, callables %d\n", result.Modules, result.Types, result.Callables)
			fmt.Printf("  wrote %d nodes, %d edges (%d dropped)\n", result.NodesWritten, result.EdgesWritten, result.EdgesDropped)
			if result.Unresolved > 0 || result.Conflicts > 0 {
				fmt.Printf("  unresolved refs %d, symbol conflicts %d\n", result.Unresolved, result.Conflicts)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root directory")
	cmd.Flags().StringSliceVar(&languages, "lang", nil, "restrict scan to languages (go, java, php)")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "wipe the project's graph before writing")
	cmd.Flags().StringSliceVar(&ignores, "ignore", nil, "extra ignore patterns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scan summary as JSON")
	return cmd
}
