package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AperturePlus/synapse/internal/query"
)

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Traverse the stored code graph",
	}

	type runFn func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error)
	sub := func(use, short string, run runFn) *cobra.Command {
		var (
			depth    int
			page     int
			pageSize int
			asJSON   bool
		)
		c := &cobra.Command{
			Use:   use + " <project> <name>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc := query.New(a.store, a.cfg.PageSize, a.cfg.MaxDepth)
				result, err := run(svc, cmd.Context(), args[0], args[1], query.Options{
					Depth:    depth,
					Page:     page,
					PageSize: pageSize,
				})
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				}
				for _, r := range result.Results {
					sig := r.Node.Signature
					if sig != "" {
						sig = " " + sig
					}
					fmt.Printf("%*s%s%s  [%s %s:%d]\n", r.Depth*2, "", r.Node.QualifiedName, sig,
						r.Node.Language, r.Node.FilePath, r.Node.StartLine)
				}
				if result.HasMore {
					fmt.Printf("page %d of %d results; use --page %d for more\n",
						result.Page, result.Total, result.Page+1)
				}
				return nil
			},
		}
		c.Flags().IntVar(&depth, "depth", 0, "traversal depth limit")
		c.Flags().IntVar(&page, "page", 1, "page number")
		c.Flags().IntVar(&pageSize, "page-size", 0, "results per page")
		c.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
		return c
	}

	cmd.AddCommand(
		sub("callers", "List callables that call the named one",
			func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error) {
				return svc.Callers(ctx, project, name, opts)
			}),
		sub("callees", "List callables the named one calls",
			func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error) {
				return svc.Callees(ctx, project, name, opts)
			}),
		sub("ancestors", "List types the named type inherits from",
			func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error) {
				return svc.Ancestors(ctx, project, name, opts)
			}),
		sub("descendants", "List types that inherit from the named type",
			func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error) {
				return svc.Descendants(ctx, project, name, opts)
			}),
		sub("deps", "List modules the named module imports",
			func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error) {
				return svc.Dependencies(ctx, project, name, opts)
			}),
		sub("dependents", "List modules that import the named module",
			func(svc *query.Service, ctx context.Context, project, name string, opts query.Options) (*query.Page, error) {
				return svc.Dependents(ctx, project, name, opts)
			}),
	)
	return cmd
}
