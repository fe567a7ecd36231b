package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage registered projects",
	}

	add := &cobra.Command{
		Use:   "add <name> <root>",
		Short: "Register a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			p, err := a.store.CreateProject(cmd.Context(), args[0], root)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s (%s) at %s\n", p.Name, p.ID, p.RootPath)
			return nil
		},
	}

	var includeArchived bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := a.store.ListProjects(cmd.Context(), includeArchived)
			if err != nil {
				return err
			}
			for _, p := range projects {
				status := ""
				if p.ArchivedAt != nil {
					status = "  (archived)"
				}
				fmt.Printf("%s\t%s%s\n", p.Name, p.RootPath, status)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&includeArchived, "all", false, "include archived projects")

	archive := &cobra.Command{
		Use:   "archive <name>",
		Short: "Archive a project, keeping its graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.ArchiveProject(cmd.Context(), args[0])
		},
	}

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a project and its graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.DeleteProject(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(add, list, archive, rm)
	return cmd
}
