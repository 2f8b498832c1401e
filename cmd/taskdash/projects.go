package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskdash/internal/dashboard"
	"taskdash/internal/model"
)

func projectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and create projects",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := a.client().ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range ps {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", p.ID, p.Name, p.Description)
			}
			return nil
		},
	})

	var name, description string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a project the way the dashboard's Add New form does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := a.controller(cmd, dashboard.AddProject, nil)
			c.AddNew()
			fields := model.Fields{model.FieldName: name}
			if description != "" {
				fields[model.FieldDescription] = description
			}
			if err := c.Save(cmd.Context(), fields); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %q\n", name)
			return nil
		},
	}
	add.Flags().StringVar(&name, model.FieldName, "", "project name")
	add.Flags().StringVar(&description, model.FieldDescription, "", "project description")
	_ = add.MarkFlagRequired(model.FieldName)
	cmd.AddCommand(add)
	return cmd
}
