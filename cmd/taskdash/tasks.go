package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"taskdash/internal/dashboard"
	"taskdash/internal/live"
	"taskdash/internal/model"
)

func tasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks on a running server",
	}
	cmd.AddCommand(tasksListCmd(a))
	cmd.AddCommand(tasksAddCmd(a))
	cmd.AddCommand(tasksEditCmd(a))
	cmd.AddCommand(tasksDeleteCmd(a))
	cmd.AddCommand(tasksWatchCmd(a))
	cmd.AddCommand(tasksExportCmd(a))
	return cmd
}

func tasksListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the task table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := a.controller(cmd, dashboard.AddTask, nil)
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), c.Tasks())
		},
	}
}

// taskFields collects the task columns whose flags were set.
func taskFields(cmd *cobra.Command) model.Fields {
	f := model.Fields{}
	for _, name := range []string{model.FieldTask, model.FieldMeeting, model.FieldProject} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			f[name] = v
		}
	}
	return f
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String(model.FieldTask, "", "task description")
	cmd.Flags().String(model.FieldMeeting, "", "meeting the task came from")
	cmd.Flags().String(model.FieldProject, "", "project the task belongs to")
}

func tasksAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := a.controller(cmd, dashboard.AddTask, nil)
			c.AddNew()
			if err := c.Save(cmd.Context(), taskFields(cmd)); err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), c.Tasks())
		},
	}
	addTaskFlags(cmd)
	_ = cmd.MarkFlagRequired(model.FieldTask)
	return cmd
}

// findRow refreshes and looks up the row named by the id argument.
func findRow(ctx context.Context, c *dashboard.Controller, arg string) (model.Task, error) {
	id, err := model.ParseTaskID(arg)
	if err != nil {
		return model.Task{}, err
	}
	if err := c.Refresh(ctx); err != nil {
		return model.Task{}, err
	}
	row, ok := c.Find(id)
	if !ok {
		return model.Task{}, fmt.Errorf("task %d not found", id)
	}
	return row, nil
}

func tasksEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <task_id>",
		Short: "Change a task's columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := a.controller(cmd, dashboard.AddTask, nil)
			row, err := findRow(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			fields := taskFields(cmd)
			if len(fields) == 0 {
				return errors.New("nothing to change: pass --task, --meeting or --project")
			}
			c.Edit(row)
			if err := c.Save(cmd.Context(), fields); err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), c.Tasks())
		},
	}
	addTaskFlags(cmd)
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func tasksDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <task_id>",
		Short: "Delete a task after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := a.controller(cmd, dashboard.AddTask, nil)
			row, err := findRow(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			c.Delete(row)
			if !yes && !confirm(cmd, fmt.Sprintf("Delete %q?", row.Task)) {
				c.Cancel()
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			if err := c.ConfirmDelete(cmd.Context()); err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), c.Tasks())
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func tasksWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the task table again whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			c, client := a.controller(cmd, dashboard.AddTask, func(tasks []model.Task) {
				fmt.Fprintln(out)
				_ = renderTable(out, tasks)
			})
			if err := c.Refresh(ctx); err != nil {
				return err
			}

			url, err := client.ChangesURL()
			if err != nil {
				return err
			}
			signals, err := live.Dial(ctx, url)
			if err != nil {
				return fmt.Errorf("connect change feed: %w", err)
			}
			err = c.Watch(ctx, signals)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err == nil && ctx.Err() == nil {
				return errors.New("change feed closed")
			}
			return err
		},
	}
}

func tasksExportCmd(a *app) *cobra.Command {
	var (
		format  string
		outPath string
		title   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task table as json, csv or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dashboard.ParseFormat(format)
			if err != nil {
				return err
			}
			c, _ := a.controller(cmd, dashboard.AddTask, nil)
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				file, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return dashboard.Export(w, f, title, dashboard.Columns(), c.Tasks())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, csv or pdf")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&title, "title", "Tasks", "document title (pdf)")
	return cmd
}
