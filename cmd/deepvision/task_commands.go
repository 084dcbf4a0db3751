package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minhduonq/deep-vision/internal/api"
	"github.com/minhduonq/deep-vision/internal/task"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and manage the task queue",
	}

	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksStatsCommand(ctx))
	tasksCmd.AddCommand(newTasksRetryCommand(ctx))
	tasksCmd.AddCommand(newTasksRemoveCommand(ctx))
	tasksCmd.AddCommand(newTasksClearCompletedCommand(ctx))
	tasksCmd.AddCommand(newTasksResetCommand(ctx))

	return tasksCmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var limitFlag int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(client *apiClient, store *task.Store) error {
				var tasks []api.Task
				var err error
				if client != nil {
					tasks, err = client.List(cmd.Context(), listStatuses, limitFlag)
				} else {
					var statuses []task.Status
					for _, value := range listStatuses {
						statuses = append(statuses, task.Status(value))
					}
					tasks, err = api.NewTaskService(store).List(cmd.Context(), limitFlag, statuses...)
				}
				if err != nil {
					return err
				}

				if jsonFlag {
					return writeJSON(cmd, api.TaskListResponse{Tasks: tasks})
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
					return nil
				}
				rendered := renderTable(
					[]string{"Task", "Operation", "Status", "Progress", "Review", "Created"},
					buildTaskListRows(tasks),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum number of tasks to show")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newTasksStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRegistry(func(client *apiClient, store *task.Store) error {
				var stats map[string]int
				if client != nil {
					status, err := client.Status(cmd.Context())
					if err != nil {
						return err
					}
					stats = status.Engine.QueueStats
				} else {
					raw, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					stats = make(map[string]int, len(raw))
					for status, count := range raw {
						stats[string(status)] = count
					}
				}

				rows := buildStatsRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
					return nil
				}
				rendered := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			})
		},
	}
}

func newTasksRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [task-id...]",
		Short: "Reset failed tasks back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.RetryFailed(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d task(s) to pending\n", count)
			return nil
		},
	}
}

func newTasksRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Delete a task record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("task %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", args[0])
			return nil
		},
	}
}

func newTasksClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed task(s)\n", count)
			return nil
		},
	}
}

func newTasksResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight tasks to pending after a crash",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.ResetStuckProcessing(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d stuck task(s)\n", count)
			return nil
		},
	}
}
