package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhduonq/deep-vision/internal/api"
	"github.com/minhduonq/deep-vision/internal/task"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool
	var historyFlag bool
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show details for a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			if watchFlag {
				return watchTask(cmd, ctx, taskID)
			}
			return ctx.withRegistry(func(client *apiClient, store *task.Store) error {
				var dto *api.Task
				var err error
				if client != nil {
					dto, err = client.Describe(cmd.Context(), taskID)
				} else {
					dto, err = api.NewTaskService(store).Describe(cmd.Context(), taskID)
				}
				if err != nil {
					return err
				}
				if dto == nil {
					return fmt.Errorf("task %s not found", taskID)
				}

				if jsonFlag {
					return writeJSON(cmd, api.TaskResponse{Task: *dto})
				}
				printTaskDetail(cmd, dto)

				if historyFlag && store != nil {
					entries, err := store.HistoryFor(cmd.Context(), taskID)
					if err != nil {
						return err
					}
					printHistory(cmd, entries)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	cmd.Flags().BoolVar(&historyFlag, "history", false, "Include recorded terminal transitions (direct store access only)")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Poll until the task reaches a terminal status")
	return cmd
}

const watchPollInterval = 2 * time.Second

func watchTask(cmd *cobra.Command, ctx *commandContext, taskID string) error {
	out := cmd.OutOrStdout()
	var lastStatus string
	var lastProgress int = -1

	for {
		var dto *api.Task
		err := ctx.withRegistry(func(client *apiClient, store *task.Store) error {
			var lookupErr error
			if client != nil {
				dto, lookupErr = client.Describe(cmd.Context(), taskID)
			} else {
				dto, lookupErr = api.NewTaskService(store).Describe(cmd.Context(), taskID)
			}
			return lookupErr
		})
		if err != nil {
			return err
		}
		if dto == nil {
			return fmt.Errorf("task %s not found", taskID)
		}

		if dto.Status != lastStatus || dto.Progress != lastProgress {
			fmt.Fprintf(out, "%s  %s (%d%%)\n", time.Now().Format("15:04:05"), statusLabel(dto.Status), dto.Progress)
			lastStatus = dto.Status
			lastProgress = dto.Progress
		}
		if dto.Status == string(task.StatusCompleted) || dto.Status == string(task.StatusFailed) {
			printTaskDetail(cmd, dto)
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(watchPollInterval):
		}
	}
}

func printTaskDetail(cmd *cobra.Command, dto *api.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:       %s\n", dto.TaskID)
	fmt.Fprintf(out, "Request:    %s\n", dto.UserRequest)
	fmt.Fprintf(out, "Operation:  %s\n", operationLabel(dto.Operation))
	fmt.Fprintf(out, "Status:     %s (%d%%)\n", statusLabel(dto.Status), dto.Progress)
	if dto.InputRef != "" {
		fmt.Fprintf(out, "Input:      %s\n", dto.InputRef)
	}
	if dto.OutputRef != "" {
		fmt.Fprintf(out, "Output:     %s\n", dto.OutputRef)
	}
	if dto.NeedsReview {
		fmt.Fprintf(out, "Review:     needed (%s)\n", dto.ReviewReason)
	}
	if dto.RetryCount > 0 || dto.MaxRetries > 0 {
		fmt.Fprintf(out, "Retries:    %d of %d used\n", dto.RetryCount, dto.MaxRetries)
	}
	if dto.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", dto.ErrorMessage)
	}
	for _, stageErr := range dto.Errors {
		fmt.Fprintf(out, "  [%s] %s: %s\n", stageErr.Kind, stageErr.Stage, stageErr.Message)
	}
}

func printHistory(cmd *cobra.Command, entries []task.HistoryEntry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No terminal transitions recorded")
		return
	}
	fmt.Fprintln(out, "History:")
	for _, entry := range entries {
		line := fmt.Sprintf("  %s %s", entry.RecordedAt.Format("2006-01-02 15:04:05"), statusLabel(string(entry.Status)))
		if entry.OutputRef != "" {
			line += " -> " + entry.OutputRef
		}
		if entry.ErrorMessage != "" {
			line += " (" + entry.ErrorMessage + ")"
		}
		fmt.Fprintln(out, line)
	}
}
