package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minhduonq/deep-vision/internal/task"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Request cancellation of a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			return ctx.withRegistry(func(client *apiClient, store *task.Store) error {
				if client != nil {
					if err := client.Cancel(cmd.Context(), taskID); err != nil {
						return err
					}
				} else {
					ok, err := store.RequestCancel(cmd.Context(), taskID)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("task %s not found", taskID)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for task %s\n", taskID)
				return nil
			})
		},
	}
}
