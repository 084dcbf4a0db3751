package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minhduonq/deep-vision/internal/api"
	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/task"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var inputFlag string
	var operationFlag string
	var maxRetriesFlag int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "submit <request>",
		Short: "Submit an image transformation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputRef := strings.TrimSpace(inputFlag)
			if inputRef != "" {
				expanded, err := config.ExpandPath(inputRef)
				if err != nil {
					return fmt.Errorf("resolve input path: %w", err)
				}
				inputRef = expanded
			}

			req := api.SubmitRequest{
				UserRequest: args[0],
				InputRef:    inputRef,
				Operation:   strings.TrimSpace(operationFlag),
				MaxRetries:  maxRetriesFlag,
			}

			return ctx.withRegistry(func(client *apiClient, store *task.Store) error {
				var resp *api.SubmitResponse
				if client != nil {
					submitted, err := client.Submit(cmd.Context(), req)
					if err != nil {
						return err
					}
					resp = &submitted
				} else {
					submitted, err := api.NewTaskService(store).Submit(cmd.Context(), req)
					if err != nil {
						return err
					}
					resp = submitted
				}

				if jsonFlag {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted task %s (%s)\n", resp.TaskID, resp.Status)
				if client == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running; the task will start once deepvisiond is up.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Path to the input image")
	cmd.Flags().StringVarP(&operationFlag, "operation", "o", "", "Force an operation (restore, remove_region, beautify, generate)")
	cmd.Flags().IntVar(&maxRetriesFlag, "max-retries", 0, "Execute retry budget for this task")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}
