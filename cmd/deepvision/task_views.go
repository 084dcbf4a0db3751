package main

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/minhduonq/deep-vision/internal/api"
	"github.com/minhduonq/deep-vision/internal/task"
)

var titleCaser = cases.Title(language.Und)

// operationLabel renders an operation kind for table display, e.g.
// "remove_region" becomes "Remove Region".
func operationLabel(operation string) string {
	trimmed := strings.TrimSpace(operation)
	if trimmed == "" || trimmed == string(task.OpUnknown) {
		return "-"
	}
	return titleCaser.String(strings.ReplaceAll(trimmed, "_", " "))
}

func statusLabel(status string) string {
	if strings.TrimSpace(status) == "" {
		return "-"
	}
	return titleCaser.String(strings.ReplaceAll(status, "_", " "))
}

func buildTaskListRows(tasks []api.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		review := "-"
		if t.NeedsReview {
			review = "yes"
		}
		rows = append(rows, []string{
			t.TaskID,
			operationLabel(t.Operation),
			statusLabel(t.Status),
			fmt.Sprintf("%d%%", t.Progress),
			review,
			t.CreatedAt,
		})
	}
	return rows
}

func buildStatsRows(stats map[string]int) [][]string {
	order := []string{
		string(task.StatusPending),
		string(task.StatusAnalyzing),
		string(task.StatusExecuting),
		string(task.StatusValidating),
		string(task.StatusCompleted),
		string(task.StatusFailed),
	}
	seen := make(map[string]bool, len(order))

	var rows [][]string
	for _, status := range order {
		seen[status] = true
		if count, ok := stats[status]; ok && count > 0 {
			rows = append(rows, []string{statusLabel(status), fmt.Sprintf("%d", count)})
		}
	}

	var extras []string
	for status, count := range stats {
		if !seen[status] && count > 0 {
			extras = append(extras, status)
		}
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{statusLabel(status), fmt.Sprintf("%d", stats[status])})
	}
	return rows
}
