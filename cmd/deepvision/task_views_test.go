package main

import (
	"testing"

	"github.com/minhduonq/deep-vision/internal/api"
)

func TestOperationLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"restore", "Restore"},
		{"remove_region", "Remove Region"},
		{"beautify", "Beautify"},
		{"generate", "Generate"},
		{"unknown", "-"},
		{"", "-"},
	}
	for _, tc := range cases {
		if got := operationLabel(tc.in); got != tc.want {
			t.Errorf("operationLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildStatsRowsOrder(t *testing.T) {
	stats := map[string]int{
		"completed": 3,
		"pending":   1,
		"failed":    2,
		"executing": 0,
	}
	rows := buildStatsRows(stats)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	order := []string{"Pending", "Completed", "Failed"}
	for i, want := range order {
		if rows[i][0] != want {
			t.Fatalf("row %d = %q, want %q", i, rows[i][0], want)
		}
	}
}

func TestBuildTaskListRows(t *testing.T) {
	rows := buildTaskListRows([]api.Task{
		{TaskID: "abc", Operation: "remove_region", Status: "executing"},
		{TaskID: "def", Operation: "restore", Status: "completed", Progress: 100, NeedsReview: true},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Remove Region" {
		t.Fatalf("unexpected operation label %q", rows[0][1])
	}
	if rows[1][3] != "100%" || rows[1][4] != "yes" {
		t.Fatalf("unexpected row %v", rows[1])
	}
}
