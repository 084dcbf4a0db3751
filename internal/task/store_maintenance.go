package task

import (
	"context"
	"fmt"
)

// HealthSummary describes aggregated task counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Stats returns task counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health summarizes the registry for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Pending:   stats[StatusPending],
		Failed:    stats[StatusFailed],
		Completed: stats[StatusCompleted],
	}
	for status, count := range stats {
		summary.Total += count
		if _, ok := processingStatuses[status]; ok {
			summary.Processing += count
		}
	}
	return summary, nil
}

// ResetStuckProcessing returns tasks abandoned mid-stage (e.g. after a crash)
// to pending so a restarted daemon picks them up again.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks SET status = ?, progress = 0, retry_count = 0
         WHERE status IN (?, ?, ?)`,
		string(StatusPending),
		string(StatusAnalyzing),
		string(StatusExecuting),
		string(StatusValidating),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck processing: %w", err)
	}
	return res.RowsAffected()
}
