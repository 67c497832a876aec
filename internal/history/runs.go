package history

import (
	"context"
	"fmt"
	"time"
)

// Run is one link-building pass as recorded in the history log.
type Run struct {
	ID        int64
	StartedAt time.Time
	ObsTotal  int
	RemTotal  int
	Matched   int

	New      int
	Updated  int
	Replaced int
	Rejected int

	LinkTotal int
	Written   bool
}

// AppendRun inserts a run record and returns its assigned ID.
// Timestamps are stored as RFC 3339 UTC text.
func (s *Store) AppendRun(ctx context.Context, run Run) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(started_at, obs_total, rem_total, matched,
		 links_new, links_updated, links_replaced, links_rejected,
		 link_total, written)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.ObsTotal,
		run.RemTotal,
		run.Matched,
		run.New,
		run.Updated,
		run.Replaced,
		run.Rejected,
		run.LinkTotal,
		boolToInt(run.Written),
	)
	if err != nil {
		return 0, fmt.Errorf("append run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append run: last insert id: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first. Ordering is by
// started_at then id so two runs in the same second stay deterministic.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, obs_total, rem_total, matched,
		       links_new, links_updated, links_replaced, links_rejected,
		       link_total, written
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var written int
		if err := rows.Scan(
			&run.ID, &startedAt, &run.ObsTotal, &run.RemTotal, &run.Matched,
			&run.New, &run.Updated, &run.Replaced, &run.Rejected,
			&run.LinkTotal, &written,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse run %d started_at: %w", run.ID, err)
		}
		run.StartedAt = ts
		run.Written = written != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
