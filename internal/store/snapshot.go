package store

import (
	"fmt"
	"time"

	"KabuScope/internal/model"
)

// RecordSnapshot persists the most recent banded bar of a batch result.
// Results carrying an error or an empty series are skipped silently; the
// refresh loop calls this for every member of a batch.
func (s *Store) RecordSnapshot(res model.BatchResult) error {
	if res.Err != nil || res.Series == nil {
		return nil
	}
	last, ok := res.Series.Last()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var vwap, sd, u1, l1, u2, l2 interface{}
	if last.HasBands {
		vwap, sd = last.VWAP, last.StdDev
		u1, l1 = last.Upper1, last.Lower1
		u2, l2 = last.Upper2, last.Lower2
	}
	_, err := s.db.Exec(`INSERT INTO band_snapshots
		(timestamp, code, interval, close, vwap, std_dev, upper1, lower1, upper2, lower2)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), res.Code, res.Series.Interval.String(),
		last.Close, vwap, sd, u1, l1, u2, l2,
	)
	if err != nil {
		return fmt.Errorf("record snapshot %s: %w", res.Code, err)
	}
	return nil
}

// Snapshot is one persisted band snapshot row.
type Snapshot struct {
	Time     time.Time
	Code     string
	Interval string
	Close    float64
	VWAP     *float64
	StdDev   *float64
	Upper1   *float64
	Lower1   *float64
	Upper2   *float64
	Lower2   *float64
}

// RecentSnapshots returns the newest snapshots for one code, most recent first.
func (s *Store) RecentSnapshots(code string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT timestamp, code, interval, close, vwap, std_dev,
			upper1, lower1, upper2, lower2
		FROM band_snapshots WHERE code = ? ORDER BY timestamp DESC LIMIT ?`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var ts int64
		if err := rows.Scan(&ts, &snap.Code, &snap.Interval, &snap.Close,
			&snap.VWAP, &snap.StdDev, &snap.Upper1, &snap.Lower1, &snap.Upper2, &snap.Lower2); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Time = time.Unix(ts, 0).UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}
