package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// DefaultHistoryLimit caps ListRecent when the caller passes no limit.
const DefaultHistoryLimit = 50

// Compile-time interface satisfaction check.
var _ driven.ProbeHistoryStore = (*ProbeRepo)(nil)

// ProbeRepo is the SQLite implementation of the ProbeHistoryStore port.
// It stores site URLs and verdicts only.
type ProbeRepo struct {
	db  *DB
	now func() time.Time
}

// NewProbeRepo creates a new ProbeRepo backed by the given DB.
func NewProbeRepo(db *DB) *ProbeRepo {
	return &ProbeRepo{db: db, now: time.Now}
}

// Record appends a probe outcome. Checking is a transient state and is
// stored as unknown.
func (r *ProbeRepo) Record(ctx context.Context, site string, result model.ProbeResult) error {
	const query = `INSERT INTO probe_history (site, status, http_status, time_ms, checked_at) VALUES (?, ?, ?, ?, ?)`

	status := result.Status
	if status != model.SiteStatusAlive && status != model.SiteStatusDead {
		status = model.SiteStatusUnknown
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		site,
		string(status),
		nullInt(result.HTTPStatus),
		nullInt(result.TimeMs),
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record probe of %s: %w", site, err)
	}
	return nil
}

// ListRecent returns the newest entries first. An empty site lists all
// sites; a non-positive limit uses DefaultHistoryLimit.
func (r *ProbeRepo) ListRecent(ctx context.Context, site string, limit int) ([]model.ProbeHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, site, status, http_status, time_ms, checked_at FROM probe_history`
	args := []any{}
	if site != "" {
		query += ` WHERE site = ?`
		args = append(args, site)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list probe history: %w", err)
	}
	defer rows.Close()

	result := []model.ProbeHistoryEntry{}
	for rows.Next() {
		var (
			entry      model.ProbeHistoryEntry
			status     string
			httpStatus sql.NullInt64
			timeMs     sql.NullInt64
			checkedAt  string
		)
		if err := rows.Scan(&entry.ID, &entry.Site, &status, &httpStatus, &timeMs, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan probe history: %w", err)
		}
		entry.Result = model.ProbeResult{
			Status:     model.SiteStatus(status),
			HTTPStatus: intFromNull(httpStatus),
			TimeMs:     intFromNull(timeMs),
		}
		entry.CheckedAt, err = parseTime(checkedAt)
		if err != nil {
			return nil, fmt.Errorf("parse checked_at for entry %d: %w", entry.ID, err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate probe history: %w", err)
	}
	return result, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// parseTime accepts the timestamp layouts SQLite and Go both produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
