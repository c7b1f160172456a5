// Package repo provides postgres and clickhouse access for the sync module
package repo

import (
	"context"
	"database/sql"

	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"

	"github.com/google/uuid"
)

type (
	// PG is a Postgres binder for domain.ManifestRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.ManifestRepo
func NewPG() repokit.Binder[domain.ManifestRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.ManifestRepo { return &queries{q: q} }

// CreateRun inserts the run row in running state
func (r *queries) CreateRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_runs (id, session_dir, camera_dir, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.SessionDir, run.CameraDir, run.Status, run.StartedAt)
	return perr.FromPostgresf(err, "create run %s", run.ID)
}

// FinishRun records the terminal status and tallies
func (r *queries) FinishRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		UPDATE sync_runs SET
			status = $2,
			finished_at = now(),
			segments = $3,
			synced = $4,
			skipped = $5,
			failed = $6,
			error = NULLIF($7, '')
		WHERE id = $1
	`, run.ID, run.Status, run.Segments, run.Synced, run.Skipped, run.Failed, run.Error)
	return perr.FromPostgresf(err, "finish run %s", run.ID)
}

// AddSegment appends one segment outcome
func (r *queries) AddSegment(ctx context.Context, seg domain.Segment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_segments (run_id, stamp, camera, status, rows_synced, detail)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`, seg.RunID, seg.Stamp, seg.Camera, seg.Status, seg.Rows, seg.Detail)
	return perr.FromPostgresf(err, "add segment %s/%s", seg.Stamp, seg.Camera)
}

// AddUnresolved appends unresolved discontinuity reports
func (r *queries) AddUnresolved(ctx context.Context, items []domain.Unresolved) error {
	for _, u := range items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sync_unresolved (run_id, stamp, camera, stream, kind, start_index, end_index, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, u.RunID, u.Stamp, u.Camera, u.Stream, u.Kind, u.StartIndex, u.EndIndex, u.Reason)
		if err != nil {
			return perr.FromPostgresf(err, "add unresolved %s/%s", u.Stamp, u.Camera)
		}
	}
	return nil
}

const runColumns = `
	id, session_dir, camera_dir, status, started_at, finished_at,
	segments, synced, skipped, failed, COALESCE(error, '')
`

func scanRun(scan func(...any) error) (domain.Run, error) {
	var (
		run domain.Run
		fin sql.NullTime
	)
	err := scan(
		&run.ID, &run.SessionDir, &run.CameraDir, &run.Status, &run.StartedAt, &fin,
		&run.Segments, &run.Synced, &run.Skipped, &run.Failed, &run.Error,
	)
	if err != nil {
		return domain.Run{}, err
	}
	if fin.Valid {
		run.FinishedAt = &fin.Time
	}
	return run, nil
}

// ListRuns returns the most recent runs
func (r *queries) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+runColumns+`
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list runs")
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan run")
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetRun returns a run with its segments and unresolved reports
func (r *queries) GetRun(ctx context.Context, id uuid.UUID) (domain.RunDetail, error) {
	var detail domain.RunDetail

	run, err := scanRun(r.q.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM sync_runs WHERE id = $1
	`, id).Scan)
	if err != nil {
		return detail, perr.FromPostgresf(err, "get run %s", id)
	}
	detail.Run = run

	segs, err := r.q.Query(ctx, `
		SELECT run_id, stamp, camera, status, rows_synced, COALESCE(detail, '')
		FROM sync_segments WHERE run_id = $1
		ORDER BY stamp, camera
	`, id)
	if err != nil {
		return detail, perr.FromPostgresf(err, "get run %s segments", id)
	}
	defer segs.Close()
	for segs.Next() {
		var s domain.Segment
		if err := segs.Scan(&s.RunID, &s.Stamp, &s.Camera, &s.Status, &s.Rows, &s.Detail); err != nil {
			return detail, perr.FromPostgres(err, "scan segment")
		}
		detail.Segments = append(detail.Segments, s)
	}
	if err := segs.Err(); err != nil {
		return detail, perr.FromPostgres(err, "iterate segments")
	}

	unres, err := r.q.Query(ctx, `
		SELECT run_id, stamp, camera, stream, kind, start_index, end_index, COALESCE(reason, '')
		FROM sync_unresolved WHERE run_id = $1
		ORDER BY stamp, camera, start_index
	`, id)
	if err != nil {
		return detail, perr.FromPostgresf(err, "get run %s unresolved", id)
	}
	defer unres.Close()
	for unres.Next() {
		var u domain.Unresolved
		if err := unres.Scan(&u.RunID, &u.Stamp, &u.Camera, &u.Stream, &u.Kind, &u.StartIndex, &u.EndIndex, &u.Reason); err != nil {
			return detail, perr.FromPostgres(err, "scan unresolved")
		}
		detail.Unresolved = append(detail.Unresolved, u)
	}
	return detail, unres.Err()
}
