//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/store"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"

	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var manifestDDL = []string{`
CREATE TABLE sync_runs (
	id          UUID PRIMARY KEY,
	session_dir TEXT NOT NULL,
	camera_dir  TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	segments    INT NOT NULL DEFAULT 0,
	synced      INT NOT NULL DEFAULT 0,
	skipped     INT NOT NULL DEFAULT 0,
	failed      INT NOT NULL DEFAULT 0,
	error       TEXT
)`, `
CREATE TABLE sync_segments (
	run_id      UUID NOT NULL REFERENCES sync_runs(id),
	stamp       TEXT NOT NULL,
	camera      TEXT NOT NULL,
	status      TEXT NOT NULL,
	rows_synced INT NOT NULL DEFAULT 0,
	detail      TEXT
)`, `
CREATE TABLE sync_unresolved (
	run_id      UUID NOT NULL REFERENCES sync_runs(id),
	stamp       TEXT NOT NULL DEFAULT '',
	camera      TEXT NOT NULL DEFAULT '',
	stream      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	start_index INT NOT NULL,
	end_index   INT NOT NULL,
	reason      TEXT
)`,
}

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		cancel()
		t.Fatalf("start postgres: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("mapped port: %v", err)
	}
	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	return dsn, func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
}

func TestManifestRepo_Integration_RoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	})
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	for _, ddl := range manifestDDL {
		if _, err := st.PG.Exec(ctx, ddl); err != nil {
			t.Fatalf("apply ddl: %v", err)
		}
	}

	r := repokit.MustBind(NewPG(), st.PG)

	run := domain.Run{
		ID:         uuid.New(),
		SessionDir: "/data/session01",
		CameraDir:  "/data/cams01",
		Status:     domain.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	seg := domain.Segment{
		RunID: run.ID, Stamp: "20240301T120000", Camera: "21187677",
		Status: domain.SegmentStatusSynced, Rows: 11,
	}
	if err := r.AddSegment(ctx, seg); err != nil {
		t.Fatalf("add segment: %v", err)
	}
	if err := r.AddUnresolved(ctx, []domain.Unresolved{{
		RunID: run.ID, Stamp: seg.Stamp, Camera: seg.Camera,
		Stream: "camera", Kind: "type_iv", StartIndex: 0, EndIndex: 1,
		Reason: "run at sequence start has no valid predecessor",
	}}); err != nil {
		t.Fatalf("add unresolved: %v", err)
	}

	run.Status = domain.RunStatusCompleted
	run.Segments, run.Synced = 1, 1
	if err := r.FinishRun(ctx, run); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	detail, err := r.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if detail.Run.Status != domain.RunStatusCompleted || detail.Run.FinishedAt == nil {
		t.Fatalf("run detail: %+v", detail.Run)
	}
	if len(detail.Segments) != 1 || detail.Segments[0].Rows != 11 {
		t.Fatalf("segments: %+v", detail.Segments)
	}
	if len(detail.Unresolved) != 1 || detail.Unresolved[0].Kind != "type_iv" {
		t.Fatalf("unresolved: %+v", detail.Unresolved)
	}

	runs, err := r.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("list: %+v", runs)
	}
}
