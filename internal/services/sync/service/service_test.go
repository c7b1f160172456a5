package service

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/adapters/camjson"
	"github.com/BCM-Neurosurgery/video-sync/internal/core/nev"
	"github.com/BCM-Neurosurgery/video-sync/internal/modkit/repokit"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/discovery"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"

	"github.com/google/uuid"
)

// nopDB satisfies repokit.TxRunner for tests that never touch SQL
type nopDB struct{}

func (nopDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (nopDB) Query(context.Context, string, ...any) (repokit.Rows, error)     { return nil, nil }
func (nopDB) QueryRow(context.Context, string, ...any) repokit.Row            { return nil }
func (nopDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error  { return fn(nopDB{}) }

type memRepo struct {
	mu         sync.Mutex
	runs       map[uuid.UUID]domain.Run
	segments   []domain.Segment
	unresolved []domain.Unresolved
}

func newMemRepo() *memRepo { return &memRepo{runs: map[uuid.UUID]domain.Run{}} }

func (m *memRepo) CreateRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memRepo) FinishRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memRepo) AddSegment(_ context.Context, seg domain.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = append(m.segments, seg)
	return nil
}

func (m *memRepo) AddUnresolved(_ context.Context, items []domain.Unresolved) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unresolved = append(m.unresolved, items...)
	return nil
}

func (m *memRepo) ListRuns(context.Context, int) ([]domain.Run, error) { return nil, nil }

func (m *memRepo) GetRun(context.Context, uuid.UUID) (domain.RunDetail, error) {
	return domain.RunDetail{}, nil
}

type memBinder struct{ repo *memRepo }

func (b memBinder) Bind(repokit.Queryer) domain.ManifestRepo { return b.repo }

// failSegRepo rejects every segment write to exercise manifest failures
type failSegRepo struct{ *memRepo }

func (failSegRepo) AddSegment(context.Context, domain.Segment) error {
	return perr.New(perr.ErrorCodeDB, "segment insert rejected")
}

type repoBinder struct{ repo domain.ManifestRepo }

func (b repoBinder) Bind(repokit.Queryer) domain.ManifestRepo { return b.repo }

type memSink struct {
	mu   sync.Mutex
	recs []domain.SyncedRecord
}

func (s *memSink) InsertRecords(_ context.Context, recs []domain.SyncedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, recs...)
	return nil
}

// fragmentEvents encodes each serial as a 5-fragment group, one group per
// 1000 ticks
func fragmentEvents(serials []uint64) []nev.EventRecord {
	var out []nev.EventRecord
	for i, v := range serials {
		base := uint64(i) * 1000
		for b := 0; b < 5; b++ {
			out = append(out, nev.EventRecord{
				Timestamp: base + uint64(b),
				Reason:    nev.ReasonSerialChannel | nev.ReasonDigitalLine,
				Payload:   uint16((v >> (7 * b)) & 0x7F),
			})
		}
		// a digital-line event between groups splits the runs
		out = append(out, nev.EventRecord{Timestamp: base + 5, Reason: nev.ReasonDigitalLine, Payload: 0})
	}
	return out
}

// buildInputs runs the acquisition half of the pipeline in memory
func buildInputs(t *testing.T, serials []uint64) *runInputs {
	t.Helper()

	clock := nev.Clock{Origin: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Resolution: 30000}
	groups, stats := nev.GroupSerialFragments(fragmentEvents(serials))
	if len(stats.Malformed) != 0 {
		t.Fatalf("unexpected malformed groups: %+v", stats.Malformed)
	}
	recon := nev.Reconstruct(groups, nev.TimestampLast, clock)
	filled, gaps := nev.FillGaps(recon, clock)
	if len(gaps) != 0 {
		t.Fatalf("unexpected unfillable gaps: %+v", gaps)
	}

	return &runInputs{
		run:    domain.Run{ID: uuid.New()},
		events: filled,
		clock:  clock,
		chIdx:  -1,
	}
}

// The acceptance scenario: event groups encode 100..110 with the group for
// 105 dropped, the camera logs 100..110 with a zero-run at 103. All 11
// serials must come out, 105 interpolated and 103 corrected.
func TestProcessSegmentEndToEnd(t *testing.T) {
	t.Parallel()

	serials := []uint64{100, 101, 102, 103, 104, 106, 107, 108, 109, 110} // 105 dropped
	in := buildInputs(t, serials)

	camSerials := []int64{100, 101, 102, 0, 104, 105, 106, 107, 108, 109, 110}
	frameIDs := make([]int64, len(camSerials))
	ts := make([]float64, len(camSerials))
	for i := range frameIDs {
		frameIDs[i] = int64(i)
		ts[i] = float64(i) * 0.033
	}
	track := &camjson.Track{ChunkSerials: camSerials, FrameIDs: frameIDs, Timestamps: ts}

	svc := New(nopDB{}, memBinder{repo: newMemRepo()}, &memSink{}, nil, Config{})
	res := svc.processSegment(context.Background(), in,
		discovery.Chunk{Stamp: "20240301T120000"}, "cam1", track)

	if res.seg.Status != domain.SegmentStatusSynced {
		t.Fatalf("status: %s (%s)", res.seg.Status, res.seg.Detail)
	}
	if len(res.records) != 11 {
		t.Fatalf("rows: got %d want 11", len(res.records))
	}
	if len(res.unresolved) != 0 {
		t.Fatalf("unresolved: %+v", res.unresolved)
	}

	byserial := map[uint64]domain.SyncedRecord{}
	for i, r := range res.records {
		if r.Serial != uint64(100+i) {
			t.Fatalf("row %d: serial %d, want ascending 100..110", i, r.Serial)
		}
		byserial[r.Serial] = r
	}

	// the dropped group came back synthetic with an interpolated timestamp
	syn := byserial[105]
	if !syn.Synthetic {
		t.Fatalf("serial 105 should be synthetic: %+v", syn)
	}
	lo, hi := byserial[104].EventTimestamp, byserial[106].EventTimestamp
	if syn.EventTimestamp <= lo || syn.EventTimestamp >= hi {
		t.Fatalf("serial 105 timestamp %d not strictly between %d and %d", syn.EventTimestamp, lo, hi)
	}

	// the camera's zero-run was corrected back to 103, keeping its frame id
	if got := byserial[103].FrameID; got != 3 {
		t.Fatalf("serial 103 frame id: got %d want 3", got)
	}

	if res.clip.StartFrame != 0 || res.clip.EndFrame != 10 {
		t.Fatalf("clip range: %+v", res.clip)
	}
}

// buildNEVBytes assembles a minimal event file image: basic header plus
// one digital event packet per record
func buildNEVBytes(events []nev.EventRecord) []byte {
	const (
		headerSize = 336
		packetSize = 104
	)
	b := make([]byte, headerSize)
	copy(b, "NEURALEV")
	binary.LittleEndian.PutUint32(b[12:], headerSize)
	binary.LittleEndian.PutUint32(b[16:], packetSize)
	binary.LittleEndian.PutUint32(b[20:], 30000)
	binary.LittleEndian.PutUint32(b[24:], 30000)
	binary.LittleEndian.PutUint16(b[28:], 2024) // time origin: 2024-03-01
	binary.LittleEndian.PutUint16(b[30:], 3)
	binary.LittleEndian.PutUint16(b[34:], 1)
	for _, e := range events {
		p := make([]byte, packetSize)
		binary.LittleEndian.PutUint32(p[0:], uint32(e.Timestamp))
		p[6] = e.Reason
		binary.LittleEndian.PutUint16(p[8:], e.Payload)
		b = append(b, p...)
	}
	return b
}

// writeSession lays out an acquisition directory with the given event
// serials and an empty camera directory
func writeSession(t *testing.T, serials []uint64) (sessionDir, cameraDir string) {
	t.Helper()

	sessionDir = t.TempDir()
	nevPath := filepath.Join(sessionDir, "REC_NSP-1.nev")
	if err := os.WriteFile(nevPath, buildNEVBytes(fragmentEvents(serials)), 0o644); err != nil {
		t.Fatalf("write nev: %v", err)
	}
	for _, name := range []string{"REC_NSP-1.ns3", "REC_NSP-1.ns5", "REC_NSP-2.nev"} {
		if err := os.WriteFile(filepath.Join(sessionDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return sessionDir, t.TempDir()
}

// A manifest write failure on the unreadable-sidecar path must still close
// the run row as failed, same as every other failure path
func TestRunSessionSidecarManifestFailureFinishesRun(t *testing.T) {
	t.Parallel()

	sessionDir, cameraDir := writeSession(t, []uint64{100, 101, 102})
	stamp := "20240301T120000"
	if err := os.WriteFile(filepath.Join(cameraDir, stamp+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cameraDir, stamp+"_cam1.mp4"), []byte("v"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	mem := newMemRepo()
	svc := New(nopDB{}, repoBinder{repo: failSegRepo{mem}}, &memSink{}, nil, Config{})

	run, err := svc.RunSession(context.Background(), sessionDir, cameraDir)
	if err == nil {
		t.Fatalf("expected manifest write failure")
	}

	mem.mu.Lock()
	stored := mem.runs[run.ID]
	mem.mu.Unlock()
	if stored.Status != domain.RunStatusFailed {
		t.Fatalf("run status: got %q want %q", stored.Status, domain.RunStatusFailed)
	}
	if stored.Error == "" {
		t.Fatalf("run error not recorded: %+v", stored)
	}
}

func TestProcessSegmentNoOverlapSkips(t *testing.T) {
	t.Parallel()

	in := buildInputs(t, []uint64{100, 101, 102})
	track := &camjson.Track{
		ChunkSerials: []int64{900, 901, 902},
		FrameIDs:     []int64{0, 1, 2},
		Timestamps:   []float64{0, 0.033, 0.066},
	}

	svc := New(nopDB{}, memBinder{repo: newMemRepo()}, &memSink{}, nil, Config{})
	res := svc.processSegment(context.Background(), in, discovery.Chunk{Stamp: "s"}, "cam1", track)

	if res.seg.Status != domain.SegmentStatusSkipped {
		t.Fatalf("status: %s", res.seg.Status)
	}
	if len(res.records) != 0 {
		t.Fatalf("records on skipped segment: %+v", res.records)
	}
}

func TestProcessSegmentDuplicateSerialFails(t *testing.T) {
	t.Parallel()

	in := buildInputs(t, []uint64{100, 101, 102, 103})
	track := &camjson.Track{
		ChunkSerials: []int64{100, 101, 101, 103},
		FrameIDs:     []int64{0, 1, 2, 3},
		Timestamps:   []float64{0, 0.03, 0.06, 0.09},
	}

	svc := New(nopDB{}, memBinder{repo: newMemRepo()}, &memSink{}, nil, Config{})
	res := svc.processSegment(context.Background(), in, discovery.Chunk{Stamp: "s"}, "cam1", track)

	if res.seg.Status != domain.SegmentStatusFailed {
		t.Fatalf("status: %s, duplicate join keys must fail the segment", res.seg.Status)
	}
}
