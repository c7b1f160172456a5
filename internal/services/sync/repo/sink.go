package repo

import (
	"context"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
	"github.com/BCM-Neurosurgery/video-sync/internal/platform/store"
	"github.com/BCM-Neurosurgery/video-sync/internal/services/sync/domain"
)

// recordsTable is the ClickHouse destination for synchronized rows.
// Append order below must match the table's column order.
const recordsTable = "synced_records"

// Sink writes synchronized rows to ClickHouse in batches
type Sink struct {
	ch store.Clickhouse
}

// NewSink wraps the store's clickhouse seam as a domain.RecordSink
func NewSink(ch store.Clickhouse) *Sink { return &Sink{ch: ch} }

var _ domain.RecordSink = (*Sink)(nil)

// InsertRecords appends one batch; rows for a segment are written in a
// single batch so a failed segment leaves no partial tail
func (s *Sink) InsertRecords(ctx context.Context, recs []domain.SyncedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			r.RunID,
			r.Stamp,
			r.Camera,
			r.Serial,
			r.EventTimestamp,
			r.WallClock,
			r.FrameID,
			r.Synthetic,
			r.Amplitude,
		})
	}
	if err := s.ch.Insert(ctx, recordsTable, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "insert %d synced records", len(rows))
	}
	return nil
}
