package blackrock

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/core/nev"
)

func putSystemTime(b []byte, t time.Time) {
	le.PutUint16(b[0:], uint16(t.Year()))
	le.PutUint16(b[2:], uint16(t.Month()))
	le.PutUint16(b[4:], uint16(t.Weekday()))
	le.PutUint16(b[6:], uint16(t.Day()))
	le.PutUint16(b[8:], uint16(t.Hour()))
	le.PutUint16(b[10:], uint16(t.Minute()))
	le.PutUint16(b[12:], uint16(t.Second()))
	le.PutUint16(b[14:], uint16(t.Nanosecond()/int(time.Millisecond)))
}

// buildNEV assembles a minimal valid NEV image with the given event packets
func buildNEV(origin time.Time, packetSize uint32, events []nev.EventRecord) []byte {
	header := make([]byte, nevHeaderMin)
	copy(header, nevMagic)
	le.PutUint32(header[nevOffHeaderSize:], nevHeaderMin)
	le.PutUint32(header[nevOffPacketSize:], packetSize)
	le.PutUint32(header[nevOffTimeRes:], 30000)
	le.PutUint32(header[nevOffSampleRes:], 30000)
	putSystemTime(header[nevOffTimeOrigin:], origin)

	out := header
	for _, e := range events {
		p := make([]byte, packetSize)
		le.PutUint32(p[0:], uint32(e.Timestamp))
		le.PutUint16(p[4:], nevPacketIDEvent)
		p[6] = e.Reason
		le.PutUint16(p[8:], e.Payload)
		out = append(out, p...)
	}
	return out
}

func TestDecodeNEV(t *testing.T) {
	t.Parallel()

	origin := time.Date(2024, 3, 1, 9, 30, 0, 250*int(time.Millisecond), time.UTC)
	want := []nev.EventRecord{
		{Timestamp: 100, Reason: nev.ReasonSerialChannel | nev.ReasonDigitalLine, Payload: 0x28},
		{Timestamp: 101, Reason: nev.ReasonDigitalLine, Payload: 1},
		{Timestamp: 205, Reason: nev.ReasonSerialChannel | nev.ReasonDigitalLine, Payload: 0x03},
	}
	raw := buildNEV(origin, 104, want)

	f, err := decodeNEV(raw, "test.nev")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.TimeResolution != 30000 {
		t.Fatalf("time resolution: got %d", f.TimeResolution)
	}
	if !f.TimeOrigin.Equal(origin) {
		t.Fatalf("time origin: got %v want %v", f.TimeOrigin, origin)
	}
	if len(f.Events) != len(want) {
		t.Fatalf("events: got %d want %d", len(f.Events), len(want))
	}
	for i := range want {
		if f.Events[i] != want[i] {
			t.Fatalf("event %d: got %+v want %+v", i, f.Events[i], want[i])
		}
	}
}

func TestDecodeNEVRejectsBadMagic(t *testing.T) {
	t.Parallel()

	raw := make([]byte, nevHeaderMin)
	copy(raw, "NOTANEVX")
	if _, err := decodeNEV(raw, "bad.nev"); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

// buildNSx assembles a single-segment NSx image: chanCount channels, one
// data packet starting at startTick, samples[k][c] layout
func buildNSx(t *testing.T, origin time.Time, period uint32, startTick uint32, samples [][]int16) []byte {
	t.Helper()

	chanCount := len(samples[0])
	header := make([]byte, nsxHeaderMin)
	copy(header, nsxMagic)
	headerSize := uint32(nsxHeaderMin + chanCount*nsxExtHeaderSize)
	le.PutUint32(header[nsxOffHeaderSize:], headerSize)
	le.PutUint32(header[nsxOffPeriod:], period)
	le.PutUint32(header[nsxOffTimeRes:], 30000)
	putSystemTime(header[nsxOffTimeOrigin:], origin)
	le.PutUint32(header[nsxOffChanCount:], uint32(chanCount))

	out := header
	for c := 0; c < chanCount; c++ {
		h := make([]byte, nsxExtHeaderSize)
		copy(h, "CC")
		le.PutUint16(h[2:], uint16(c+1))
		copy(h[4:], []byte("ainp"+string(rune('1'+c))))
		out = append(out, h...)
	}

	packet := make([]byte, nsxDataHeader)
	packet[0] = 0x01
	le.PutUint32(packet[1:], startTick)
	le.PutUint32(packet[5:], uint32(len(samples)))
	out = append(out, packet...)
	for _, row := range samples {
		for _, v := range row {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(v))
			out = append(out, b[:]...)
		}
	}
	return out
}

func TestOpenNSxAndSlice(t *testing.T) {
	t.Parallel()

	origin := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	samples := [][]int16{
		{10, -100},
		{20, -200},
		{30, -300},
		{40, -400},
	}
	raw := buildNSx(t, origin, 6, 600, samples) // one sample per 6 ticks

	path := filepath.Join(t.TempDir(), "rec.ns5")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	x, err := OpenNSx(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer x.Close()

	if len(x.Channels) != 2 {
		t.Fatalf("channels: got %d", len(x.Channels))
	}
	idx, ok := x.ChannelIndex("ainp2")
	if !ok {
		t.Fatalf("channel ainp2 not found")
	}

	// ticks are 600, 606, 612, 618; window clips to the middle two
	got, err := x.Samples(idx, 601, 617)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("samples: got %d want 2 (%+v)", len(got), got)
	}
	if got[0].Timestamp != 606 || got[0].Amplitude != -200 {
		t.Fatalf("sample 0: %+v", got[0])
	}
	if got[1].Timestamp != 612 || got[1].Amplitude != -300 {
		t.Fatalf("sample 1: %+v", got[1])
	}

	// full window returns everything
	all, err := x.Samples(0, 0, 1<<32)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(all) != 4 || all[3].Amplitude != 40 {
		t.Fatalf("full slice: %+v", all)
	}
}
