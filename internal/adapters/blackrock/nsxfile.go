package blackrock

import (
	"os"
	"strings"
	"time"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"

	"github.com/edsrzf/mmap-go"
)

// NSx 2.x basic header layout
const (
	nsxHeaderMin     = 314
	nsxOffHeaderSize = 10
	nsxOffPeriod     = 286
	nsxOffTimeRes    = 290
	nsxOffTimeOrigin = 294
	nsxOffChanCount  = 310
	nsxExtHeaderSize = 66
	nsxDataHeader    = 9 // 1 header byte + u32 start tick + u32 point count
)

// Channel describes one continuous channel from the extended headers
type Channel struct {
	ID         uint16
	Label      string
	MinDigital int16
	MaxDigital int16
	MinAnalog  int16
	MaxAnalog  int16
}

// SamplePoint is one continuous sample, timestamped in device ticks
type SamplePoint struct {
	Timestamp uint64
	Amplitude int16
}

// segment is one contiguous data packet; recordings with pauses have several
type segment struct {
	startTick uint64
	points    uint64
	offset    int // byte offset of the first int16 sample
}

// NSxFile is a continuous-sample file accessed through a read-only memory
// map. High-rate channels run to many gigabytes, so samples are never
// materialized wholesale; Samples slices the map per request.
type NSxFile struct {
	Period         uint32
	TimeResolution uint32
	TimeOrigin     time.Time
	Channels       []Channel

	f        *os.File
	data     mmap.MMap
	segments []segment
}

// OpenNSx maps an NSx file and decodes its headers. Close releases the map.
func OpenNSx(path string) (*NSxFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "open nsx %s", path)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "mmap nsx %s", path)
	}

	x := &NSxFile{f: f, data: m}
	if err := x.decodeHeaders(path); err != nil {
		x.Close()
		return nil, err
	}
	return x, nil
}

// Close unmaps and closes the backing file
func (x *NSxFile) Close() error {
	var first error
	if x.data != nil {
		first = x.data.Unmap()
		x.data = nil
	}
	if x.f != nil {
		if err := x.f.Close(); err != nil && first == nil {
			first = err
		}
		x.f = nil
	}
	return first
}

func (x *NSxFile) decodeHeaders(path string) error {
	raw := []byte(x.data)
	if len(raw) < nsxHeaderMin || string(raw[:8]) != nsxMagic {
		return perr.InvalidArgf("%s: not an NSx file", path)
	}

	headerSize := le.Uint32(raw[nsxOffHeaderSize:])
	x.Period = le.Uint32(raw[nsxOffPeriod:])
	x.TimeResolution = le.Uint32(raw[nsxOffTimeRes:])
	x.TimeOrigin = systemTime(raw[nsxOffTimeOrigin : nsxOffTimeOrigin+16])
	if x.Period == 0 {
		return perr.InvalidArgf("%s: zero sample period", path)
	}

	chanCount := int(le.Uint32(raw[nsxOffChanCount:]))
	extEnd := nsxHeaderMin + chanCount*nsxExtHeaderSize
	if extEnd > len(raw) || uint64(headerSize) > uint64(len(raw)) {
		return perr.InvalidArgf("%s: truncated headers", path)
	}

	x.Channels = make([]Channel, 0, chanCount)
	for i := 0; i < chanCount; i++ {
		h := raw[nsxHeaderMin+i*nsxExtHeaderSize:]
		if string(h[:2]) != "CC" {
			return perr.InvalidArgf("%s: unexpected extended header type %q", path, h[:2])
		}
		x.Channels = append(x.Channels, Channel{
			ID:         le.Uint16(h[2:4]),
			Label:      strings.TrimRight(string(h[4:20]), "\x00"),
			MinDigital: int16(le.Uint16(h[22:24])),
			MaxDigital: int16(le.Uint16(h[24:26])),
			MinAnalog:  int16(le.Uint16(h[26:28])),
			MaxAnalog:  int16(le.Uint16(h[28:30])),
		})
	}

	return x.indexSegments(raw, int(headerSize), chanCount, path)
}

// indexSegments walks the data packets once so Samples can random-access
// by tick range without rescanning
func (x *NSxFile) indexSegments(raw []byte, off, chanCount int, path string) error {
	sampleBytes := 2 * chanCount
	for off < len(raw) {
		if off+nsxDataHeader > len(raw) {
			return perr.InvalidArgf("%s: truncated data packet header at %d", path, off)
		}
		if raw[off] != 0x01 {
			return perr.InvalidArgf("%s: bad data packet marker at %d", path, off)
		}
		seg := segment{
			startTick: uint64(le.Uint32(raw[off+1:])),
			points:    uint64(le.Uint32(raw[off+5:])),
			offset:    off + nsxDataHeader,
		}
		end := seg.offset + int(seg.points)*sampleBytes
		if end > len(raw) {
			return perr.InvalidArgf("%s: data packet at %d overruns file", path, off)
		}
		x.segments = append(x.segments, seg)
		off = end
	}
	return nil
}

// ChannelIndex finds a channel by its label
func (x *NSxFile) ChannelIndex(label string) (int, bool) {
	for i, c := range x.Channels {
		if c.Label == label {
			return i, true
		}
	}
	return 0, false
}

// Samples returns the channel's samples whose ticks fall in
// [fromTick, toTick], in tick order. Sample k of a segment sits at
// startTick + k*Period.
func (x *NSxFile) Samples(chIdx int, fromTick, toTick uint64) ([]SamplePoint, error) {
	if chIdx < 0 || chIdx >= len(x.Channels) {
		return nil, perr.InvalidArgf("channel index %d out of range", chIdx)
	}
	if toTick < fromTick {
		return nil, perr.InvalidArgf("tick window [%d, %d] inverted", fromTick, toTick)
	}

	period := uint64(x.Period)
	stride := 2 * len(x.Channels)
	var out []SamplePoint
	for _, seg := range x.segments {
		segEnd := seg.startTick + (seg.points-1)*period
		if seg.points == 0 || segEnd < fromTick || seg.startTick > toTick {
			continue
		}
		var k uint64
		if fromTick > seg.startTick {
			k = (fromTick - seg.startTick + period - 1) / period
		}
		for ; k < seg.points; k++ {
			tick := seg.startTick + k*period
			if tick > toTick {
				break
			}
			off := seg.offset + int(k)*stride + 2*chIdx
			out = append(out, SamplePoint{
				Timestamp: tick,
				Amplitude: int16(le.Uint16(x.data[off:])),
			})
		}
	}
	return out, nil
}
