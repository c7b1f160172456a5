package blackrock

import (
	"os"
	"time"

	"github.com/BCM-Neurosurgery/video-sync/internal/core/nev"
	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

// NEV basic header layout (spec 2.3)
const (
	nevHeaderMin     = 336
	nevOffHeaderSize = 12
	nevOffPacketSize = 16
	nevOffTimeRes    = 20
	nevOffSampleRes  = 24
	nevOffTimeOrigin = 28
	nevPacketMin     = 10
	nevPacketIDEvent = 0
)

// NEVFile is a fully decoded event file. Event files are small relative
// to continuous recordings, so the packet region is read eagerly.
type NEVFile struct {
	TimeResolution   uint32
	SampleResolution uint32
	TimeOrigin       time.Time
	Events           []nev.EventRecord
}

// Clock returns the device clock for tick-to-wall-clock conversion
func (f *NEVFile) Clock() nev.Clock {
	return nev.Clock{Origin: f.TimeOrigin, Resolution: f.TimeResolution}
}

// OpenNEV reads and decodes one NEV event file. Only digital event
// packets (packet id 0) are kept; spike and comment packets are skipped.
func OpenNEV(path string) (*NEVFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read nev %s", path)
	}
	return decodeNEV(raw, path)
}

func decodeNEV(raw []byte, path string) (*NEVFile, error) {
	if len(raw) < nevHeaderMin || string(raw[:8]) != nevMagic {
		return nil, perr.InvalidArgf("%s: not a NEV file", path)
	}

	headerSize := le.Uint32(raw[nevOffHeaderSize:])
	packetSize := le.Uint32(raw[nevOffPacketSize:])
	if packetSize < nevPacketMin {
		return nil, perr.InvalidArgf("%s: packet size %d below minimum", path, packetSize)
	}
	if uint64(headerSize) > uint64(len(raw)) {
		return nil, perr.InvalidArgf("%s: header size %d exceeds file", path, headerSize)
	}

	f := &NEVFile{
		TimeResolution:   le.Uint32(raw[nevOffTimeRes:]),
		SampleResolution: le.Uint32(raw[nevOffSampleRes:]),
		TimeOrigin:       systemTime(raw[nevOffTimeOrigin : nevOffTimeOrigin+16]),
	}

	data := raw[headerSize:]
	stride := int(packetSize)
	for off := 0; off+stride <= len(data); off += stride {
		p := data[off : off+stride]
		if le.Uint16(p[4:6]) != nevPacketIDEvent {
			continue
		}
		f.Events = append(f.Events, nev.EventRecord{
			Timestamp: uint64(le.Uint32(p[0:4])),
			Reason:    p[6],
			Payload:   le.Uint16(p[8:10]),
		})
	}
	return f, nil
}
