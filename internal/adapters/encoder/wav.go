package encoder

import (
	"encoding/binary"
	"os"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"
)

// WriteWAV renders samples as 16-bit mono PCM. The amplitude series comes
// straight from the continuous-sample stream; resampling is the caller's
// concern.
func (f *FFmpeg) WriteWAV(path string, sampleRate int, samples []int16) error {
	if sampleRate <= 0 {
		return perr.InvalidArgf("sample rate %d", sampleRate)
	}

	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * 2)
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)

	buf := make([]byte, 0, 44+int(dataSize))
	le := binary.LittleEndian

	u32 := func(v uint32) {
		var b [4]byte
		le.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	u16 := func(v uint16) {
		var b [2]byte
		le.PutUint16(b[:], v)
		buf = append(buf, b[:]...)
	}

	buf = append(buf, "RIFF"...)
	u32(36 + dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	u32(16)
	u16(1) // PCM
	u16(numChannels)
	u32(uint32(sampleRate))
	u32(byteRate)
	u16(numChannels * bitsPerSample / 8)
	u16(bitsPerSample)
	buf = append(buf, "data"...)
	u32(dataSize)
	for _, s := range samples {
		u16(uint16(s))
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write wav %s", path)
	}
	return nil
}
