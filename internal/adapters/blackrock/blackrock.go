// Package blackrock decodes the Blackrock acquisition file formats: NEV
// event files and NSx continuous-sample files. Only the fixed-layout
// container parsing lives here; counter reconstruction is core logic.
package blackrock

import (
	"encoding/binary"
	"time"
)

const (
	nevMagic = "NEURALEV"
	nsxMagic = "NEURALCD"
)

// le is the file byte order for every Blackrock format
var le = binary.LittleEndian

// systemTime decodes a 16-byte Windows SYSTEMTIME into UTC wall clock
func systemTime(b []byte) time.Time {
	year := int(le.Uint16(b[0:2]))
	month := time.Month(le.Uint16(b[2:4]))
	// b[4:6] is day-of-week, redundant
	day := int(le.Uint16(b[6:8]))
	hour := int(le.Uint16(b[8:10]))
	minute := int(le.Uint16(b[10:12]))
	second := int(le.Uint16(b[12:14]))
	milli := int(le.Uint16(b[14:16]))
	return time.Date(year, month, day, hour, minute, second, milli*int(time.Millisecond), time.UTC)
}
