// Package nev holds the pure serial-counter reconstruction logic for the
// digital event stream: fragment grouping, 7-bit reassembly and gap filling.
// It operates on decoded records only; binary framing lives in adapters.
package nev

import "time"

// Reason bit flags on an event record
const (
	// ReasonDigitalLine is set when a digital input line changed
	ReasonDigitalLine uint8 = 0x01

	// ReasonSerialChannel is set when the serial channel latched a byte
	ReasonSerialChannel uint8 = 0x80
)

// EventRecord is one decoded digital event. Timestamp is in device ticks
// at the clock resolution of the recording (typically 30000/s).
type EventRecord struct {
	Timestamp uint64
	Reason    uint8
	Payload   uint16
}

// IsSerial reports whether the record carries a serial-channel fragment
func (e EventRecord) IsSerial() bool { return e.Reason&ReasonSerialChannel != 0 }

// FragmentGroup is exactly 5 consecutive serial-channel records encoding one
// counter value, 7 bits per record, least-significant fragment first.
// StartIndex is the offset of the first record in the source sequence.
type FragmentGroup struct {
	Records    [5]EventRecord
	StartIndex int
}

// MalformedGroup records a discarded group and the payload that sank it
type MalformedGroup struct {
	StartIndex int
	EndIndex   int
	Payload    uint16
}

// GroupStats summarizes one grouping pass for diagnostics
type GroupStats struct {
	Events          int
	SerialEvents    int
	Groups          int
	PartialDiscards int
	Malformed       []MalformedGroup
}

// GroupSerialFragments partitions events into maximal runs of constant
// reason, keeps runs with the serial-channel flag set, and windows each
// run into groups of exactly 5. Partial trailing windows are discarded,
// as is any window containing a payload outside [0,127].
func GroupSerialFragments(events []EventRecord) ([]FragmentGroup, GroupStats) {
	stats := GroupStats{Events: len(events)}
	var groups []FragmentGroup

	for i := 0; i < len(events); {
		j := i + 1
		for j < len(events) && events[j].Reason == events[i].Reason {
			j++
		}
		// [i, j) is one run of constant reason
		if events[i].IsSerial() {
			runLen := j - i
			stats.SerialEvents += runLen
			full := runLen / 5
			stats.PartialDiscards += runLen - full*5
			for w := 0; w < full; w++ {
				start := i + w*5
				g := FragmentGroup{StartIndex: start}
				copy(g.Records[:], events[start:start+5])
				if bad, payload := malformedPayload(g); bad {
					stats.Malformed = append(stats.Malformed, MalformedGroup{
						StartIndex: start,
						EndIndex:   start + 4,
						Payload:    payload,
					})
					continue
				}
				groups = append(groups, g)
			}
		}
		i = j
	}

	stats.Groups = len(groups)
	return groups, stats
}

// malformedPayload returns the first payload outside [0,127], if any.
// One bad fragment invalidates the whole group; partial reconstruction
// is undefined.
func malformedPayload(g FragmentGroup) (bool, uint16) {
	for _, r := range g.Records {
		if r.Payload > 0x7F {
			return true, r.Payload
		}
	}
	return false, 0
}

// Clock converts device ticks into wall-clock time
type Clock struct {
	Origin     time.Time
	Resolution uint32
}

// At returns the wall-clock instant for a tick count
func (c Clock) At(ticks uint64) time.Time {
	if c.Resolution == 0 {
		return c.Origin
	}
	res := uint64(c.Resolution)
	sec := ticks / res
	nanos := (ticks % res) * uint64(time.Second) / res
	return c.Origin.Add(time.Duration(sec)*time.Second + time.Duration(nanos))
}
