package nev

import "time"

// TimestampPolicy selects which fragment's timestamp labels the
// reconstructed sample
type TimestampPolicy uint8

const (
	// TimestampLast uses the final fragment's timestamp. Transmission
	// completes at the last fragment, so this aligns tightest with
	// camera exposure.
	TimestampLast TimestampPolicy = iota

	// TimestampFirst uses the first fragment's timestamp
	TimestampFirst
)

// ReconstructedSerial is one counter value rebuilt from a FragmentGroup.
// Synthetic entries come from the gap filler, never from raw fragments.
type ReconstructedSerial struct {
	Timestamp uint64
	Serial    uint64
	WallClock time.Time
	Synthetic bool
}

// Serial reassembles the counter from the group's 5 payloads:
// serial = Σ (b_i & 0x7F) << (7*i), fragment 0 least significant.
// 35 significant bits; the encoder splits a 32-bit counter so the top
// bits of fragment 4 are always zero in practice.
func (g FragmentGroup) Serial() uint64 {
	var s uint64
	for i, r := range g.Records {
		s |= uint64(r.Payload&0x7F) << (7 * i)
	}
	return s
}

// TimestampFor returns the group timestamp under the given policy
func (g FragmentGroup) TimestampFor(p TimestampPolicy) uint64 {
	if p == TimestampFirst {
		return g.Records[0].Timestamp
	}
	return g.Records[4].Timestamp
}

// Reconstruct converts validated groups into serial samples, labeling
// each with a wall-clock instant derived from the device clock
func Reconstruct(groups []FragmentGroup, policy TimestampPolicy, clock Clock) []ReconstructedSerial {
	out := make([]ReconstructedSerial, 0, len(groups))
	for _, g := range groups {
		ts := g.TimestampFor(policy)
		out = append(out, ReconstructedSerial{
			Timestamp: ts,
			Serial:    g.Serial(),
			WallClock: clock.At(ts),
		})
	}
	return out
}
