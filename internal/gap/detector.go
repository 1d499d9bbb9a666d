// Package gap implements sequence-gap detection with u64 wraparound and
// producer-restart (epoch) semantics (spec §4.3). It is stateful and
// single-owner: only the engine's hot thread calls it.
package gap

import "math"

const maxU64 = uint64(math.MaxUint64)

// Detector tracks (lastSequence, lastEpoch) across snapshots.
type Detector struct {
	lastSequence uint64
	lastGapSize  uint64
	gapDetected  bool
	ready        bool
	lastEpoch    uint64
}

// New returns a fresh, not-yet-ready Detector.
func New() *Detector {
	return &Detector{}
}

// Check records sequence and returns the gap size (0 if none). The first
// call and duplicate sequences both return 0 without flagging a gap.
func (d *Detector) Check(sequence uint64) uint64 {
	if !d.ready {
		d.lastSequence = sequence
		d.ready = true
		d.gapDetected = false
		d.lastGapSize = 0
		return 0
	}
	if sequence == d.lastSequence {
		return 0
	}

	gap := calculateGap(d.lastSequence, sequence)
	d.lastSequence = sequence
	if gap > 0 {
		d.gapDetected = true
		d.lastGapSize = gap
	} else {
		d.gapDetected = false
		d.lastGapSize = 0
	}
	return gap
}

// calculateGap implements spec §4.3's wraparound-aware formula.
func calculateGap(last, current uint64) uint64 {
	switch {
	case current > last:
		return current - last - 1
	case current < last:
		return maxU64 - last + current
	default:
		return 0
	}
}

// DetectRestart reports a producer restart: sequence drops and epoch
// increases. A sequence drop with no epoch change is a plain gap, not a
// restart (spec §4.3).
func (d *Detector) DetectRestart(sequence, epoch uint64) bool {
	isRestart := sequence < d.lastSequence && epoch > d.lastEpoch
	if isRestart {
		d.lastEpoch = epoch
	}
	return isRestart
}

// SetEpoch updates the tracked epoch without affecting sequence state.
func (d *Detector) SetEpoch(epoch uint64) { d.lastEpoch = epoch }

func (d *Detector) LastGapSize() uint64 { return d.lastGapSize }
func (d *Detector) GapDetected() bool   { return d.gapDetected }
func (d *Detector) IsReady() bool       { return d.ready }
func (d *Detector) LastSequence() uint64 { return d.lastSequence }

// Reset clears all state, as after recovery with an unknown sequence.
func (d *Detector) Reset() {
	d.lastSequence = 0
	d.lastGapSize = 0
	d.gapDetected = false
	d.ready = false
}

// ResetAtSequence resynchronizes after a full-snapshot recovery (spec §4.11).
func (d *Detector) ResetAtSequence(sequence uint64) {
	d.lastSequence = sequence
	d.lastGapSize = 0
	d.gapDetected = false
	d.ready = true
}
