package pipeline

import "github.com/backmassage/mediaopt/internal/optimize"

// BatchTally tracks aggregate counters and byte totals across a walk.
type BatchTally struct {
	Scanned     int // Files discovered.
	Processed   int // Files with an outcome.
	Partial     int // Processed files with at least one failed variant.
	Failed      int // Files rejected before any variant was attempted.
	Interrupted int // Files cut short or never started because the run was canceled.

	// Byte totals cover processed files that produced a comparable variant:
	// the primary in full mode, the smallest next-gen variant in nextgen mode.
	OriginalBytes  int64
	OptimizedBytes int64
}

// SpaceSaved returns the aggregate byte difference between sources and
// their optimized variants. Positive means outputs are smaller; negative
// means they grew.
func (t *BatchTally) SpaceSaved() int64 {
	return t.OriginalBytes - t.OptimizedBytes
}

// SavingsPercent returns SpaceSaved as a percentage of OriginalBytes,
// rounded to two decimals. Zero when nothing was measured.
func (t *BatchTally) SavingsPercent() float64 {
	if t.OriginalBytes <= 0 {
		return 0
	}
	return optimize.Savings(t.OriginalBytes, t.OptimizedBytes)
}
