package planner

import "github.com/backmassage/mediaopt/internal/media"

// Quality clamp range shared by every encoder.
const (
	QualityMin = 1
	QualityMax = 100
)

// QualityFor returns the encode quality for format f. Next-gen formats reach
// equivalent visual quality at a lower nominal value, so they subtract a
// fixed offset; legacy formats use base unchanged.
func QualityFor(f media.Format, base int, t Tuning) int {
	switch f {
	case media.FormatWebP:
		return Clamp(base-t.WebPQualityOffset, QualityMin, QualityMax)
	case media.FormatAVIF:
		return Clamp(base-t.AVIFQualityOffset, QualityMin, QualityMax)
	}
	return Clamp(base, QualityMin, QualityMax)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
