// Package display formats sizes and dimensions for log output and prints
// the startup banner.
package display

import (
	"fmt"
)

// binaryUnits are the suffixes for successive powers of 1024.
var binaryUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes renders n with one decimal in the largest binary unit that
// keeps the value at or above 1 ("3.4 MiB"). Sizes under 1 KiB are exact.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	u := 0
	for v >= 1024 && u < len(binaryUnits)-1 {
		v /= 1024
		u++
	}
	return fmt.Sprintf("%.1f %s", v, binaryUnits[u])
}

// FormatBytesWithSign renders a size delta: "+ 1.0 MiB" when a batch grew,
// "- 1.0 MiB" when it shrank, and "0 B" when nothing changed.
func FormatBytesWithSign(delta int64) string {
	switch {
	case delta > 0:
		return "+ " + FormatBytes(delta)
	case delta < 0:
		return "- " + FormatBytes(-delta)
	}
	return FormatBytes(0)
}

// FormatPercent renders a savings percentage with the two decimals the
// tally keeps ("42.57%").
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatDimensions returns "WxH".
func FormatDimensions(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
