package stages

import (
	"bytes"
	"fmt"

	"smart-audio/internal/app/model"
)

// FormatRTTM renders segments as NIST RTTM SPEAKER lines
func FormatRTTM(file string, segments []model.Segment) []byte {
	var buf bytes.Buffer
	for _, seg := range segments {
		start := float64(seg.Start) / 1000
		duration := float64(seg.End-seg.Start) / 1000
		fmt.Fprintf(&buf, "SPEAKER %s 1 %.3f %.3f <NA> <NA> %s <NA> <NA>\n", file, start, duration, seg.Speaker)
	}
	return buf.Bytes()
}
