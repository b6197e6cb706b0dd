package answer

import (
	"fmt"
	"strings"
)

// anchorRunes is how much of the best sentence must appear in a segment.
// Segment and sentence boundaries rarely line up, so only the opening is matched.
const anchorRunes = 20

// Locate finds the first segment containing the opening of sentence and
// returns its start time formatted as MM:SS.
func Locate(sentence string, segments []Segment) (string, bool) {
	if len(segments) == 0 {
		return "", false
	}
	anchor := TruncateRunes(sentence, anchorRunes)
	for _, seg := range segments {
		if strings.Contains(seg.Text, anchor) {
			return FormatTimestamp(seg.Start), true
		}
	}
	return "", false
}

// FormatTimestamp renders whole seconds of start as zero-padded MM:SS.
// Fractions are truncated; 125.7 becomes "02:05".
func FormatTimestamp(start float64) string {
	secs := int(start)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// TruncateRunes returns at most n leading runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
