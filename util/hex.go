package util

import (
	"fmt"
	"strings"
)

// HexPreview renders up to max bytes of b as space-separated hex pairs,
// appending the total length when b is truncated.  Intended for trace
// logging of wire data; max <= 0 means no truncation.
func HexPreview(b []byte, max int) string {
	if len(b) == 0 {
		return "<empty>"
	}
	n := len(b)
	if max > 0 && n > max {
		n = max
	}

	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b[i])
	}
	if n < len(b) {
		fmt.Fprintf(&sb, " .. (%d bytes)", len(b))
	}
	return sb.String()
}
