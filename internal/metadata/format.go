package metadata

import (
	"fmt"
	"time"
)

// ShortPrincipal truncates a principal's textual form for display,
// keeping n characters on each side.
func ShortPrincipal(text string, n int) string {
	if n <= 0 {
		n = 5
	}
	if len(text) <= n*2 {
		return text
	}
	return text[:n] + "..." + text[len(text)-n:]
}

// FormatTimestamp renders a nanosecond ledger timestamp as local time.
func FormatTimestamp(nanos uint64) string {
	if nanos == 0 {
		return ""
	}
	return time.Unix(0, int64(nanos)).Format(time.RFC3339)
}

// FormatTokenID renders a token identifier for display.
func FormatTokenID(id uint64) string {
	return fmt.Sprintf("#%d", id)
}
