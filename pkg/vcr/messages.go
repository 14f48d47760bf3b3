package vcr

import (
	"strings"
	"time"

	"github.com/getmockd/netmock/internal/matching"
)

func staleMessage(url string, recorded time.Time) string {
	return strings.Join([]string{
		"A stale entry was used to respond to a request:",
		"  - URL: " + url,
		"  - Request timestamp: " + recorded.UTC().Format(time.RFC3339Nano),
	}, "\n")
}

func noMatchMessage(url string, nearest *matching.NearMiss) string {
	lines := []string{
		"A request was made that did not match any stored entry:",
		"  - URL: " + url,
	}
	if nearest != nil {
		lines = append(lines, "  - Closest entry: "+nearest.Reason())
	}
	return strings.Join(lines, "\n")
}
