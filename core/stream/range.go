// Package stream serves cached audio bytes over HTTP, full or as partial
// content for ranged requests.
package stream

import (
	"strconv"
	"strings"
)

// ParseRange interprets a single-range "bytes=start-end" header against a
// resource of the given size. Either bound may be omitted: a missing start
// means 0, a missing end means size-1. Anything malformed or out of bounds
// falls back to the whole resource; for a streaming endpoint degrading to
// full-content delivery beats rejecting the request.
func ParseRange(header string, size int64) (start, end int64) {
	full := func() (int64, int64) { return 0, size - 1 }

	unit, spec, ok := strings.Cut(header, "=")
	if !ok || strings.TrimSpace(unit) != "bytes" {
		return full()
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || strings.Contains(endStr, "-") || strings.Contains(spec, ",") {
		return full()
	}

	start = 0
	if startStr != "" {
		v, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
		if err != nil {
			return full()
		}
		start = v
	}

	end = size - 1
	if endStr != "" {
		v, err := strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
		if err != nil {
			return full()
		}
		end = v
	}

	if start < 0 || start > end || end >= size {
		return full()
	}
	return start, end
}
