package detection

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMeanValue parses per-channel mean values such as "104,117,123". A single
// value applies to all three channels.
func ParseMeanValue(s string) ([3]float64, error) {
	var mean [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 3 {
		return mean, fmt.Errorf("mean value %q: want 1 or 3 values, got %d", s, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mean, fmt.Errorf("mean value %q: %w", s, err)
		}
		mean[i] = v
	}
	if len(parts) == 1 {
		mean[1], mean[2] = mean[0], mean[0]
	}
	return mean, nil
}
