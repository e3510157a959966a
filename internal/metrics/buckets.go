package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBuckets parses a comma-separated list of histogram bucket bounds.
// Blank input returns nil so callers get the default buckets.
func ParseBuckets(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	buckets := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bucket %q: %w", p, err)
		}
		if n := len(buckets); n > 0 && v <= buckets[n-1] {
			return nil, fmt.Errorf("buckets must be strictly increasing, got %v after %v", v, buckets[n-1])
		}
		buckets = append(buckets, v)
	}
	return buckets, nil
}
