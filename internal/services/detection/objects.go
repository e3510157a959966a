package detection

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DesiredObjectSet is the ordered class allowlist.
type DesiredObjectSet []float32

// ParseDesiredObjects parses a comma-separated list of numeric class ids such
// as "2,3,5.0". Blank input yields an empty set.
func ParseDesiredObjects(s string) (DesiredObjectSet, error) {
	if strings.TrimSpace(s) == "" {
		return DesiredObjectSet{}, nil
	}
	parts := strings.Split(s, ",")
	set := make(DesiredObjectSet, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid desired object %q: %w", p, err)
		}
		set = append(set, float32(v))
	}
	return set, nil
}

// Contains matches by exact float equality against the detector's label.
// Class ids are small integers with exact binary representations, which is
// what keeps this comparison reliable.
func (s DesiredObjectSet) Contains(label float32) bool {
	return slices.Contains(s, label)
}

func (s DesiredObjectSet) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}
