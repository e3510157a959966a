package models

import "fmt"

// DirectionMode selects which boundary crossings are counted.
type DirectionMode int

const (
	// SingleLineForward counts tracks crossing line1 onto its non-negative side
	// and then reaching the non-negative side of line2.
	SingleLineForward DirectionMode = iota
	// SingleLineReverse mirrors SingleLineForward: line2 first, then line1.
	SingleLineReverse
	// BothLinesEitherDirection accepts either order.
	BothLinesEitherDirection
)

// String returns the string representation of DirectionMode
func (m DirectionMode) String() string {
	switch m {
	case SingleLineForward:
		return "forward"
	case SingleLineReverse:
		return "reverse"
	case BothLinesEitherDirection:
		return "both"
	default:
		return fmt.Sprintf("DirectionMode(%d)", int(m))
	}
}

// IsValid checks if the direction mode is one of the known modes
func (m DirectionMode) IsValid() bool {
	switch m {
	case SingleLineForward, SingleLineReverse, BothLinesEitherDirection:
		return true
	default:
		return false
	}
}
