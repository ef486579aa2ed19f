package transport

// Strategy selects how a batch of operations is executed.
type Strategy string

const (
	// Parallel starts every operation before awaiting any of them.
	Parallel Strategy = "parallel"
	// Serial runs operations one at a time, threading success values.
	Serial Strategy = "serial"
)

// DefaultStrategy is used when no strategy is given.
const DefaultStrategy = Parallel

// ParseStrategy maps a selector string to a Strategy. Unrecognized values
// fall back to Parallel without an error.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == Serial {
		return Serial
	}
	return Parallel
}

// String returns the selector value.
func (s Strategy) String() string {
	return string(s)
}
