package reliability

// FailureStrategy decides what happens to a request when a dependency that
// gates it (the rate-limit store, for instance) is unreachable.
type FailureStrategy string

const (
	// FailOpen admits traffic during infrastructure failure. The rate
	// limiter uses this: availability over strictness.
	FailOpen FailureStrategy = "fail_open"
	// FailClosed rejects traffic during infrastructure failure.
	FailClosed FailureStrategy = "fail_closed"
)

// ShouldAllow reports whether a request may proceed given the dependency
// error and the configured strategy.
func ShouldAllow(strategy FailureStrategy, err error) bool {
	if err == nil {
		return true
	}
	return strategy == FailOpen
}
