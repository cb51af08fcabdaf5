package enrichment

// Failure tags why an external lookup did not produce a value.
type Failure string

const (
	FailureNone        Failure = ""
	FailureAmbiguous   Failure = "ambiguous"
	FailureNotFound    Failure = "not_found"
	FailureLookup      Failure = "lookup_error"
	FailureSearchAPI   Failure = "search_api_error"
	FailureSearchParse Failure = "search_parse_error"
)

// Result carries either a value or a fallback value plus the reason it is a fallback.
// Lookups never return a Go error to the caller; Err only keeps the cause for logging.
type Result[T any] struct {
	Value  T
	Reason Failure
	Err    error

	warning string
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail creates a failed Result holding the fallback value and a user-visible warning.
func Fail[T any](fallback T, reason Failure, warning string, err error) Result[T] {
	return Result[T]{Value: fallback, Reason: reason, Err: err, warning: warning}
}

// Ok reports whether the lookup succeeded.
func (r Result[T]) Ok() bool { return r.Reason == FailureNone }

// Warning returns the message shown next to the report, empty on success.
func (r Result[T]) Warning() string { return r.warning }
