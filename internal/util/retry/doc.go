// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable attempts,
// delays and multiplier. It backs control-plane API calls and SSH dials, where
// a refused connection or a 5xx response is usually temporary.
package retry
