package domain

// WorkResult is the outcome reported by a background worker.
type WorkResult string

const (
	// WorkSuccess completes the run; the task is rescheduled normally.
	WorkSuccess WorkResult = "success"

	// WorkRetry asks the scheduler to run the task again after backoff.
	WorkRetry WorkResult = "retry"

	// WorkFailure ends the run with an error; no backoff retry.
	WorkFailure WorkResult = "failure"
)

// IsValid returns true if the result is known.
func (r WorkResult) IsValid() bool {
	return r == WorkSuccess || r == WorkRetry || r == WorkFailure
}

// WorkResultFor maps an error to a worker result: nil is success,
// retryable errors ask for a retry, anything else fails.
func WorkResultFor(err error) WorkResult {
	if err == nil {
		return WorkSuccess
	}
	if IsRetryable(err) {
		return WorkRetry
	}
	return WorkFailure
}
