package cli

// SilentError signals that the command already printed a user-facing
// message; main should exit non-zero without printing the error again.
type SilentError struct {
	err error
}

// NewSilentError wraps err so main skips printing it.
func NewSilentError(err error) *SilentError {
	return &SilentError{err: err}
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}

// ExitCodeBusy is returned when the ledger lock could not be acquired in
// time. 75 is EX_TEMPFAIL: the condition is transient and the host may
// redeliver the event.
const ExitCodeBusy = 75

// ExitCodeError carries a specific process exit code to main.
type ExitCodeError struct {
	Code int
	err  error
}

// NewExitCodeError wraps err with the exit code main should use.
func NewExitCodeError(code int, err error) *ExitCodeError {
	return &ExitCodeError{Code: code, err: err}
}

func (e *ExitCodeError) Error() string {
	return e.err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.err
}
