package engagement

import (
	"errors"
	"fmt"
)

// ErrLedgerConflict is returned by Ledger.Append when an entry with the same
// (recipient, kind, dedup key) already exists. The coordinator treats it as
// "someone else already sent this", not as a failure.
var ErrLedgerConflict = errors.New("ledger entry already exists")

// ErrUnknownStage is returned by RunOne for a kind with no registered evaluator.
var ErrUnknownStage = errors.New("unknown stage kind")

// ErrOutsideSendWindow is returned by the dispatcher when a proactive message
// falls outside the recipient's allowed messaging hours.
var ErrOutsideSendWindow = errors.New("outside messaging window")

// EligibilityError marks a single recipient as unprocessable (missing phone,
// malformed data). Evaluators skip the recipient and count it failed; the
// stage continues.
type EligibilityError struct {
	RecipientID string
	Reason      string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("recipient %s not eligible: %s", e.RecipientID, e.Reason)
}

// DispatchError wraps a channel failure with a retryability class. The
// dispatcher never retries; a retryable failure is simply re-evaluated on
// the next run because no ledger entry was written.
type DispatchError struct {
	Err       error
	Retryable bool
}

func (e *DispatchError) Error() string { return e.Err.Error() }

func (e *DispatchError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is transient.
func (e *DispatchError) IsRetryable() bool { return e.Retryable }

// NewRetryableDispatchError wraps a transient channel failure.
func NewRetryableDispatchError(err error) *DispatchError {
	return &DispatchError{Err: err, Retryable: true}
}

// NewPermanentDispatchError wraps a permanent channel failure.
func NewPermanentDispatchError(err error) *DispatchError {
	return &DispatchError{Err: err, Retryable: false}
}

// isRetryable classifies an arbitrary error via the IsRetryable convention.
// Unknown errors default to retryable.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
