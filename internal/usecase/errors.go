package usecase

import "errors"

// Failure taxonomy. Callers classify with errors.Is; every component wraps
// these with step context via fmt.Errorf("...: %w", ...).
var (
	// ErrBadCredentials means the remote rejected the account or password.
	// Retrying cannot help, so authentication stops immediately.
	ErrBadCredentials = errors.New("account or password rejected")

	// ErrBadVerifyCode means the OCR-solved verification code was wrong.
	// Counted against the attempt budget and retried with a fresh image.
	ErrBadVerifyCode = errors.New("verification code rejected")

	// ErrAuthExhausted means all authentication attempts were used.
	ErrAuthExhausted = errors.New("authentication attempts exhausted")

	// ErrRegionMissing means a required form region never appeared.
	ErrRegionMissing = errors.New("form region not found")

	// ErrFieldIntegrity means a required field re-read empty after a fill,
	// which the remote system treats as a dropped row.
	ErrFieldIntegrity = errors.New("field integrity check failed")

	// ErrInconsistentTotals means the three section totals disagree in a
	// way that forbids submission.
	ErrInconsistentTotals = errors.New("section totals inconsistent")

	// ErrSaveRejected means the remote save handler reported an error.
	ErrSaveRejected = errors.New("save rejected by remote system")

	// ErrSaveTimeout means no save outcome arrived within the save window.
	ErrSaveTimeout = errors.New("no save outcome within deadline")

	// ErrVerifyMismatch means the remote reported success but the
	// independent record-list re-check disagreed.
	ErrVerifyMismatch = errors.New("saved record failed independent verification")
)
