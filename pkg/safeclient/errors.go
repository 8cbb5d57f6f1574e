package safeclient

import "errors"

var (
	ErrNoSigner        = errors.New("no signer configured")
	ErrNotOwner        = errors.New("signer is not an owner of the safe")
	ErrWrongSafe       = errors.New("transaction belongs to a different safe")
	ErrAlreadyExecuted = errors.New("transaction already executed")
	ErrNotNextNonce    = errors.New("transaction nonce is not the safe's current nonce")
	ErrNotReady        = errors.New("transaction does not have enough owner confirmations")
	ErrNoExecutor      = errors.New("no executor configured")
	ErrLocked          = errors.New("another proposal for this safe is in progress")
	ErrHashMismatch    = errors.New("safeTxHash mismatch")
)
