// Package errno maps errors to stable codes for CLI output.
package errno

import (
	"errors"
	"net/http"

	"safe-core/pkg/model"
	"safe-core/pkg/nonce"
	"safe-core/pkg/safeclient"
	"safe-core/pkg/signature"
	"safe-core/pkg/transport"
	"safe-core/pkg/wallet"
)

type Errno struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e Errno) Error() string {
	return e.Message
}

// Common errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal error"}
	ErrBind             = Errno{Code: 10002, Message: "Invalid arguments"}
	ErrNetwork          = Errno{Code: 10003, Message: "Transaction service unreachable"}
	ErrService          = Errno{Code: 10004, Message: "Transaction service rejected the request"}
	ErrDecode           = Errno{Code: 10005, Message: "Unexpected response from transaction service"}
	ErrKeystore         = Errno{Code: 10006, Message: "Keystore error"}
	ErrNotFound         = Errno{Code: 10007, Message: "Not found on transaction service"}
)

// Business errors (20000+)
var (
	ErrNonceTooLow     = Errno{Code: 20101, Message: "Nonce already used"}
	ErrNonceTaken      = Errno{Code: 20102, Message: "Nonce claimed by another proposal"}
	ErrNotOwner        = Errno{Code: 20201, Message: "Signer is not an owner"}
	ErrWrongSafe       = Errno{Code: 20202, Message: "Transaction belongs to another safe"}
	ErrAlreadyExecuted = Errno{Code: 20203, Message: "Transaction already executed"}
	ErrNotReady        = Errno{Code: 20204, Message: "Not enough confirmations"}
	ErrNotNextNonce    = Errno{Code: 20205, Message: "Transaction is not next in line"}
	ErrLocked          = Errno{Code: 20301, Message: "Another proposal is in progress"}
	ErrNoSigner        = Errno{Code: 20401, Message: "No signer configured"}
	ErrNoExecutor      = Errno{Code: 20402, Message: "No executor configured"}
)

var sentinels = []struct {
	err   error
	errno Errno
}{
	{nonce.ErrNonceTooLow, ErrNonceTooLow},
	{nonce.ErrNonceTaken, ErrNonceTaken},
	{safeclient.ErrNotOwner, ErrNotOwner},
	{safeclient.ErrWrongSafe, ErrWrongSafe},
	{safeclient.ErrAlreadyExecuted, ErrAlreadyExecuted},
	{safeclient.ErrNotReady, ErrNotReady},
	{signature.ErrNotEnoughSignatures, ErrNotReady},
	{safeclient.ErrNotNextNonce, ErrNotNextNonce},
	{safeclient.ErrLocked, ErrLocked},
	{safeclient.ErrNoSigner, ErrNoSigner},
	{safeclient.ErrNoExecutor, ErrNoExecutor},
	{wallet.ErrDecrypt, ErrKeystore},
	{model.ErrInvalidAddress, ErrBind},
	{model.ErrBadChecksum, ErrBind},
	{model.ErrUnknownOperation, ErrBind},
	{model.ErrInvalidNumber, ErrBind},
}

// Decode returns the code for err and a message. The message is err's own
// text so the cause is not lost.
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.errno.Code, err.Error()
		}
	}

	// Hash mismatches surface as decode errors, so these come after the
	// sentinels.
	var (
		netErr *transport.NetworkError
		svcErr *transport.ServiceError
		decErr *transport.DecodeError
	)
	switch {
	case transport.IsStatus(err, http.StatusNotFound):
		return ErrNotFound.Code, err.Error()
	case errors.As(err, &svcErr):
		return ErrService.Code, err.Error()
	case errors.As(err, &netErr):
		return ErrNetwork.Code, err.Error()
	case errors.As(err, &decErr):
		return ErrDecode.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}
