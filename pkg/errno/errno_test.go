package errno

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"safe-core/pkg/nonce"
	"safe-core/pkg/safeclient"
	"safe-core/pkg/transport"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, OK.Code},
		{"errno value", ErrBind, ErrBind.Code},
		{"wrapped sentinel", fmt.Errorf("propose: %w", nonce.ErrNonceTaken), ErrNonceTaken.Code},
		{"not ready", fmt.Errorf("%w: 1/2", safeclient.ErrNotReady), ErrNotReady.Code},
		{"service error", &transport.ServiceError{Status: 422}, ErrService.Code},
		{"not found", fmt.Errorf("info: %w", &transport.ServiceError{Status: 404}), ErrNotFound.Code},
		{"network error", &transport.NetworkError{Err: context.DeadlineExceeded}, ErrNetwork.Code},
		{"decode error", &transport.DecodeError{Err: errors.New("bad json")}, ErrDecode.Code},
		{"hash mismatch", &transport.DecodeError{Err: fmt.Errorf("%w: x", safeclient.ErrHashMismatch)}, ErrDecode.Code},
		{"unknown", errors.New("boom"), InternalServerError.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := Decode(tt.err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}
