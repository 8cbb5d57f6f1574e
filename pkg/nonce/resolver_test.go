package nonce

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		onChain uint64
		pending []uint64
		want    uint64
	}{
		{"first gap", 5, []uint64{5, 6, 8}, 7},
		{"no gap", 5, []uint64{5, 6, 7}, 8},
		{"empty queue", 5, nil, 5},
		{"unsorted input", 5, []uint64{8, 5, 6}, 7},
		{"stale entries below chain", 5, []uint64{1, 2, 4, 5}, 6},
		{"duplicates", 5, []uint64{5, 5, 6, 6}, 7},
		{"gap at start", 5, []uint64{6, 7}, 5},
		{"zero nonce", 0, []uint64{0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.onChain, tt.pending))
		})
	}
}

func TestNextDoesNotMutateInput(t *testing.T) {
	pending := []uint64{8, 5, 6}
	_ = Next(5, pending)
	assert.Equal(t, []uint64{8, 5, 6}, pending)
}

func TestValidate(t *testing.T) {
	h1 := common.HexToHash("0x01")
	h2 := common.HexToHash("0x02")
	pending := []Pending{{Nonce: 5, SafeTxHash: h1}, {Nonce: 6, SafeTxHash: h2}}

	assert.ErrorIs(t, Validate(5, pending, 4, h1), ErrNonceTooLow)
	assert.ErrorIs(t, Validate(5, pending, 5, h2), ErrNonceTaken)
	assert.NoError(t, Validate(5, pending, 5, h1))
	assert.NoError(t, Validate(5, pending, 7, h1))
	assert.Equal(t, []uint64{5, 6}, Nonces(pending))
}
