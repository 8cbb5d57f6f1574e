package networks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByChainID(t *testing.T) {
	s, err := ByChainID(100)
	require.NoError(t, err)
	assert.Equal(t, GnosisChain, s)

	s, err = ByChainID(42161)
	require.NoError(t, err)
	assert.Equal(t, Arbitrum, s)

	_, err = ByChainID(999999)
	assert.ErrorIs(t, err, ErrUnknownChain)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		chainID uint64
		want    string
		wantErr bool
	}{
		{"adds trailing slash", "https://example.org/tx-service/eth", 1, "https://example.org/tx-service/eth/", false},
		{"drops query", "https://example.org/?a=b", 1, "https://example.org/", false},
		{"bad scheme", "ftp://example.org/", 1, "", true},
		{"no host", "https:///path", 1, "", true},
		{"zero chain", "https://example.org/", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.url, tt.chainID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.URL)
			assert.Equal(t, tt.chainID, s.ChainID)
		})
	}
}

func TestResolve(t *testing.T) {
	s, err := Resolve("", 1)
	require.NoError(t, err)
	assert.Equal(t, Ethereum, s)

	s, err = Resolve("http://localhost:8000", 1337)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/", s.URL)
}
