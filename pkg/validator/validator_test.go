package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Env     string   `validate:"oneof=development production"`
	URL     string   `validate:"omitempty,url"`
	Timeout string   `validate:"required,duration"`
	Safes   []string `validate:"dive,eth_addr"`
}

func TestStructOK(t *testing.T) {
	err := Struct(sample{
		Env:     "production",
		Timeout: "1m30s",
		Safes:   []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
	})
	assert.NoError(t, err)
}

func TestStructListsEveryField(t *testing.T) {
	err := Struct(sample{Env: "staging", URL: "not a url", Timeout: "soon", Safes: []string{"0x12"}})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "sample.Env must be one of [development production]")
	assert.Contains(t, msg, "sample.URL must be a URL")
	assert.Contains(t, msg, "sample.Timeout must be a duration")
	assert.Contains(t, msg, "sample.Safes[0] must be a 0x-prefixed address")
}

func TestRequired(t *testing.T) {
	err := Struct(sample{Env: "development"})
	require.Error(t, err)
	assert.Equal(t, "sample.Timeout is required", err.Error())
}
