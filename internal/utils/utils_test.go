package utils_test

import (
	"testing"

	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccountNumber(t *testing.T) {
	n, err := utils.GenerateAccountNumber(utils.DefaultAccountNumberLength)
	require.NoError(t, err)
	assert.Len(t, n, utils.DefaultAccountNumberLength)
	assert.Regexp(t, `^[0-9]+$`, n)

	_, err = utils.GenerateAccountNumber(0)
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50", "$50.00"},
		{"120.5", "$120.50"},
		{"0.015", "$0.02"},
		{"1000000", "$1000000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, utils.FormatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}
