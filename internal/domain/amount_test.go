package domain

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"1000.5", 6, "1000500000", false},
		{"1", 18, "1000000000000000000", false},
		{"0.000001", 6, "1", false},
		{"0", 6, "0", false},
		{"0.0000001", 6, "", true},
		{"-1", 6, "", true},
		{"abc", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1000.5", FormatAmount(uint256.NewInt(1_000_500_000), 6))
	assert.Equal(t, "999.59502688548977567", FormatAmount(uint256.MustFromDecimal("999595026885489775670"), 18))
	assert.Equal(t, "0", FormatAmount(nil, 6))
	assert.Equal(t, "0", FormatAmount(uint256.NewInt(0), 6))
}
