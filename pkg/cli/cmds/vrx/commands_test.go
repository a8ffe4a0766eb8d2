package vrx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in    string
		index uint8
		ok    bool
	}{
		{"0", 0, true},
		{"47", 47, true},
		{"48", 0, false},
		{"B3", 10, true},
		{"b3", 10, true},
		{"A1", 0, true},
		{"L8", 47, true},
		{"R9", 0, false},
		{"X1", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		index, err := ParseChannel(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.index, index, tc.in)
	}
}

func TestDescribeIndex(t *testing.T) {
	_, text := describeIndex([]byte{10})
	require.Equal(t, "10 B3 5771 MHz", text)
	_, text = describeIndex([]byte{255})
	require.Equal(t, "unknown", text)
}
