package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressFromID(t *testing.T) {
	a := AddressFromID("one")
	require.Equal(t, a, AddressFromID("one"))
	require.NotEqual(t, a, AddressFromID("two"))
	require.Equal(t, byte(0x02), a[0]&0x03)
	require.False(t, a.IsZero())
}
