package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDHCPRange(t *testing.T) {
	t.Parallel()
	start, end, err := dhcpRange("192.168.4.1")
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.10", start)
	assert.Equal(t, "192.168.4.250", end)
}

func TestDHCPRange_InvalidIP(t *testing.T) {
	t.Parallel()
	_, _, err := dhcpRange("not-an-ip")
	assert.Error(t, err)
}

func TestDHCPRange_RejectsIPv6(t *testing.T) {
	t.Parallel()
	_, _, err := dhcpRange("fe80::1")
	assert.Error(t, err)
}
