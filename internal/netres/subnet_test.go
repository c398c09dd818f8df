package netres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "192.168.42", prefixOf("192.168.42.1"))
	assert.Equal(t, "", prefixOf("not-an-ip"))
}

func TestResolve_ExplicitValidIP(t *testing.T) {
	t.Parallel()
	ip, err := Resolve("192.168.77.1", nil)
	require.NoError(t, err)
	assert.Equal(t, "192.168.77.1", ip)
}

func TestResolve_ExplicitInvalidIP(t *testing.T) {
	t.Parallel()
	_, err := Resolve("not-an-ip", nil)
	assert.Error(t, err)
}

func TestCandidates_AllParseAsIPv4(t *testing.T) {
	t.Parallel()
	for _, c := range Candidates {
		assert.NotEmpty(t, prefixOf(c), "candidate %q should parse as an IPv4 address", c)
	}
}
