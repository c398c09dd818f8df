package ifaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnboundPCIDevice_String(t *testing.T) {
	t.Parallel()
	d := UnboundPCIDevice{Slot: "0000:01:00.0", Vendor: "0x168c", Device: "0x0030"}
	assert.Equal(t, "0000:01:00.0 (vendor 0x168c, device 0x0030)", d.String())
}

func TestCandidateNames(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{{Name: "wlan0"}, {Name: "wlan1"}}
	assert.Equal(t, []string{"wlan0", "wlan1"}, candidateNames(candidates))
}

func TestCandidateNames_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, candidateNames(nil))
}

func TestResolveAuto_NoInterfaces(t *testing.T) {
	t.Parallel()
	_, err := resolveAuto(nil, nil)
	assert.Error(t, err)
}

func TestResolveAuto_SingleBoundInterface(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{{Name: "wlan0", DriverBound: true}}
	name, err := resolveAuto(candidates, nil)
	assert.NoError(t, err)
	assert.Equal(t, "wlan0", name)
}

func TestResolveAuto_MultipleBoundInterfaces(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Name: "wlan0", DriverBound: true},
		{Name: "wlan1", DriverBound: true},
	}
	_, err := resolveAuto(candidates, nil)
	assert.ErrorContains(t, err, "multiple wireless interfaces")
}

func TestResolveAuto_IgnoresUnboundCandidates(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Name: "wlan0", DriverBound: false},
		{Name: "wlan1", DriverBound: true},
	}
	name, err := resolveAuto(candidates, nil)
	assert.NoError(t, err)
	assert.Equal(t, "wlan1", name)
}
