package nmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyToChannel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		freq uint32
		want uint8
	}{
		{2412, 1},
		{2437, 6},
		{2472, 13},
		{2484, 14},
		{5180, 36},
		{5825, 165},
		{900, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FrequencyToChannel(tc.freq), "freq %d", tc.freq)
	}
}

func TestClassifySecurity(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name                        string
		flags, wpaFlags, rsnFlags uint32
		want                        string
	}{
		{"wpa and rsn both set", 0, 1, 1, "WPA/WPA2"},
		{"rsn only", 0, 0, 1, "WPA2/WPA3"},
		{"wpa only", 0, 1, 0, "WPA"},
		{"privacy flag only", apFlagPrivacy, 0, 0, "WEP/Protected"},
		{"nothing set", 0, 0, 0, "Open"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ClassifySecurity(tc.flags, tc.wpaFlags, tc.rsnFlags))
		})
	}
}
