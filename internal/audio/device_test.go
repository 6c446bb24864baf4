package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	return newCatalog([]Device{
		{Index: 0, Name: "Built-in Microphone", Direction: DirectionInput, MaxChannels: 2, DefaultSampleRate: 44100},
		{Index: 1, Name: "Zoom H2n", Direction: DirectionInput, MaxChannels: 4, DefaultSampleRate: 48000},
		{Index: 2, Name: "USB Headset", Direction: DirectionInput, MaxChannels: 1, DefaultSampleRate: 16000},
		{Index: 2, Name: "USB Headset", Direction: DirectionOutput, MaxChannels: 2, DefaultSampleRate: 48000, CanLoopback: true},
		{Index: 3, Name: "Speakers (High Definition Audio)", Direction: DirectionOutput, MaxChannels: 2, DefaultSampleRate: 48000, CanLoopback: true},
	})
}

func TestCatalogList(t *testing.T) {
	c := testCatalog()
	assert.Len(t, c.List(DirectionInput), 3)
	assert.Len(t, c.List(DirectionOutput), 2)

	for _, d := range c.List(DirectionOutput) {
		assert.True(t, d.CanLoopback, "output devices carry the loopback capability flag")
	}
}

func TestResolveCaseInsensitiveSubstring(t *testing.T) {
	c := testCatalog()

	d, err := c.Resolve("zoom", DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, "Zoom H2n", d.Name)

	d, err = c.Resolve("SPEAKERS", DirectionOutput)
	require.NoError(t, err)
	assert.Equal(t, "Speakers (High Definition Audio)", d.Name)
}

func TestResolveFirstEnumeratedWinsOnAmbiguity(t *testing.T) {
	c := testCatalog()
	// "i" matches several input devices; first enumerated wins
	d, err := c.Resolve("i", DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, "Built-in Microphone", d.Name)
}

func TestResolveNotFound(t *testing.T) {
	c := testCatalog()
	_, err := c.Resolve("nonexistent", DirectionInput)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = c.Resolve("", DirectionInput)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestResolveRespectsDirection(t *testing.T) {
	c := testCatalog()
	_, err := c.Resolve("speakers", DirectionInput)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestPreferredFallbackChain(t *testing.T) {
	c := testCatalog()

	d, err := c.Preferred("headset", DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, "USB Headset", d.Name)

	// unmatched preference falls back to known recorder names
	d, err = c.Preferred("does-not-exist", DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, "Zoom H2n", d.Name)

	// no preference, no recorder: first candidate
	plain := newCatalog([]Device{
		{Index: 0, Name: "Some Mic", Direction: DirectionInput, MaxChannels: 1},
	})
	d, err = plain.Preferred("", DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, "Some Mic", d.Name)
}

func TestPreferredNoDevices(t *testing.T) {
	empty := newCatalog(nil)
	_, err := empty.Preferred("", DirectionInput)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}
