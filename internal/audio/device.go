package audio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Direction distinguishes capture and playback endpoints.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// ErrDeviceNotFound is returned when Resolve matches no device.
var ErrDeviceNotFound = errors.New("audio device not found")

// ErrDeviceUnavailable is returned when a device resolved at enumeration
// time cannot be opened for capture (unplugged, busy, parameters rejected).
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Device is an immutable snapshot of a capture-capable endpoint taken at
// enumeration time. A snapshot can go stale (device unplugged); opening a
// stale device fails at capture time with ErrDeviceUnavailable.
type Device struct {
	Index             int       `json:"index"`
	Name              string    `json:"name"`
	Direction         Direction `json:"direction"`
	MaxChannels       int       `json:"max_channels"`
	DefaultSampleRate float64   `json:"default_sample_rate"`
	// CanLoopback marks output devices whose rendered audio the host API can
	// re-expose as an input stream. The same physical device may appear once
	// per direction.
	CanLoopback bool `json:"can_loopback"`

	info *portaudio.DeviceInfo
}

// Catalog enumerates audio devices and resolves user-supplied names.
type Catalog struct {
	devices []Device
}

// NewCatalog snapshots the host's audio devices. portaudio.Initialize must
// have been called by the process before this.
func NewCatalog() (*Catalog, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate audio devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info.MaxInputChannels > 0 {
			devices = append(devices, Device{
				Index:             i,
				Name:              info.Name,
				Direction:         DirectionInput,
				MaxChannels:       info.MaxInputChannels,
				DefaultSampleRate: info.DefaultSampleRate,
				info:              info,
			})
		}
		if info.MaxOutputChannels > 0 {
			devices = append(devices, Device{
				Index:             i,
				Name:              info.Name,
				Direction:         DirectionOutput,
				MaxChannels:       info.MaxOutputChannels,
				DefaultSampleRate: info.DefaultSampleRate,
				CanLoopback:       true,
				info:              info,
			})
		}
	}
	return newCatalog(devices), nil
}

// NewStaticCatalog wraps a fixed device list. Useful for offline tooling
// and tests that must not touch the host audio stack.
func NewStaticCatalog(devices []Device) *Catalog {
	return newCatalog(devices)
}

func newCatalog(devices []Device) *Catalog {
	return &Catalog{devices: devices}
}

// List returns the snapshot for one direction, in enumeration order.
func (c *Catalog) List(direction Direction) []Device {
	out := make([]Device, 0, len(c.devices))
	for _, d := range c.devices {
		if d.Direction == direction {
			out = append(out, d)
		}
	}
	return out
}

// Resolve finds a device by case-insensitive substring match against the
// display name. When several devices match, the first enumerated wins; the
// policy is deterministic but name-fragile, so callers should prefer exact
// names.
func (c *Catalog) Resolve(nameOrSubstring string, direction Direction) (Device, error) {
	needle := strings.ToLower(strings.TrimSpace(nameOrSubstring))
	if needle == "" {
		return Device{}, fmt.Errorf("%w: empty device name", ErrDeviceNotFound)
	}
	for _, d := range c.List(direction) {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: no %s device matches %q", ErrDeviceNotFound, direction, nameOrSubstring)
}

// Preferred resolves a device with a fallback chain: the preferred substring
// when given, then known field-recorder names, then the first enumerated
// candidate.
func (c *Catalog) Preferred(prefer string, direction Direction) (Device, error) {
	if prefer != "" {
		if d, err := c.Resolve(prefer, direction); err == nil {
			return d, nil
		}
	}
	for _, name := range []string{"zoom h2", "zoom h4"} {
		if d, err := c.Resolve(name, direction); err == nil {
			return d, nil
		}
	}
	candidates := c.List(direction)
	if len(candidates) == 0 {
		return Device{}, fmt.Errorf("%w: no %s devices present", ErrDeviceNotFound, direction)
	}
	return candidates[0], nil
}
