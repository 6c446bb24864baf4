package audio

import "fmt"

// TrackName identifies a logical track within a capture.
type TrackName string

const (
	TrackMic    TrackName = "mic"
	TrackSystem TrackName = "system"
)

// CaptureMode describes which devices feed a capture.
type CaptureMode string

const (
	ModeMic    CaptureMode = "mic"
	ModeSystem CaptureMode = "system"
	ModeDual   CaptureMode = "dual"
)

// Track maps a logical track onto a contiguous run of physical channels in
// the interleaved stream.
type Track struct {
	Name           TrackName `json:"name"`
	ChannelIndices []int     `json:"channel_indices"`
	ChannelCount   int       `json:"channel_count"`
	Labels         []string  `json:"labels"`
}

// TrackLayout describes how the physical channels of a session's WAV file
// decompose into logical tracks. For dual captures mic channels always
// precede system channels; downstream track splitting depends on that
// ordering.
type TrackLayout struct {
	Mode          CaptureMode `json:"mode"`
	Tracks        []Track     `json:"tracks"`
	TotalChannels int         `json:"total_channels"`
}

var micLabels = []string{"left", "right", "rear_left", "rear_right", "aux_1", "aux_2", "aux_3", "aux_4"}
var systemLabels = []string{"system_left", "system_right", "system_rl", "system_rr", "system_aux_1", "system_aux_2", "system_aux_3", "system_aux_4"}

func channelLabels(name TrackName, count int) []string {
	src := micLabels
	if name == TrackSystem {
		src = systemLabels
	}
	if count > len(src) {
		count = len(src)
	}
	out := make([]string, count)
	copy(out, src[:count])
	return out
}

func newTrack(name TrackName, firstChannel, count int) Track {
	idx := make([]int, count)
	for i := range idx {
		idx[i] = firstChannel + i
	}
	return Track{Name: name, ChannelIndices: idx, ChannelCount: count, Labels: channelLabels(name, count)}
}

// MicOnlyLayout describes a mic-only capture.
func MicOnlyLayout(channels int) TrackLayout {
	return TrackLayout{
		Mode:          ModeMic,
		Tracks:        []Track{newTrack(TrackMic, 0, channels)},
		TotalChannels: channels,
	}
}

// SystemOnlyLayout describes a loopback-only capture.
func SystemOnlyLayout(channels int) TrackLayout {
	return TrackLayout{
		Mode:          ModeSystem,
		Tracks:        []Track{newTrack(TrackSystem, 0, channels)},
		TotalChannels: channels,
	}
}

// DualLayout describes a mic+system capture. Mic channels occupy the lower
// indices of the interleaved stream.
func DualLayout(micChannels, systemChannels int) TrackLayout {
	return TrackLayout{
		Mode: ModeDual,
		Tracks: []Track{
			newTrack(TrackMic, 0, micChannels),
			newTrack(TrackSystem, micChannels, systemChannels),
		},
		TotalChannels: micChannels + systemChannels,
	}
}

// Track returns the named track, if present.
func (l TrackLayout) Track(name TrackName) (Track, bool) {
	for _, t := range l.Tracks {
		if t.Name == name {
			return t, true
		}
	}
	return Track{}, false
}

// Validate checks the layout invariants: per-track index/count agreement,
// disjoint indices within [0, TotalChannels), and mic-before-system
// ordering for dual captures.
func (l TrackLayout) Validate() error {
	seen := make(map[int]bool, l.TotalChannels)
	for _, t := range l.Tracks {
		if len(t.ChannelIndices) != t.ChannelCount {
			return fmt.Errorf("track %s: channel count %d does not match %d indices", t.Name, t.ChannelCount, len(t.ChannelIndices))
		}
		for _, idx := range t.ChannelIndices {
			if idx < 0 || idx >= l.TotalChannels {
				return fmt.Errorf("track %s: channel index %d out of range [0,%d)", t.Name, idx, l.TotalChannels)
			}
			if seen[idx] {
				return fmt.Errorf("track %s: channel index %d claimed by more than one track", t.Name, idx)
			}
			seen[idx] = true
		}
	}

	mic, hasMic := l.Track(TrackMic)
	sys, hasSys := l.Track(TrackSystem)
	if hasMic && hasSys {
		for _, m := range mic.ChannelIndices {
			for _, s := range sys.ChannelIndices {
				if m >= s {
					return fmt.Errorf("mic channel %d does not precede system channel %d", m, s)
				}
			}
		}
	}
	return nil
}
