package audio

import (
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWav writes frames of interleaved samples where channel ch of
// frame f holds value base*ch + f.
func writeTestWav(t *testing.T, path string, channels, frames, rate int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	data := make([]int, frames*channels)
	for fr := 0; fr < frames; fr++ {
		for ch := 0; ch < channels; ch++ {
			data[fr*channels+ch] = 100*ch + fr
		}
	}
	require.NoError(t, enc.Write(&gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestExtractChannels(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dual.wav")
	dst := filepath.Join(dir, "mic.wav")
	writeTestWav(t, src, 3, 50, 16000)

	require.NoError(t, ExtractChannels(src, dst, []int{0}))

	data, chans := decodeAll(t, dst)
	require.Equal(t, 1, chans)
	require.Len(t, data, 50)
	assert.Equal(t, 0, data[0])
	assert.Equal(t, 49, data[49])
}

func TestExtractChannelsIgnoresOutOfRange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "stereo.wav")
	dst := filepath.Join(dir, "right.wav")
	writeTestWav(t, src, 2, 10, 16000)

	require.NoError(t, ExtractChannels(src, dst, []int{1, 5}))
	data, chans := decodeAll(t, dst)
	assert.Equal(t, 1, chans)
	assert.Equal(t, 100, data[0], "channel 1 of frame 0")
}

func TestExtractChannelsRejectsEmptySelection(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mono.wav")
	writeTestWav(t, src, 1, 10, 16000)

	err := ExtractChannels(src, filepath.Join(dir, "out.wav"), []int{3})
	assert.Error(t, err)
}

func TestExtractTrackUsesLayoutOrdering(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "session.wav")
	writeTestWav(t, src, 3, 20, 16000)

	sess := AudioSession{
		ID:       "s1",
		FilePath: src,
		Layout:   DualLayout(1, 2),
	}

	micOut := filepath.Join(dir, "mic.wav")
	require.NoError(t, ExtractTrack(sess, TrackMic, micOut))
	data, chans := decodeAll(t, micOut)
	assert.Equal(t, 1, chans)
	assert.Equal(t, 0, data[0])

	sysOut := filepath.Join(dir, "system.wav")
	require.NoError(t, ExtractTrack(sess, TrackSystem, sysOut))
	data, chans = decodeAll(t, sysOut)
	assert.Equal(t, 2, chans)
	assert.Equal(t, 100, data[0], "system track starts at channel 1")

	err := ExtractTrack(AudioSession{Layout: MicOnlyLayout(1), FilePath: src}, TrackSystem, sysOut)
	assert.Error(t, err)
}

func TestFrontPairChannels(t *testing.T) {
	quad := newTrack(TrackMic, 0, 4)
	assert.Equal(t, []int{0, 1}, FrontPairChannels(quad))

	mono := newTrack(TrackMic, 0, 1)
	assert.Equal(t, []int{0}, FrontPairChannels(mono))
}
