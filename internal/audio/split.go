package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ExtractChannels copies the selected channel indices of a PCM WAV file
// into a new WAV file, preserving sample rate and bit depth. Indices outside
// the source's channel range are ignored; selecting none that remain is an
// error. Processing is chunked so large recordings never load fully into
// memory.
func ExtractChannels(inputPath, outputPath string, channelsToKeep []int) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open source wav: %w", err)
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s is not a valid wav file", inputPath)
	}

	srcChans := int(dec.NumChans)
	rate := int(dec.SampleRate)
	depth := int(dec.BitDepth)

	var keep []int
	for _, idx := range channelsToKeep {
		if idx >= 0 && idx < srcChans {
			keep = append(keep, idx)
		}
	}
	if len(keep) == 0 {
		return fmt.Errorf("no valid channels selected from %d-channel source", srcChans)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output wav: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, rate, depth, len(keep), 1)

	const chunkFrames = 4096
	inBuf := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: srcChans, SampleRate: rate},
		Data:   make([]int, chunkFrames*srcChans),
	}
	outBuf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: len(keep), SampleRate: rate},
		Data:           make([]int, chunkFrames*len(keep)),
		SourceBitDepth: depth,
	}

	for {
		n, err := dec.PCMBuffer(inBuf)
		if err != nil {
			return fmt.Errorf("read pcm: %w", err)
		}
		if n == 0 {
			break
		}
		frames := n / srcChans
		outBuf.Data = outBuf.Data[:frames*len(keep)]
		for f := 0; f < frames; f++ {
			for i, ch := range keep {
				outBuf.Data[f*len(keep)+i] = inBuf.Data[f*srcChans+ch]
			}
		}
		if err := enc.Write(outBuf); err != nil {
			return fmt.Errorf("write pcm: %w", err)
		}
		if n < len(inBuf.Data) {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize output wav: %w", err)
	}
	return nil
}

// ExtractTrack writes the named logical track of a session's WAV file to
// its own file, using the layout's channel ordering contract.
func ExtractTrack(sess AudioSession, name TrackName, outputPath string) error {
	track, ok := sess.Layout.Track(name)
	if !ok {
		return fmt.Errorf("session %s has no %s track", sess.ID, name)
	}
	return ExtractChannels(sess.FilePath, outputPath, track.ChannelIndices)
}

// FrontPairChannels returns the channel indices ASR should consume for a
// mic track: the full track for mono/stereo, the front pair for wider
// recorders (e.g. a 4-channel field recorder).
func FrontPairChannels(track Track) []int {
	if track.ChannelCount <= 2 {
		return track.ChannelIndices
	}
	return track.ChannelIndices[:2]
}
