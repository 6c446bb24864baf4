package pipeline

import (
	"strings"

	"github.com/go-dedup/simhash"

	"github.com/VE7LTX/echoframe/internal/models"
)

// Whisper occasionally loops on the same phrase for several consecutive
// segments, most often over music or line noise. Consecutive segments
// whose fingerprints are within this Hamming distance are treated as one
// repetition artifact and collapsed to the first occurrence.
const dedupThreshold = 3

// segmentFeatureSet extracts word-level bigram features from segment text.
type segmentFeatureSet struct {
	text string
}

func (s segmentFeatureSet) GetFeatures() []simhash.Feature {
	words := strings.Fields(strings.ToLower(s.text))
	if len(words) == 0 {
		return []simhash.Feature{}
	}

	features := make([]simhash.Feature, 0, 2*len(words))
	for _, w := range words {
		features = append(features, simhash.NewFeature([]byte(w)))
	}
	for i := 0; i < len(words)-1; i++ {
		features = append(features, simhash.NewFeature([]byte(words[i]+" "+words[i+1])))
	}
	return features
}

func textFingerprint(text string) uint64 {
	sh := simhash.NewSimhash()
	return sh.GetSimhash(segmentFeatureSet{text: text})
}

func hammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

// DropRepetitions removes consecutive near-duplicate segments, keeping the
// first of each run. Non-adjacent repeats are legitimate speech (people do
// repeat themselves) and are kept.
func DropRepetitions(segments []models.Segment) []models.Segment {
	if len(segments) < 2 {
		return segments
	}

	out := make([]models.Segment, 0, len(segments))
	out = append(out, segments[0])
	prevHash := textFingerprint(segments[0].Text)

	for _, seg := range segments[1:] {
		hash := textFingerprint(seg.Text)
		if seg.Text != "" && hammingDistance(hash, prevHash) <= dedupThreshold {
			// Extend the kept segment so duration stays truthful.
			out[len(out)-1].EndSec = seg.EndSec
			continue
		}
		out = append(out, seg)
		prevHash = hash
	}
	return out
}
