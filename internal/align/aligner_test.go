package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VE7LTX/echoframe/internal/models"
)

func seg(start, end float64, text string) models.Segment {
	return models.Segment{StartSec: start, EndSec: end, Text: text}
}

func turn(start, end float64, label string) models.SpeakerTurn {
	return models.SpeakerTurn{StartSec: start, EndSec: end, SpeakerLabel: label}
}

func label(t *testing.T, s models.AlignedSegment) string {
	t.Helper()
	require.NotNil(t, s.SpeakerLabel)
	return *s.SpeakerLabel
}

func TestAlignAttributesByMaxOverlap(t *testing.T) {
	segs := []models.Segment{
		seg(0, 4, "hello"),
		seg(5, 9, "how are you"),
	}
	turns := []models.SpeakerTurn{
		turn(0, 4.5, "SPEAKER_00"),
		turn(4.5, 10, "SPEAKER_01"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 2)
	assert.Equal(t, "SPEAKER_00", label(t, got[0]))
	assert.Equal(t, "SPEAKER_01", label(t, got[1]))
}

func TestAlignTieBreakEarlierStart(t *testing.T) {
	// Segment [10,14) overlaps A=[0,12) and B=[12,20) by 2s each. The
	// earlier-starting turn wins.
	segs := []models.Segment{seg(10, 14, "tied")}
	turns := []models.SpeakerTurn{
		turn(12, 20, "B"),
		turn(0, 12, "A"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Equal(t, "A", label(t, got[0]))
}

func TestAlignTieBreakInputOrder(t *testing.T) {
	// Two turns with identical spans and overlap: the first in input
	// order wins.
	segs := []models.Segment{seg(1, 3, "x")}
	turns := []models.SpeakerTurn{
		turn(0, 4, "FIRST"),
		turn(0, 4, "SECOND"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Equal(t, "FIRST", label(t, got[0]))
}

func TestAlignNoOverlapYieldsNullLabel(t *testing.T) {
	segs := []models.Segment{seg(100, 104, "orphan")}
	turns := []models.SpeakerTurn{turn(0, 10, "A")}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SpeakerLabel)
	assert.Equal(t, "orphan", got[0].Text)
}

func TestAlignTouchingBoundaryIsNotOverlap(t *testing.T) {
	// Zero-width intersection at a shared boundary counts as no overlap.
	segs := []models.Segment{seg(10, 14, "edge")}
	turns := []models.SpeakerTurn{turn(0, 10, "A")}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SpeakerLabel)
}

func TestAlignSegmentIsAtomic(t *testing.T) {
	// One segment straddling two turns stays whole and takes the single
	// winning label.
	segs := []models.Segment{seg(0, 10, "one long utterance")}
	turns := []models.SpeakerTurn{
		turn(0, 6, "A"),
		turn(6, 10, "B"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Equal(t, "A", label(t, got[0]))
	assert.Equal(t, 0.0, got[0].StartSec)
	assert.Equal(t, 10.0, got[0].EndSec)
}

func TestAlignMergesConsecutiveSameSpeaker(t *testing.T) {
	segs := []models.Segment{
		seg(0, 1, "Hi"),
		seg(1, 2, "there"),
		seg(2, 3, "friend"),
	}
	turns := []models.SpeakerTurn{turn(0, 3, "A")}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Equal(t, "Hi there friend", got[0].Text)
	assert.Equal(t, 0.0, got[0].StartSec)
	assert.Equal(t, 3.0, got[0].EndSec)
	assert.Equal(t, "A", label(t, got[0]))
}

func TestAlignMergesConsecutiveNulls(t *testing.T) {
	segs := []models.Segment{
		seg(50, 51, "um"),
		seg(51, 52, "uh"),
	}

	got := New().Align(segs, []models.SpeakerTurn{turn(0, 10, "A")})
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SpeakerLabel)
	assert.Equal(t, "um uh", got[0].Text)
}

func TestAlignNullNeverMergesWithLabeled(t *testing.T) {
	segs := []models.Segment{
		seg(0, 2, "labeled"),
		seg(50, 52, "orphan"),
	}
	turns := []models.SpeakerTurn{turn(0, 2, "A")}

	got := New().Align(segs, turns)
	require.Len(t, got, 2)
	assert.Equal(t, "A", label(t, got[0]))
	assert.Nil(t, got[1].SpeakerLabel)
}

func TestAlignSortsUnorderedInput(t *testing.T) {
	segs := []models.Segment{
		seg(4, 6, "second"),
		seg(0, 2, "first"),
	}
	turns := []models.SpeakerTurn{
		turn(3, 7, "B"),
		turn(0, 3, "A"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "A", label(t, got[0]))
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "B", label(t, got[1]))
}

func TestAlignOutputOrderedAndNonOverlapping(t *testing.T) {
	segs := []models.Segment{
		seg(0, 2, "a"),
		seg(2, 4, "b"),
		seg(4, 6, "c"),
		seg(6, 8, "d"),
	}
	turns := []models.SpeakerTurn{
		turn(0, 4, "A"),
		turn(4, 8, "B"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 2)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].StartSec, got[i-1].EndSec)
	}
}

func TestAlignClampsOverlappingDifferentSpeakers(t *testing.T) {
	// ASR intervals can overlap; when they win different labels the later
	// segment's start is clamped so the output stays non-overlapping.
	segs := []models.Segment{
		seg(0, 5, "first part"),
		seg(4, 8, "second part"),
	}
	turns := []models.SpeakerTurn{
		turn(0, 4.6, "A"),
		turn(4.6, 8, "B"),
	}

	got := New().Align(segs, turns)
	require.Len(t, got, 2)
	assert.Equal(t, "A", label(t, got[0]))
	assert.Equal(t, "B", label(t, got[1]))
	assert.Equal(t, 5.0, got[0].EndSec)
	assert.Equal(t, 5.0, got[1].StartSec)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].StartSec, got[i-1].EndSec)
	}
}

func TestAlignMergeKeepsWidestExtent(t *testing.T) {
	// A same-speaker segment fully contained in its predecessor must not
	// shrink the merged extent.
	segs := []models.Segment{
		seg(0, 6, "outer"),
		seg(2, 4, "inner"),
	}
	turns := []models.SpeakerTurn{turn(0, 6, "A")}

	got := New().Align(segs, turns)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].StartSec)
	assert.Equal(t, 6.0, got[0].EndSec)
	assert.Equal(t, "outer inner", got[0].Text)
}

func TestAlignEmptyInputs(t *testing.T) {
	got := New().Align(nil, nil)
	assert.Empty(t, got)

	got = New().Align(nil, []models.SpeakerTurn{turn(0, 5, "A")})
	assert.Empty(t, got)

	got = New().Align([]models.Segment{seg(0, 2, "alone")}, nil)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SpeakerLabel)
}

func TestAlignDoesNotMutateInputs(t *testing.T) {
	segs := []models.Segment{
		seg(4, 6, "second"),
		seg(0, 2, "first"),
	}
	turns := []models.SpeakerTurn{
		turn(3, 7, "B"),
		turn(0, 3, "A"),
	}

	New().Align(segs, turns)
	assert.Equal(t, 4.0, segs[0].StartSec)
	assert.Equal(t, 3.0, turns[0].StartSec)
}

func TestAlignDeterministic(t *testing.T) {
	segs := []models.Segment{
		seg(0, 1, "a"), seg(1, 2, "b"), seg(2.5, 4, "c"), seg(9, 11, "d"),
	}
	turns := []models.SpeakerTurn{
		turn(0, 2, "A"), turn(2, 5, "B"), turn(5, 9, "A"),
	}

	first := New().Align(segs, turns)
	second := New().Align(segs, turns)
	assert.Equal(t, first, second)
}
