package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VE7LTX/echoframe/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "echoframe.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetASRSegments(t *testing.T) {
	s := openTestStore(t)

	in := []models.Segment{
		{StartSec: 0, EndSec: 2.5, Text: "hello", Source: "mic"},
		{StartSec: 2.5, EndSec: 5, Text: "world", Source: "mic"},
	}
	require.NoError(t, s.PutASR("sess-1", in))

	got, err := s.ASRSegments("sess-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestPutAndGetDiarizationTurns(t *testing.T) {
	s := openTestStore(t)

	in := []models.SpeakerTurn{
		{StartSec: 0, EndSec: 3, SpeakerLabel: "SPEAKER_00"},
		{StartSec: 3, EndSec: 6, SpeakerLabel: "SPEAKER_01"},
	}
	require.NoError(t, s.PutDiarization("sess-1", in))

	got, err := s.DiarizationTurns("sess-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestPutASRAppends(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutASR("sess-1", []models.Segment{{StartSec: 0, EndSec: 1, Text: "a"}}))
	require.NoError(t, s.PutASR("sess-1", []models.Segment{{StartSec: 1, EndSec: 2, Text: "b"}}))

	got, err := s.ASRSegments("sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestSegmentsOrderedByStart(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutASR("sess-1", []models.Segment{
		{StartSec: 4, EndSec: 6, Text: "later"},
		{StartSec: 0, EndSec: 2, Text: "earlier"},
	}))

	got, err := s.ASRSegments("sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "earlier", got[0].Text)
	assert.Equal(t, "later", got[1].Text)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutASR("sess-1", []models.Segment{{StartSec: 0, EndSec: 1, Text: "one"}}))
	require.NoError(t, s.PutASR("sess-2", []models.Segment{{StartSec: 0, EndSec: 1, Text: "two"}}))

	got, err := s.ASRSegments("sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Text)
}

func TestDiscardRemovesOnlyTargetSession(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutASR("sess-1", []models.Segment{{StartSec: 0, EndSec: 1, Text: "gone"}}))
	require.NoError(t, s.PutDiarization("sess-1", []models.SpeakerTurn{{StartSec: 0, EndSec: 1, SpeakerLabel: "A"}}))
	require.NoError(t, s.PutASR("sess-2", []models.Segment{{StartSec: 0, EndSec: 1, Text: "kept"}}))

	require.NoError(t, s.Discard("sess-1"))

	segs, err := s.ASRSegments("sess-1")
	require.NoError(t, err)
	assert.Empty(t, segs)

	turns, err := s.DiarizationTurns("sess-1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	kept, err := s.ASRSegments("sess-2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestEmptySessionReturnsNoRows(t *testing.T) {
	s := openTestStore(t)

	segs, err := s.ASRSegments("missing")
	require.NoError(t, err)
	assert.Empty(t, segs)
}
