package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VE7LTX/echoframe/internal/models"
)

func TestDropRepetitionsCollapsesLoops(t *testing.T) {
	in := []models.Segment{
		{StartSec: 0, EndSec: 2, Text: "thanks for watching"},
		{StartSec: 2, EndSec: 4, Text: "thanks for watching"},
		{StartSec: 4, EndSec: 6, Text: "thanks for watching"},
		{StartSec: 6, EndSec: 8, Text: "see you next week"},
	}

	out := DropRepetitions(in)
	require.Len(t, out, 2)
	assert.Equal(t, "thanks for watching", out[0].Text)
	// The kept segment covers the full repeated span.
	assert.Equal(t, 0.0, out[0].StartSec)
	assert.Equal(t, 6.0, out[0].EndSec)
	assert.Equal(t, "see you next week", out[1].Text)
}

func TestDropRepetitionsKeepsDistinctSpeech(t *testing.T) {
	in := []models.Segment{
		{StartSec: 0, EndSec: 2, Text: "the quarterly numbers look fine"},
		{StartSec: 2, EndSec: 4, Text: "we should revisit the hiring plan"},
		{StartSec: 4, EndSec: 6, Text: "agreed, next sprint works for me"},
	}

	out := DropRepetitions(in)
	assert.Len(t, out, 3)
}

func TestDropRepetitionsKeepsNonAdjacentRepeats(t *testing.T) {
	in := []models.Segment{
		{StartSec: 0, EndSec: 2, Text: "can you hear me"},
		{StartSec: 2, EndSec: 4, Text: "yes loud and clear today"},
		{StartSec: 4, EndSec: 6, Text: "can you hear me"},
	}

	out := DropRepetitions(in)
	assert.Len(t, out, 3)
}

func TestDropRepetitionsShortInput(t *testing.T) {
	assert.Empty(t, DropRepetitions(nil))

	one := []models.Segment{{StartSec: 0, EndSec: 1, Text: "hi"}}
	assert.Equal(t, one, DropRepetitions(one))
}
