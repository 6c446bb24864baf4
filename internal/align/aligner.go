// Package align fuses independently produced ASR segments and diarization
// turns into one ordered, speaker-attributed transcript.
package align

import (
	"sort"
	"strings"

	"github.com/VE7LTX/echoframe/internal/models"
)

// Aligner turns ASR segments and speaker turns into aligned transcript
// segments. It is an interface so the fusion strategy can be swapped
// without touching callers.
type Aligner interface {
	Align(segments []models.Segment, turns []models.SpeakerTurn) []models.AlignedSegment
}

// OverlapAligner attributes each ASR segment to the speaker turn with the
// greatest temporal overlap. The fusion is O(S*T); both collections are
// small per session (tens to low hundreds), so no interval index is kept.
type OverlapAligner struct{}

// New returns the default overlap-based aligner.
func New() OverlapAligner { return OverlapAligner{} }

// Align labels every ASR segment and merges consecutive same-speaker
// segments. The inputs are read-only: both lists are copied and sorted
// defensively before use. Align is deterministic and idempotent with
// respect to its inputs.
//
// Per segment, the winning turn maximizes overlap duration; ties go to the
// turn with the earlier start, then to the first encountered in input
// order. A segment with no positive overlap gets no label. A segment
// straddling a turn boundary is atomic: it takes the single winning label
// and is never split.
func (OverlapAligner) Align(segments []models.Segment, turns []models.SpeakerTurn) []models.AlignedSegment {
	segs := make([]models.Segment, len(segments))
	copy(segs, segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].StartSec < segs[j].StartSec })

	trs := make([]models.SpeakerTurn, len(turns))
	copy(trs, turns)
	sort.SliceStable(trs, func(i, j int) bool { return trs[i].StartSec < trs[j].StartSec })

	labeled := make([]models.AlignedSegment, 0, len(segs))
	for _, seg := range segs {
		aligned := models.AlignedSegment{
			StartSec: seg.StartSec,
			EndSec:   seg.EndSec,
			Text:     strings.TrimSpace(seg.Text),
		}
		if best := bestTurn(seg, trs); best >= 0 {
			label := trs[best].SpeakerLabel
			aligned.SpeakerLabel = &label
		}
		labeled = append(labeled, aligned)
	}

	return mergeConsecutive(labeled)
}

// bestTurn returns the index of the turn with maximal positive overlap, or
// -1 when nothing overlaps.
func bestTurn(seg models.Segment, turns []models.SpeakerTurn) int {
	best := -1
	bestOverlap := 0.0
	for i, t := range turns {
		ov := overlap(seg.StartSec, seg.EndSec, t.StartSec, t.EndSec)
		if ov <= 0 {
			continue
		}
		switch {
		case ov > bestOverlap:
			best = i
			bestOverlap = ov
		case ov == bestOverlap && best >= 0 && t.StartSec < turns[best].StartSec:
			best = i
		}
	}
	return best
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// mergeConsecutive joins runs of segments that agree on the speaker: a run
// of one non-null label collapses into a single segment spanning the run's
// extent with space-joined text, and a run of unlabeled segments merges the
// same way. An unlabeled segment never merges into a labeled neighbor.
// Output segments never overlap: when ASR produced overlapping intervals
// that won different labels, the later segment's start is clamped to the
// earlier segment's end.
func mergeConsecutive(in []models.AlignedSegment) []models.AlignedSegment {
	if len(in) == 0 {
		return []models.AlignedSegment{}
	}

	out := make([]models.AlignedSegment, 0, len(in))
	cur := in[0]
	for _, next := range in[1:] {
		if cur.SameSpeaker(next) {
			if next.Text != "" {
				if cur.Text != "" {
					cur.Text += " "
				}
				cur.Text += next.Text
			}
			if next.EndSec > cur.EndSec {
				cur.EndSec = next.EndSec
			}
			continue
		}
		out = append(out, cur)
		if next.StartSec < cur.EndSec {
			next.StartSec = cur.EndSec
			if next.EndSec < next.StartSec {
				next.EndSec = next.StartSec
			}
		}
		cur = next
	}
	return append(out, cur)
}
