package asr

import (
	"fmt"
	"strings"
)

// ApplyHygieneFilter removes low-confidence words. A word is dropped when
// its probability is strictly below minProbability (a probability exactly at
// the threshold is kept) or when its text is empty after trimming. Empty
// words vanish silently; threshold casualties are returned for audit.
func ApplyHygieneFilter(words []Word, minProbability float64) (cleaned []Word, removed []RemovedWord) {
	for _, word := range words {
		if strings.TrimSpace(word.Word) == "" {
			continue
		}
		if word.Probability < minProbability {
			removed = append(removed, RemovedWord{
				Word:   word,
				Reason: fmt.Sprintf("low_probability (%.3f)", word.Probability),
			})
			continue
		}
		cleaned = append(cleaned, word)
	}
	return cleaned, removed
}

// MergeShortPauses combines segments separated by pauses shorter than
// maxGap seconds. Natural speech rhythm fragments a single clinical thought
// into several recognizer segments; merging them back materially improves
// anything built on segment-level text.
//
// Word lists and hygiene counters are summed across merged segments;
// MergedFrom tracks the original segment indices.
func MergeShortPauses(segments []Segment, maxGap float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]Segment, 0, len(segments))
	current := cloneSegment(segments[0])
	current.MergedFrom = []int{0}

	for i, seg := range segments[1:] {
		idx := i + 1
		gap := seg.Start - current.End

		if gap >= maxGap {
			merged = append(merged, current)
			current = cloneSegment(seg)
			current.MergedFrom = []int{idx}
			continue
		}

		current.End = seg.End
		current.Text = strings.TrimSpace(current.Text + " " + seg.Text)
		current.MergedFrom = append(current.MergedFrom, idx)

		if len(current.Words) > 0 && len(seg.Words) > 0 {
			current.Words = append(current.Words, seg.Words...)
		}
		if current.Hygiene != nil && seg.Hygiene != nil {
			current.Hygiene.OriginalWordCount += seg.Hygiene.OriginalWordCount
			current.Hygiene.CleanedWordCount += seg.Hygiene.CleanedWordCount
			current.Hygiene.RemovedWordCount += seg.Hygiene.RemovedWordCount
			current.Hygiene.RemovedWords = append(current.Hygiene.RemovedWords, seg.Hygiene.RemovedWords...)
		}
	}

	return append(merged, current)
}

// cloneSegment copies the accumulator's word list and hygiene counters so
// merging never writes through into the input segments.
func cloneSegment(seg Segment) Segment {
	out := seg
	if len(seg.Words) > 0 {
		out.Words = append([]Word(nil), seg.Words...)
	}
	if seg.Hygiene != nil {
		h := *seg.Hygiene
		h.RemovedWords = append([]RemovedWord(nil), seg.Hygiene.RemovedWords...)
		out.Hygiene = &h
	}
	return out
}

// CalculateMergeStats reports how much pause merging compacted the segment
// list.
func CalculateMergeStats(originalCount, mergedCount int) *MergeStats {
	stats := &MergeStats{
		OriginalCount:  originalCount,
		MergedCount:    mergedCount,
		ReductionCount: originalCount - mergedCount,
	}
	if originalCount > 0 {
		stats.ReductionPct = float64(originalCount-mergedCount) / float64(originalCount) * 100
	}
	return stats
}
