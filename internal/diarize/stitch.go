package diarize

// Stitch merges adjacent same-speaker segments separated by gaps of at most
// maxGap seconds. The input must already be sorted by start time; chunked
// processing fragments turns at chunk boundaries and this repairs them.
//
// This is generic interval-merge logic: it does not care how the segments
// were produced.
func Stitch(segments []Segment, maxGap float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	stitched := make([]Segment, 0, len(segments))
	current := segments[0]

	for _, next := range segments[1:] {
		gap := next.Start - current.End
		if next.Speaker == current.Speaker && gap <= maxGap {
			// Extend the accumulator to cover the next segment
			current.End = next.End
			current.Duration = current.End - current.Start
			continue
		}
		stitched = append(stitched, current)
		current = next
	}

	return append(stitched, current)
}
