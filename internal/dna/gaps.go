package dna

import "strings"

// GapRun is one run of alignment gaps. Pos is the index of the first gap
// character in the gapped (alignment-coordinate) view.
type GapRun struct {
	Pos int
	Len int
}

// GapsFromAligned extracts the gap runs of an aligned sequence, in
// ascending position order.
func GapsFromAligned(aligned string) []GapRun {
	var runs []GapRun
	for i := 0; i < len(aligned); {
		if aligned[i] != GapRune {
			i++
			continue
		}
		start := i
		for i < len(aligned) && aligned[i] == GapRune {
			i++
		}
		runs = append(runs, GapRun{Pos: start, Len: i - start})
	}
	return runs
}

// ApplyGaps rebuilds the gapped view of an ungapped sequence. The runs
// must be sorted ascending, as produced by GapsFromAligned.
func ApplyGaps(seq string, gaps []GapRun) string {
	if len(gaps) == 0 {
		return seq
	}
	var b strings.Builder
	b.Grow(len(seq) + totalGapLen(gaps))
	src := 0
	for _, g := range gaps {
		for b.Len() < g.Pos && src < len(seq) {
			b.WriteByte(seq[src])
			src++
		}
		for i := 0; i < g.Len; i++ {
			b.WriteByte(GapRune)
		}
	}
	b.WriteString(seq[src:])
	return b.String()
}

// RemoveGaps strips all gap characters from an aligned sequence.
func RemoveGaps(aligned string) string {
	return strings.ReplaceAll(aligned, string(GapRune), "")
}

func totalGapLen(gaps []GapRun) int {
	n := 0
	for _, g := range gaps {
		n += g.Len
	}
	return n
}

// CopyGaps returns an independent copy of a gap-run slice.
func CopyGaps(gaps []GapRun) []GapRun {
	if gaps == nil {
		return nil
	}
	out := make([]GapRun, len(gaps))
	copy(out, gaps)
	return out
}
