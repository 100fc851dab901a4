// Package dna holds the nucleotide-level primitives shared by the
// mutating chains and the affinity target: codon translation and the
// gapped alignment view.
package dna

import "strings"

const (
	// Bases is the nucleotide alphabet in the fixed A,C,G,T order used by
	// the substitution tables.
	Bases = "ACGT"

	// StopMarker appears in a translated sequence wherever a stop codon
	// was read. A sequence containing it is non-functional.
	StopMarker = '_'

	// UnknownMarker is emitted for gap codons and anything else the codon
	// table does not recognize.
	UnknownMarker = 'X'

	// GapRune marks an alignment gap in the gapped view of a sequence.
	GapRune = '.'
)

var codonTable = map[string]byte{
	"ATA": 'I', "ATC": 'I', "ATT": 'I', "ATG": 'M',
	"ACA": 'T', "ACC": 'T', "ACG": 'T', "ACT": 'T',
	"AAC": 'N', "AAT": 'N', "AAA": 'K', "AAG": 'K',
	"AGC": 'S', "AGT": 'S', "AGA": 'R', "AGG": 'R',
	"CTA": 'L', "CTC": 'L', "CTG": 'L', "CTT": 'L',
	"CCA": 'P', "CCC": 'P', "CCG": 'P', "CCT": 'P',
	"CAC": 'H', "CAT": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGA": 'R', "CGC": 'R', "CGG": 'R', "CGT": 'R',
	"GTA": 'V', "GTC": 'V', "GTG": 'V', "GTT": 'V',
	"GCA": 'A', "GCC": 'A', "GCG": 'A', "GCT": 'A',
	"GAC": 'D', "GAT": 'D', "GAA": 'E', "GAG": 'E',
	"GGA": 'G', "GGC": 'G', "GGG": 'G', "GGT": 'G',
	"TCA": 'S', "TCC": 'S', "TCG": 'S', "TCT": 'S',
	"TTC": 'F', "TTT": 'F', "TTA": 'L', "TTG": 'L',
	"TAC": 'Y', "TAT": 'Y', "TAA": StopMarker, "TAG": StopMarker,
	"TGC": 'C', "TGT": 'C', "TGA": StopMarker, "TGG": 'W',
}

// TranslateCodon maps a single codon to its amino acid. Gap codons and
// unknown triplets translate to UnknownMarker.
func TranslateCodon(codon string) byte {
	if aa, ok := codonTable[codon]; ok {
		return aa
	}
	return UnknownMarker
}

// Translate reads a nucleotide sequence in fixed codon frames starting at
// position zero. A trailing partial codon is dropped.
func Translate(nt string) string {
	var b strings.Builder
	b.Grow(len(nt) / 3)
	for i := 0; i+3 <= len(nt); i += 3 {
		b.WriteByte(TranslateCodon(nt[i : i+3]))
	}
	return b.String()
}

// HasStop reports whether a translated sequence contains a stop marker.
func HasStop(aa string) bool {
	return strings.IndexByte(aa, StopMarker) >= 0
}
