package classification

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTable maps precomposed Latin letters to their base letter. It is
// built once from the same transform FoldDiacritics uses and is read-only
// afterwards, so lookups need no locking.
var foldTable = buildFoldTable()

func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func buildFoldTable() map[rune]rune {
	table := make(map[rune]rune)
	t := newFolder()
	// Latin-1 Supplement through Latin Extended-B covers ă â î ș ț and the
	// cedilla variants ş ţ the panel still emits.
	for r := rune(0x00C0); r <= 0x024F; r++ {
		t.Reset()
		folded, _, err := transform.String(t, string(r))
		if err != nil || folded == string(r) {
			continue
		}
		if fr, size := utf8.DecodeRuneInString(folded); size == len(folded) {
			table[r] = fr
		}
	}
	return table
}

// FoldDiacritics maps letters with diacritics to their base letters
// (ă→a, ș→s, Ț→T) and leaves everything else untouched.
func FoldDiacritics(s string) string {
	folded, _, err := transform.String(newFolder(), s)
	if err != nil {
		return s
	}
	return folded
}

// foldedText is a diacritic-folded view of a string that remembers where
// every folded byte came from, so matches on the folded text can be
// sliced back out of the original.
type foldedText struct {
	original string
	folded   string
	offsets  []int
}

func foldWithOffsets(s string) foldedText {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)

	for i, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if fr, ok := foldTable[r]; ok {
			r = fr
		}
		n, _ := b.WriteRune(r)
		for range n {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(s))

	return foldedText{original: s, folded: b.String(), offsets: offsets}
}

// slice returns the original substring for the folded byte range [start, end).
func (f foldedText) slice(start, end int) string {
	if start < 0 || end < start || end >= len(f.offsets) {
		return ""
	}
	return f.original[f.offsets[start]:f.offsets[end]]
}
