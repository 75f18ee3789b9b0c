package classification

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/panel-ledger/internal/common"
)

var (
	timestampPattern         = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`)
	trailingTimestampPattern = regexp.MustCompile(`\s*\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}\s*$`)
	fillerPattern            = regexp.MustCompile(`(?i)\(\s*de\s*\)`)
	nonDigitRun              = regexp.MustCompile(`\D+`)
)

// factionPlaceholders are compared after folding and lower-casing.
var factionPlaceholders = map[string]bool{
	"":      true,
	"civil": true,
	"fara":  true,
	"none":  true,
	"-":     true,
	"n/a":   true,
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseAmount parses a currency amount written with any thousands separator
// style ("61.000.000", "2,781,647", "7.500.000 (de) $") into whole units.
func ParseAmount(s string) (int64, error) {
	cleaned := fillerPattern.ReplaceAllString(s, "")
	cleaned = strings.Trim(cleaned, " \t$")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty amount", common.ErrUnparsableAmount)
	}

	first, last := cleaned[0], cleaned[len(cleaned)-1]
	if !isDigit(first) || !isDigit(last) {
		return 0, fmt.Errorf("%w: %q", common.ErrUnparsableAmount, s)
	}

	digits := nonDigitRun.ReplaceAllString(cleaned, "")
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", common.ErrUnparsableAmount, s, err)
	}

	return amount, nil
}

// ParseQuantity parses item quantities in the "x5", "5x", "5 x" and "5" forms.
func ParseQuantity(s string) (int, error) {
	cleaned := strings.TrimSpace(strings.ToLower(s))
	cleaned = strings.TrimSpace(strings.Trim(cleaned, "x"))
	if cleaned == "" {
		return 0, fmt.Errorf("empty quantity %q", s)
	}
	for i := 0; i < len(cleaned); i++ {
		if !isDigit(cleaned[i]) {
			return 0, fmt.Errorf("invalid quantity %q", s)
		}
	}
	return strconv.Atoi(cleaned)
}

// NormalizeName trims and collapses whitespace. Empty names become nil.
func NormalizeName(s string) *string {
	name := collapseWhitespace(s)
	if name == "" {
		return nil
	}
	return &name
}

// NormalizeFaction returns nil for the placeholder values the panel shows
// for players without a faction (Civil, Fără, None, -, N/A).
func NormalizeFaction(s string) *string {
	name := NormalizeName(s)
	if name == nil {
		return nil
	}
	if factionPlaceholders[strings.ToLower(FoldDiacritics(*name))] {
		return nil
	}
	return name
}

// CleanText collapses whitespace and strips trailing timestamps.
func CleanText(s string) *string {
	text := collapseWhitespace(s)
	for trailingTimestampPattern.MatchString(text) {
		text = trailingTimestampPattern.ReplaceAllString(text, "")
	}
	if text == "" {
		return nil
	}
	return &text
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
