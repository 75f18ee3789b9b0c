package scraper

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Veraticus/panel-ledger/internal/classification"
	"github.com/Veraticus/panel-ledger/internal/model"
)

const (
	minEntryLength  = 20
	minMarkerCount  = 3
	markerToken     = "jucatorul"
	transferKeyword = "transferat"
	entrySelector   = "li, tr, div"
)

var (
	directSelectors = []string{
		"#activity", "#actions", "#latest-actions", "#recent-activity",
		".activity", ".actions", ".recent-actions", ".latest-actions",
		".activity-feed", ".action-log", ".player-actions",
	}
	feedClassPattern = regexp.MustCompile(`(?i)activity|actions|feed|timeline`)
	headingKeywords  = []string{"activitate", "ultimele", "actiuni", "recent"}
	lineOpeners      = []string{"contract", "administratorul", "trade", "vanzarea"}
)

// ParseFeed isolates candidate action lines from the panel home page.
// Sections are tried in order of confidence and the first that yields any
// entry wins. Lines are whitespace-collapsed, de-duplicated and stamped with
// observedAt.
func ParseFeed(body []byte, observedAt time.Time, limit int) ([]model.FeedLine, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	for _, section := range candidateSections(doc) {
		texts := sectionEntries(section, limit)
		if len(texts) == 0 {
			continue
		}

		lines := make([]model.FeedLine, len(texts))
		for i, text := range texts {
			lines[i] = model.FeedLine{RawText: text, ObservedAt: observedAt}
		}
		return lines, nil
	}
	return nil, nil
}

func candidateSections(doc *goquery.Document) []*goquery.Selection {
	var sections []*goquery.Selection

	for _, selector := range directSelectors {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			sections = append(sections, s)
		}
	}

	doc.Find("ul, ol, div, section").Each(func(_ int, s *goquery.Selection) {
		if class, ok := s.Attr("class"); ok && feedClassPattern.MatchString(class) {
			sections = append(sections, s)
		}
	})

	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		own := fold(ownText(s))
		for _, keyword := range headingKeywords {
			if strings.Contains(own, keyword) {
				if parent := s.Closest("div, section, article, main"); parent.Length() > 0 {
					sections = append(sections, parent)
				}
				return
			}
		}
	})

	doc.Find("ul, ol, div, table").Each(func(_ int, s *goquery.Selection) {
		if strings.Count(fold(s.Text()), markerToken) >= minMarkerCount {
			sections = append(sections, s)
		}
	})

	return sections
}

// sectionEntries returns the texts of the leaf-most qualifying entries in section.
func sectionEntries(section *goquery.Selection, limit int) []string {
	seen := make(map[string]bool)
	var texts []string

	section.Find(entrySelector).EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		text := nodeText(entry)
		if !isCandidate(text) {
			return true
		}

		// A wrapper around other qualifying entries is not an entry itself.
		nested := false
		entry.Find(entrySelector).EachWithBreak(func(_ int, child *goquery.Selection) bool {
			if isCandidate(nodeText(child)) {
				nested = true
				return false
			}
			return true
		})
		if nested || seen[text] {
			return true
		}

		seen[text] = true
		texts = append(texts, text)
		return limit <= 0 || len(texts) < limit
	})

	return texts
}

func isCandidate(text string) bool {
	if len(text) < minEntryLength {
		return false
	}
	folded := fold(text)
	if strings.Contains(folded, markerToken) || strings.Contains(folded, transferKeyword) {
		return true
	}
	for _, opener := range lineOpeners {
		if strings.HasPrefix(folded, opener) {
			return true
		}
	}
	return false
}

// nodeText is the element's concatenated text with whitespace collapsed.
func nodeText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// ownText returns only the direct text children of s.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

func fold(s string) string {
	return strings.ToLower(classification.FoldDiacritics(s))
}
