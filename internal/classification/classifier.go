// Package classification turns activity-feed lines into structured action records.
package classification

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/Veraticus/panel-ledger/internal/model"
)

// markerToken is "the player"; lines carrying it are always recorded.
const markerToken = "jucatorul"

const timestampLayout = "2006-01-02 15:04:05"

var openers = []string{"contract", "administratorul", "trade", "vanzarea"}

// Rejection reasons reported by Explain.
var (
	errSelfTarget   = errors.New("target is the actor")
	errMissingActor = errors.New("no actor id")
	errAfterSelf    = errors.New("skipped after a self-targeted match")
)

var markerPattern = regexp.MustCompile(`(?i)\b` + markerToken + `\b`)

type compiledRule struct {
	regex   *regexp.Regexp
	anchors []int
	Rule
}

// Classifier applies an ordered rule set to feed lines. It is safe for
// concurrent use.
type Classifier struct {
	matcher    *ahocorasick.Matcher
	dictionary []string
	rules      []compiledRule
	// cloudflare's matcher keeps per-call state in its nodes.
	mu sync.Mutex
}

// NewClassifier compiles rules in the order given.
func NewClassifier(rules []Rule) (*Classifier, error) {
	dictionary := []string{markerToken}
	index := map[string]int{markerToken: 0}
	compiled := make([]compiledRule, 0, len(rules))

	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule with pattern %q has no name", r.Pattern)
		}
		if !r.Tag.Valid() {
			return nil, fmt.Errorf("rule %s: invalid tag %q", r.Name, r.Tag)
		}
		if r.Extract == nil {
			return nil, fmt.Errorf("rule %s: missing extractor", r.Name)
		}
		if len(r.Anchors) == 0 {
			return nil, fmt.Errorf("rule %s: at least one anchor is required", r.Name)
		}

		regexStr := r.Pattern
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr
		}

		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", r.Name, err)
		}
		for i, name := range regex.SubexpNames() {
			if i > 0 && name == "" {
				return nil, fmt.Errorf("rule %s: capture group %d is unnamed", r.Name, i)
			}
		}

		anchors := make([]int, 0, len(r.Anchors))
		for _, a := range r.Anchors {
			a = strings.ToLower(FoldDiacritics(a))
			idx, ok := index[a]
			if !ok {
				idx = len(dictionary)
				index[a] = idx
				dictionary = append(dictionary, a)
			}
			anchors = append(anchors, idx)
		}

		compiled = append(compiled, compiledRule{Rule: r, regex: regex, anchors: anchors})
	}

	return &Classifier{
		rules:      compiled,
		dictionary: dictionary,
		matcher:    ahocorasick.NewStringMatcher(dictionary),
	}, nil
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
	errDefault        error
)

// MustDefault returns the shared classifier for DefaultRules.
func MustDefault() *Classifier {
	defaultOnce.Do(func() {
		defaultClassifier, errDefault = NewClassifier(DefaultRules())
	})
	if errDefault != nil {
		panic(errDefault)
	}
	return defaultClassifier
}

// Rules returns the rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Rule
	}
	return out
}

// Trace records how a line was evaluated.
type Trace struct {
	Result    *model.ActionRecord
	Line      string
	Working   string
	Steps     []TraceStep
	Candidate bool
	Marker    bool
	Opener    bool
}

// TraceStep is the outcome of one rule.
type TraceStep struct {
	Rule      string
	Tag       model.ActionType
	Rejected  string
	AnchorHit bool
	Matched   bool
}

// Classify returns the record for line, or nil when the line is not an action.
// observedAt is used unless the text embeds its own timestamp.
func (c *Classifier) Classify(line string, observedAt time.Time) *model.ActionRecord {
	return c.evaluate(line, observedAt, nil)
}

// ClassifyFeed classifies a batch of lines, dropping non-actions.
func (c *Classifier) ClassifyFeed(lines []model.FeedLine) []model.ActionRecord {
	records := make([]model.ActionRecord, 0, len(lines))
	for _, l := range lines {
		if rec := c.Classify(l.RawText, l.ObservedAt); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// Explain classifies line and reports what every rule did with it.
func (c *Classifier) Explain(line string) *Trace {
	trace := &Trace{Line: line}
	trace.Result = c.evaluate(line, time.Now(), trace)
	return trace
}

func (c *Classifier) evaluate(line string, observedAt time.Time, trace *Trace) *model.ActionRecord {
	working, at := splitTimestamp(line, observedAt)
	working = trimDecoration(working)
	text := foldWithOffsets(working)
	lower := strings.ToLower(text.folded)

	hits := c.hits(lower)
	hasMarker := hits[0]
	hasOpener := false
	for _, o := range openers {
		if strings.HasPrefix(lower, o) {
			hasOpener = true
			break
		}
	}
	anchorHit := false
	for _, r := range c.rules {
		if r.anchored(hits) {
			anchorHit = true
			break
		}
	}

	if trace != nil {
		trace.Working = working
		trace.Marker = hasMarker
		trace.Opener = hasOpener
		trace.Candidate = hasMarker || hasOpener || anchorHit
	}
	if !hasMarker && !hasOpener && !anchorHit {
		return nil
	}

	selfTargeted := false
	for _, r := range c.rules {
		step := TraceStep{Rule: r.Name, Tag: r.Tag, AnchorHit: r.anchored(hits)}
		// A line naming the actor as its own counterpart fits no specific
		// family; only the fallback rules may place it.
		if selfTargeted && !r.Tag.IsFallback() {
			if step.AnchorHit {
				step.Rejected = errAfterSelf.Error()
			}
			if trace != nil {
				trace.Steps = append(trace.Steps, step)
			}
			continue
		}
		if !step.AnchorHit {
			if trace != nil {
				trace.Steps = append(trace.Steps, step)
			}
			continue
		}

		rec, matched, err := r.apply(text)
		step.Matched = matched
		if err != nil {
			step.Rejected = err.Error()
			selfTargeted = selfTargeted || errors.Is(err, errSelfTarget)
		}
		if trace != nil {
			trace.Steps = append(trace.Steps, step)
		}
		if rec == nil {
			continue
		}

		rec.ActionType = r.Tag
		rec.RawText = line
		rec.ObservedAt = at
		return rec
	}

	if hasMarker || hasOpener {
		return &model.ActionRecord{
			ActionType: model.ActionUnknown,
			RawText:    line,
			ObservedAt: at,
		}
	}
	return nil
}

func (c *Classifier) hits(lower string) []bool {
	found := make([]bool, len(c.dictionary))

	c.mu.Lock()
	matches := c.matcher.Match([]byte(lower))
	c.mu.Unlock()

	for _, idx := range matches {
		if idx >= 0 && idx < len(found) {
			found[idx] = true
		}
	}
	return found
}

func (r compiledRule) anchored(hits []bool) bool {
	for _, idx := range r.anchors {
		if hits[idx] {
			return true
		}
	}
	return false
}

// apply runs the rule against text. A nil record with matched=true means the
// match was rejected and err says why.
func (r compiledRule) apply(text foldedText) (*model.ActionRecord, bool, error) {
	loc := r.regex.FindStringSubmatchIndex(text.folded)
	if loc == nil {
		return nil, false, nil
	}

	captures := make(Captures)
	for i, name := range r.regex.SubexpNames() {
		if i == 0 || loc[2*i] < 0 {
			continue
		}
		captures[name] = text.slice(loc[2*i], loc[2*i+1])
	}

	rec, err := r.Extract(captures)
	if err != nil {
		return nil, true, err
	}
	if rec == nil || rec.ActorID == nil || *rec.ActorID == "" {
		return nil, true, errMissingActor
	}
	if rec.TargetID != nil && *rec.TargetID == *rec.ActorID {
		return nil, true, errSelfTarget
	}
	return rec, true, nil
}

// trimDecoration drops what precedes the first marker when it holds no
// letters and no player reference, such as a bullet or a "[12:01]" label.
func trimDecoration(working string) string {
	text := foldWithOffsets(working)
	loc := markerPattern.FindStringIndex(text.folded)
	if loc == nil {
		return working
	}
	cut := text.offsets[loc[0]]
	if cut == 0 {
		return working
	}

	prefix := working[:cut]
	if idGroupPattern.MatchString(prefix) || strings.IndexFunc(prefix, unicode.IsLetter) >= 0 {
		return working
	}
	return working[cut:]
}

// splitTimestamp collapses whitespace and lifts an embedded
// "YYYY-MM-DD HH:MM:SS" out of the line. The first one found becomes the
// observation time, interpreted in observedAt's location.
func splitTimestamp(line string, observedAt time.Time) (string, time.Time) {
	working := collapseWhitespace(line)
	loc := observedAt.Location()
	if observedAt.IsZero() {
		loc = time.UTC
	}

	stamp := timestampPattern.FindString(working)
	if stamp == "" {
		return working, observedAt
	}

	at := observedAt
	if parsed, err := time.ParseInLocation(timestampLayout, collapseWhitespace(stamp), loc); err == nil {
		at = parsed
	}
	return collapseWhitespace(timestampPattern.ReplaceAllString(working, " ")), at
}
