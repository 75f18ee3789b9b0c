package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// ActionRecord is one classified event extracted from a feed line.
// Optional fields are nil when absent, never empty strings.
type ActionRecord struct {
	ObservedAt   time.Time
	ActorID      *string
	ActorName    *string
	TargetID     *string
	TargetName   *string
	ItemName     *string
	ItemQuantity *int
	AdminID      *string
	AdminName    *string
	Reason       *string
	WarningCount *string
	Amount       *int64
	Fee          *int64
	Detail       *string
	ActionType   ActionType
	RawText      string
}

// Hash creates a unique hash for duplicate detection.
func (r *ActionRecord) Hash() string {
	data := fmt.Sprintf("%s|%s", r.RawText, r.ObservedAt.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// InvolvesPlayer reports whether id is the actor or the target of the action.
func (r *ActionRecord) InvolvesPlayer(id string) bool {
	return (r.ActorID != nil && *r.ActorID == id) || (r.TargetID != nil && *r.TargetID == id)
}

// FeedLine is one candidate line isolated from the activity feed.
type FeedLine struct {
	ObservedAt time.Time
	RawText    string
}

// StoredAction is a persisted ActionRecord.
type StoredAction struct {
	ActionRecord
	ID int64
}

// ReclassifyCandidate is a stored record offered to the reclassifier.
type ReclassifyCandidate struct {
	ObservedAt  time.Time
	RawText     string
	CurrentType ActionType
	ID          int64
}

// CandidateFromStored builds a reclassification candidate from a stored action.
func CandidateFromStored(a StoredAction) ReclassifyCandidate {
	return ReclassifyCandidate{
		ID:          a.ID,
		RawText:     a.RawText,
		CurrentType: a.ActionType,
		ObservedAt:  a.ObservedAt,
	}
}

// ReclassifyOutcome is the diff computed for one candidate. Record is the
// fresh classification and is nil when the classifier rejected the line.
type ReclassifyOutcome struct {
	Record  *ActionRecord
	OldType ActionType
	NewType ActionType
	ID      int64
	Changed bool
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or the empty string.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
