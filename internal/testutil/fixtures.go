package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/panel-ledger/internal/model"
)

// Feed lines with known classifications.
const (
	DepositLine  = "Jucatorul sasuke (192)(209261) a depozitat suma de 131.000.000$ (taxa 1.310.000$)."
	PurchaseLine = "Jucatorul Ioan Glont(56894) a achizitionat Casa Nr. 95 de la jucatorul cu ID 173608 pentru suma de 500.000.000$."
	WarningLine  = "Jucatorul Ion Popescu(1234) a primit un avertisment (1/3), de la administratorul Tipic(184), motiv: DM in zona safe."
	LoginLine    = "Jucatorul Ion(5) s-a logat pe server."
	NoIDLine     = "Jucatorul a facut ceva fara id"
)

// DepositText returns a distinct, classifiable deposit line for player n.
func DepositText(n int) string {
	return fmt.Sprintf("Jucatorul Player%d(%d) a depozitat suma de %d.000$ (taxa 10$).", n, 1000+n, n)
}

// ActionBuilder assembles stored-action fixtures. Each added record is
// observed one second after the previous so hashes never collide.
type ActionBuilder struct {
	next    time.Time
	records []model.ActionRecord
}

// NewActions starts a builder at BaseTime.
func NewActions() *ActionBuilder {
	return &ActionBuilder{next: BaseTime}
}

// Typed adds text stored with type t, regardless of what it classifies as.
func (b *ActionBuilder) Typed(text string, t model.ActionType) *ActionBuilder {
	b.records = append(b.records, model.ActionRecord{
		RawText:    text,
		ActionType: t,
		ObservedAt: b.next,
	})
	b.next = b.next.Add(time.Second)
	return b
}

// Unknown adds text stored as unknown.
func (b *ActionBuilder) Unknown(text string) *ActionBuilder {
	return b.Typed(text, model.ActionUnknown)
}

// Deposits adds n distinct deposit lines stored as unknown.
func (b *ActionBuilder) Deposits(n int) *ActionBuilder {
	for i := 1; i <= n; i++ {
		b.Unknown(DepositText(i))
	}
	return b
}

// Build returns the accumulated records.
func (b *ActionBuilder) Build() []model.ActionRecord {
	out := make([]model.ActionRecord, len(b.records))
	copy(out, b.records)
	return out
}
