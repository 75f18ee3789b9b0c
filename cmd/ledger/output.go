package main

import (
	"time"

	"github.com/Veraticus/panel-ledger/internal/model"
)

// actionJSON is the wire form of a record printed by classify and actions.
type actionJSON struct {
	ObservedAt   time.Time `json:"observed_at"`
	ActorID      *string   `json:"player_id,omitempty"`
	ActorName    *string   `json:"player_name,omitempty"`
	TargetID     *string   `json:"target_player_id,omitempty"`
	TargetName   *string   `json:"target_player_name,omitempty"`
	ItemName     *string   `json:"item_name,omitempty"`
	ItemQuantity *int      `json:"item_quantity,omitempty"`
	AdminID      *string   `json:"admin_id,omitempty"`
	AdminName    *string   `json:"admin_name,omitempty"`
	Reason       *string   `json:"reason,omitempty"`
	WarningCount *string   `json:"warning_count,omitempty"`
	Amount       *int64    `json:"amount,omitempty"`
	Fee          *int64    `json:"fee,omitempty"`
	Detail       *string   `json:"action_detail,omitempty"`
	ID           int64     `json:"id,omitempty"`
	ActionType   string    `json:"action_type"`
	RawText      string    `json:"raw_text"`
}

func toActionJSON(id int64, r *model.ActionRecord) actionJSON {
	return actionJSON{
		ID:           id,
		ActionType:   string(r.ActionType),
		RawText:      r.RawText,
		ObservedAt:   r.ObservedAt.UTC(),
		ActorID:      r.ActorID,
		ActorName:    r.ActorName,
		TargetID:     r.TargetID,
		TargetName:   r.TargetName,
		ItemName:     r.ItemName,
		ItemQuantity: r.ItemQuantity,
		AdminID:      r.AdminID,
		AdminName:    r.AdminName,
		Reason:       r.Reason,
		WarningCount: r.WarningCount,
		Amount:       r.Amount,
		Fee:          r.Fee,
		Detail:       r.Detail,
	}
}
