// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"

	"github.com/Veraticus/panel-ledger/internal/common"
)

// ActionType tags a classified feed line. The string values are persisted
// and keyed off by downstream readers, so they must never be renamed.
type ActionType string

// Action type constants.
const (
	ActionWarningReceived   ActionType = "warning_received"
	ActionWarningRemoved    ActionType = "warning_removed"
	ActionChestDeposit      ActionType = "chest_deposit"
	ActionChestWithdraw     ActionType = "chest_withdraw"
	ActionItemGiven         ActionType = "item_given"
	ActionItemReceived      ActionType = "item_received"
	ActionMoneyTransfer     ActionType = "money_transfer"
	ActionMoneyDeposit      ActionType = "money_deposit"
	ActionMoneyWithdraw     ActionType = "money_withdraw"
	ActionVehicleBought     ActionType = "vehicle_bought"
	ActionVehicleSold       ActionType = "vehicle_sold"
	ActionPropertyBought    ActionType = "property_bought"
	ActionPropertySold      ActionType = "property_sold"
	ActionVehicleContract   ActionType = "vehicle_contract"
	ActionTrade             ActionType = "trade"
	ActionLicensePlateSale  ActionType = "license_plate_sale"
	ActionGamblingWin       ActionType = "gambling_win"
	ActionOther             ActionType = "other"
	ActionUnknown           ActionType = "unknown"
	ActionLegacyMultiAction ActionType = "legacy_multi_action"
)

// AllActionTypes lists every action type in display order.
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionWarningReceived,
		ActionWarningRemoved,
		ActionChestDeposit,
		ActionChestWithdraw,
		ActionItemGiven,
		ActionItemReceived,
		ActionMoneyTransfer,
		ActionMoneyDeposit,
		ActionMoneyWithdraw,
		ActionVehicleBought,
		ActionVehicleSold,
		ActionPropertyBought,
		ActionPropertySold,
		ActionVehicleContract,
		ActionTrade,
		ActionLicensePlateSale,
		ActionGamblingWin,
		ActionOther,
		ActionUnknown,
		ActionLegacyMultiAction,
	}
}

// RescuableActionTypes are the types a reclassification run targets by default.
func RescuableActionTypes() []ActionType {
	return []ActionType{ActionUnknown, ActionOther, ActionLegacyMultiAction}
}

// IsFallback reports whether t is a non-specific classification result.
func (t ActionType) IsFallback() bool {
	return t == ActionOther || t == ActionUnknown
}

// IsRescuable reports whether a record of type t may be overwritten by reclassification.
func (t ActionType) IsRescuable() bool {
	return t.IsFallback() || t == ActionLegacyMultiAction
}

// Valid reports whether t belongs to the enumeration.
func (t ActionType) Valid() bool {
	for _, known := range AllActionTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func (t ActionType) String() string {
	return string(t)
}

// ParseActionType converts a persisted value into an ActionType.
func ParseActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownActionType, s)
	}
	return t, nil
}
