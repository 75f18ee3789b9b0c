// Package storage provides the data persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/panel-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrEmptySlice    = errors.New("slice cannot be empty")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrInvalidAction = errors.New("invalid action")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAction checks the fields every stored action must carry.
func validateAction(rec *model.ActionRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: action", ErrNilParameter)
	}
	if !rec.ActionType.Valid() {
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, rec.ActionType)
	}
	if strings.TrimSpace(rec.RawText) == "" {
		return fmt.Errorf("%w: missing raw text", ErrInvalidAction)
	}
	if rec.ObservedAt.IsZero() {
		return fmt.Errorf("%w: missing observation time", ErrInvalidAction)
	}
	if rec.TargetID != nil && rec.ActorID != nil && *rec.TargetID == *rec.ActorID {
		return fmt.Errorf("%w: target equals actor", ErrInvalidAction)
	}
	return nil
}

// validateUpdate checks a reclassified record before it overwrites a row.
// Raw text and observation time are not written, so they are not required.
func validateUpdate(ctx context.Context, rec *model.ActionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: action", ErrNilParameter)
	}
	if !rec.ActionType.Valid() {
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, rec.ActionType)
	}
	return nil
}

func validateFetch(ctx context.Context, types []model.ActionType, limit int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(types) == 0 {
		return fmt.Errorf("%w: types", ErrEmptySlice)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return nil
}
