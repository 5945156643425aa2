package service

import (
	"errors"
	"fmt"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/store"
)

var ErrForbidden = errors.New("admin role required")

// ValidationError is a user-correctable input defect. Nothing has been
// written when one is returned. Index is -1 for fields outside a list.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return store.ErrInvalidTransaction
}

func invalid(field string, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Reason: reason}
}

func invalidAt(field string, index int, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: index, Reason: reason}
}

// StageError reports which write stage of a transaction save failed and on
// which record. Earlier stages of the same save are rolled back with it.
type StageError struct {
	Stage string
	Index int
	Err   error
}

func (e *StageError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("save %s (record %d): %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("save %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
