package checklist

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus    = errors.New("checklist: invalid status")
	ErrUnknownReport    = errors.New("checklist: unknown report")
	ErrUnknownItem      = errors.New("checklist: unknown checklist item")
	ErrMachineNotFound  = errors.New("checklist: machine not found")
	ErrDuplicateBarcode = errors.New("checklist: barcode already registered")
	ErrInvalidInput     = errors.New("checklist: invalid input")
)

// IncompleteError is returned by SubmitChecklist when items are unanswered or answered N/A.
type IncompleteError struct {
	Remaining int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("checklist: %d item(s) still need an OK or Not OK answer", e.Remaining)
}
