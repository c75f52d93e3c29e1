package domain

import "fmt"

// ValidationError reports input that was refused before touching the
// board: blank titles, enum values outside the closed sets, malformed
// import documents. The board is left unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError reports an operation against an id absent from the board.
type NotFoundError struct {
	Kind string // "card" or "column"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
