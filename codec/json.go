// Package codec serializes board state to and from the two wire formats:
// the lossless structured JSON document and the lossy tabular CSV form.
package codec

import (
	"github.com/bytedance/sonic"

	"kanban-api/domain"
)

// FormatError reports an import document that failed shape validation.
// Imports are rejected wholesale; the caller's board is never partially
// replaced.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return e.Reason }

// EncodeBoard serializes the full board state losslessly.
func EncodeBoard(b domain.Board) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(b, "", "  ")
}

// DecodeBoard parses a structured export document and validates it before
// it can replace a board. The document must carry all three top-level
// fields (columns, cards, columnOrder) and satisfy the board invariants.
func DecodeBoard(data []byte) (domain.Board, error) {
	var b domain.Board
	if err := sonic.Unmarshal(data, &b); err != nil {
		return domain.Board{}, &FormatError{Reason: "not a valid board document: " + err.Error()}
	}
	if b.Columns == nil || b.Cards == nil || b.ColumnOrder == nil {
		return domain.Board{}, &FormatError{Reason: "board document must have columns, cards and columnOrder"}
	}
	if err := b.Validate(); err != nil {
		return domain.Board{}, &FormatError{Reason: err.Error()}
	}
	return b, nil
}
