package domain

import "time"

// MoveIntent describes a requested relocation of one card, as emitted by
// the drag-gesture layer. A cancelled or out-of-bounds drop produces no
// intent at all, so handlers treat a missing intent as a no-op.
type MoveIntent struct {
	SourceColumnID string `json:"sourceColumnId"`
	SourceIndex    int    `json:"sourceIndex"`
	DestColumnID   string `json:"destColumnId"`
	DestIndex      int    `json:"destIndex"`
	CardID         string `json:"cardId"`
}

// Move applies a move intent and returns the resulting board. The input
// board is never mutated; columns and cards the move does not touch are
// shared with the result.
//
// A same-column move only reorders the sequence and leaves movedTo alone:
// the card's logical location did not change. A cross-column move stamps
// movedTo[dest] with now, overwriting any earlier visit to that column and
// retaining history for every other column.
//
// When the intent is the identity (same column, same index) the input
// board is returned untouched, before any history stamp could happen.
//
// When cardID does not resolve to a card record, the transfer still
// relocates the id in the column sequences but skips the movedTo stamp.
// This is a deliberate degraded path, not an error: the sequences stay
// consistent and there is no card data to update.
func Move(b Board, intent MoveIntent, now time.Time) (Board, error) {
	src, ok := b.Columns[intent.SourceColumnID]
	if !ok {
		return b, &NotFoundError{Kind: "column", ID: intent.SourceColumnID}
	}
	dst, ok := b.Columns[intent.DestColumnID]
	if !ok {
		return b, &NotFoundError{Kind: "column", ID: intent.DestColumnID}
	}
	if intent.SourceIndex < 0 || intent.SourceIndex >= len(src.CardIDs) || src.CardIDs[intent.SourceIndex] != intent.CardID {
		return b, &NotFoundError{Kind: "card", ID: intent.CardID}
	}
	if intent.SourceColumnID == intent.DestColumnID && intent.SourceIndex == intent.DestIndex {
		return b, nil
	}

	if intent.SourceColumnID == intent.DestColumnID {
		ids := removeAt(src.CardIDs, intent.SourceIndex)
		ids = insertAt(ids, clampIndex(intent.DestIndex, len(ids)), intent.CardID)

		cols := cloneColumns(b.Columns)
		cols[src.ID] = Column{ID: src.ID, Title: src.Title, CardIDs: ids}
		return Board{Columns: cols, Cards: b.Cards, ColumnOrder: b.ColumnOrder}, nil
	}

	srcIDs := removeAt(src.CardIDs, intent.SourceIndex)
	dstIDs := insertAt(dst.CardIDs, clampIndex(intent.DestIndex, len(dst.CardIDs)), intent.CardID)

	cols := cloneColumns(b.Columns)
	cols[src.ID] = Column{ID: src.ID, Title: src.Title, CardIDs: srcIDs}
	cols[dst.ID] = Column{ID: dst.ID, Title: dst.Title, CardIDs: dstIDs}

	card, ok := b.Cards[intent.CardID]
	if !ok {
		return Board{Columns: cols, Cards: b.Cards, ColumnOrder: b.ColumnOrder}, nil
	}

	moved := cloneMovedTo(card.MovedTo)
	moved[intent.DestColumnID] = Timestamp(now)
	card.MovedTo = moved

	cards := cloneCards(b.Cards)
	cards[intent.CardID] = card
	return Board{Columns: cols, Cards: cards, ColumnOrder: b.ColumnOrder}, nil
}

func removeAt(ids []string, i int) []string {
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}

func insertAt(ids []string, i int, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	return append(out, ids[i:]...)
}

// clampIndex mirrors the splice semantics of the original drop handler:
// a destination past the end lands at the end.
func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
