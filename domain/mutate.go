package domain

import (
	"fmt"
	"strings"
	"time"
)

// newCardID derives an id from the creation time, the same scheme the
// board has always used: "card-<unix ms>" for single creations and
// "card-<unix ms>-<index>" for batch items. A numeric suffix is bumped
// while the candidate collides with an existing card, so several calls
// inside the same millisecond still get distinct ids.
func newCardID(cards map[string]Card, base string) string {
	id := base
	for bump := 1; ; bump++ {
		if _, taken := cards[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, bump)
	}
}

// CreateCard validates the draft, assigns an id and creation timestamp,
// and appends the new card to the end of the target column. The card's
// movedTo history starts with a single entry for its starting column.
func CreateCard(b Board, columnID string, draft Draft, now time.Time) (Board, error) {
	if err := draft.Validate(); err != nil {
		return b, err
	}
	col, ok := b.Columns[columnID]
	if !ok {
		return b, &NotFoundError{Kind: "column", ID: columnID}
	}

	id := newCardID(b.Cards, fmt.Sprintf("card-%d", now.UnixMilli()))
	stamp := Timestamp(now)
	card := Card{
		ID:          id,
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Priority:    CoercePriority(draft.Priority),
		Tag:         CoerceTag(draft.Tag),
		DueDate:     draft.DueDate,
		CreatedAt:   stamp,
		MovedTo:     map[string]string{columnID: stamp},
	}

	cards := cloneCards(b.Cards)
	cards[id] = card

	ids := make([]string, 0, len(col.CardIDs)+1)
	ids = append(ids, col.CardIDs...)
	ids = append(ids, id)

	cols := cloneColumns(b.Columns)
	cols[columnID] = Column{ID: col.ID, Title: col.Title, CardIDs: ids}

	return Board{Columns: cols, Cards: cards, ColumnOrder: b.ColumnOrder}, nil
}

// UpdateCard replaces the editable fields of an existing card. ID,
// createdAt and movedTo are carried over from the stored card; column
// membership and ordering are untouched. A missing id is an explicit
// NotFoundError, never a silent write.
func UpdateCard(b Board, cardID string, draft Draft) (Board, error) {
	existing, ok := b.Cards[cardID]
	if !ok {
		return b, &NotFoundError{Kind: "card", ID: cardID}
	}
	if err := draft.Validate(); err != nil {
		return b, err
	}

	cards := cloneCards(b.Cards)
	cards[cardID] = Card{
		ID:          existing.ID,
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Priority:    CoercePriority(draft.Priority),
		Tag:         CoerceTag(draft.Tag),
		DueDate:     draft.DueDate,
		CreatedAt:   existing.CreatedAt,
		MovedTo:     existing.MovedTo,
	}
	return Board{Columns: b.Columns, Cards: cards, ColumnOrder: b.ColumnOrder}, nil
}

// DeleteCard removes the card from the card map and from whichever column
// holds it. Deleting an id the board does not know is a no-op.
func DeleteCard(b Board, cardID string) Board {
	_, inCards := b.Cards[cardID]
	colID, inColumn := b.columnLocation(cardID)
	if !inCards && !inColumn {
		return b
	}

	cards := b.Cards
	if inCards {
		cards = cloneCards(b.Cards)
		delete(cards, cardID)
	}

	cols := b.Columns
	if inColumn {
		col := b.Columns[colID]
		kept := make([]string, 0, len(col.CardIDs)-1)
		for _, id := range col.CardIDs {
			if id != cardID {
				kept = append(kept, id)
			}
		}
		cols = cloneColumns(b.Columns)
		cols[colID] = Column{ID: col.ID, Title: col.Title, CardIDs: kept}
	}

	return Board{Columns: cols, Cards: cards, ColumnOrder: b.ColumnOrder}
}

// ClearColumn deletes every card currently in the column and empties its
// sequence. Clearing an already-empty column returns the board unchanged.
func ClearColumn(b Board, columnID string) (Board, error) {
	col, ok := b.Columns[columnID]
	if !ok {
		return b, &NotFoundError{Kind: "column", ID: columnID}
	}
	if len(col.CardIDs) == 0 {
		return b, nil
	}

	cards := cloneCards(b.Cards)
	for _, id := range col.CardIDs {
		delete(cards, id)
	}

	cols := cloneColumns(b.Columns)
	cols[columnID] = Column{ID: col.ID, Title: col.Title, CardIDs: []string{}}

	return Board{Columns: cols, Cards: cards, ColumnOrder: b.ColumnOrder}, nil
}

// BulkInsert appends one card per draft to the end of the target column,
// in draft order. The whole batch shares a single timestamp for createdAt
// and the initial movedTo entry; ids stay distinct by carrying the item's
// index within the batch. Validation runs before any insert, so a bad
// draft rejects the batch with the board unchanged.
func BulkInsert(b Board, columnID string, drafts []Draft, now time.Time) (Board, error) {
	col, ok := b.Columns[columnID]
	if !ok {
		return b, &NotFoundError{Kind: "column", ID: columnID}
	}
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return b, err
		}
	}
	if len(drafts) == 0 {
		return b, nil
	}

	stamp := Timestamp(now)
	cards := cloneCards(b.Cards)
	ids := make([]string, 0, len(col.CardIDs)+len(drafts))
	ids = append(ids, col.CardIDs...)

	for i, d := range drafts {
		id := newCardID(cards, fmt.Sprintf("card-%d-%d", now.UnixMilli(), i))
		cards[id] = Card{
			ID:          id,
			Title:       strings.TrimSpace(d.Title),
			Description: d.Description,
			Priority:    CoercePriority(d.Priority),
			Tag:         CoerceTag(d.Tag),
			DueDate:     d.DueDate,
			CreatedAt:   stamp,
			MovedTo:     map[string]string{columnID: stamp},
		}
		ids = append(ids, id)
	}

	cols := cloneColumns(b.Columns)
	cols[columnID] = Column{ID: col.ID, Title: col.Title, CardIDs: ids}

	return Board{Columns: cols, Cards: cards, ColumnOrder: b.ColumnOrder}, nil
}
