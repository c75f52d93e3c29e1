package domain

import "strings"

// Query selects cards for the filtered board projection. Zero values mean
// "no constraint": an empty Text matches every card, an empty Priority or
// Tag disables that filter.
type Query struct {
	Text     string
	Priority Priority
	Tag      Tag
}

// IsZero reports whether the query has no constraints at all.
func (q Query) IsZero() bool {
	return q.Text == "" && q.Priority == "" && q.Tag == ""
}

func (q Query) matches(c Card) bool {
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(c.Title), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			return false
		}
	}
	if q.Priority != "" && c.Priority != q.Priority {
		return false
	}
	if q.Tag != "" && c.Tag != q.Tag {
		return false
	}
	return true
}

// Filter derives a read-only projection of the board: each column keeps
// only the card ids whose card matches the query. Columns, column order
// and the underlying card map are preserved untouched; a card filtered out
// of every column still exists in Cards. Ids that do not resolve to a card
// are treated as non-matching rather than as an error.
func Filter(b Board, q Query) Board {
	if q.IsZero() {
		return b
	}
	cols := make(map[string]Column, len(b.Columns))
	for _, colID := range b.ColumnOrder {
		col := b.Columns[colID]
		kept := make([]string, 0, len(col.CardIDs))
		for _, cardID := range col.CardIDs {
			card, ok := b.Cards[cardID]
			if !ok {
				continue
			}
			if q.matches(card) {
				kept = append(kept, cardID)
			}
		}
		cols[colID] = Column{ID: col.ID, Title: col.Title, CardIDs: kept}
	}
	return Board{Columns: cols, Cards: b.Cards, ColumnOrder: b.ColumnOrder}
}
