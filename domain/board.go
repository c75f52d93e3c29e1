package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the closed set of card priorities.
type Priority string

const (
	PriorityNone   Priority = "None"
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Priorities lists all valid priorities in display order.
var Priorities = []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CoercePriority returns p when valid and PriorityMedium otherwise.
func CoercePriority(p Priority) Priority {
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// Tag is the closed set of card tags.
type Tag string

const (
	TagBug         Tag = "Bug"
	TagFeature     Tag = "Feature"
	TagEnhancement Tag = "Enhancement"
	TagLearning    Tag = "Learning"
	TagIdea        Tag = "Idea"
)

// Tags lists all valid tags in display order.
var Tags = []Tag{TagBug, TagFeature, TagEnhancement, TagLearning, TagIdea}

// Valid reports whether t is one of the known tags.
func (t Tag) Valid() bool {
	switch t {
	case TagBug, TagFeature, TagEnhancement, TagLearning, TagIdea:
		return true
	}
	return false
}

// CoerceTag returns t when valid and TagFeature otherwise.
func CoerceTag(t Tag) Tag {
	if t.Valid() {
		return t
	}
	return TagFeature
}

// Card is a single work item on the board.
type Card struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Tag         Tag      `json:"tag"`
	// DueDate is an ISO date string or empty. Stored as-is; no calendar
	// validation happens at this layer.
	DueDate   string `json:"dueDate"`
	CreatedAt string `json:"createdAt"`
	// MovedTo maps column id to the timestamp of the most recent arrival
	// into that column, including the initial placement on creation.
	// Entries are added or overwritten, never pruned.
	MovedTo map[string]string `json:"movedTo"`
}

// Column is an ordered bucket of cards. CardIDs is the on-screen order.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	CardIDs []string `json:"cardIds"`
}

// Board is the aggregate of columns, cards and their display order. It is
// a plain value: every operation in this package takes a Board and returns
// a new one, sharing the sub-structures it did not touch.
type Board struct {
	Columns     map[string]Column `json:"columns"`
	Cards       map[string]Card   `json:"cards"`
	ColumnOrder []string          `json:"columnOrder"`
}

// Draft is an unsaved candidate card, prior to id/timestamp assignment.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Tag         Tag      `json:"tag"`
	DueDate     string   `json:"dueDate,omitempty"`
}

// Validate rejects drafts that cannot become cards: blank titles and
// values outside the closed enumerations.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Reason: "card title must not be blank"}
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown priority %q", d.Priority)}
	}
	if d.Tag != "" && !d.Tag.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown tag %q", d.Tag)}
	}
	return nil
}

// Validate checks the board invariants: every referenced card resolves,
// no card sits in two columns, and columnOrder is a permutation of the
// column keys. A stored value failing this check is treated as corrupt by
// the storage layer and replaced with the default board.
func (b Board) Validate() error {
	if b.Columns == nil || b.Cards == nil || b.ColumnOrder == nil {
		return &ValidationError{Reason: "board document is missing columns, cards or columnOrder"}
	}
	if len(b.ColumnOrder) != len(b.Columns) {
		return &ValidationError{Reason: "columnOrder does not match the set of columns"}
	}
	seenCols := make(map[string]struct{}, len(b.ColumnOrder))
	for _, colID := range b.ColumnOrder {
		if _, dup := seenCols[colID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate column %q in columnOrder", colID)}
		}
		seenCols[colID] = struct{}{}
		if _, ok := b.Columns[colID]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("columnOrder references unknown column %q", colID)}
		}
	}
	owner := make(map[string]string, len(b.Cards))
	for _, colID := range b.ColumnOrder {
		for _, cardID := range b.Columns[colID].CardIDs {
			if _, ok := b.Cards[cardID]; !ok {
				return &ValidationError{Reason: fmt.Sprintf("column %q references unknown card %q", colID, cardID)}
			}
			if prev, taken := owner[cardID]; taken {
				return &ValidationError{Reason: fmt.Sprintf("card %q appears in columns %q and %q", cardID, prev, colID)}
			}
			owner[cardID] = colID
		}
	}
	return nil
}

// columnLocation returns the column currently holding cardID, if any.
func (b Board) columnLocation(cardID string) (string, bool) {
	for colID, col := range b.Columns {
		for _, id := range col.CardIDs {
			if id == cardID {
				return colID, true
			}
		}
	}
	return "", false
}

// cloneColumns shallow-copies the column map so one entry can be replaced
// without mutating the input board.
func cloneColumns(cols map[string]Column) map[string]Column {
	out := make(map[string]Column, len(cols))
	for k, v := range cols {
		out[k] = v
	}
	return out
}

// cloneCards shallow-copies the card map.
func cloneCards(cards map[string]Card) map[string]Card {
	out := make(map[string]Card, len(cards))
	for k, v := range cards {
		out[k] = v
	}
	return out
}

// cloneMovedTo copies a card's movement history map.
func cloneMovedTo(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Timestamp renders t in the wire format used throughout the board
// document (RFC 3339 with millisecond precision, UTC).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
