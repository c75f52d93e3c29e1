package codec

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strings"
	"time"

	"kanban-api/domain"
)

// csvHeader is the fixed tabular header. Column membership is not part of
// the tabular shape; the format is deliberately lossy.
var csvHeader = []string{"ID", "Title", "Description", "Priority", "Tag", "Due Date"}

// EncodeCSV flattens the board to one row per card. Rows follow the board
// order (columns left to right, cards top to bottom); cards not referenced
// by any column are appended last in id order so the export still covers
// every card.
func EncodeCSV(b domain.Board) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	written := make(map[string]bool, len(b.Cards))
	writeCard := func(c domain.Card) error {
		return w.Write([]string{c.ID, c.Title, c.Description, string(c.Priority), string(c.Tag), c.DueDate})
	}

	for _, colID := range b.ColumnOrder {
		for _, cardID := range b.Columns[colID].CardIDs {
			card, ok := b.Cards[cardID]
			if !ok {
				continue
			}
			if err := writeCard(card); err != nil {
				return nil, err
			}
			written[cardID] = true
		}
	}

	rest := make([]string, 0)
	for id := range b.Cards {
		if !written[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		if err := writeCard(b.Cards[id]); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// DecodeCSV parses tabular rows into a fresh board. The tabular shape
// carries no column membership, so the standard four-column skeleton is
// recreated and every imported card lands in backlog, stamped with the
// import time. Like structured import, the result replaces the board
// wholesale.
func DecodeCSV(data []byte, now time.Time) (domain.Board, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return domain.Board{}, &FormatError{Reason: "not a valid CSV document: " + err.Error()}
	}
	if len(records) == 0 || len(records[0]) < len(csvHeader) || !strings.EqualFold(records[0][0], "ID") {
		return domain.Board{}, &FormatError{Reason: "missing tabular header ID,Title,Description,Priority,Tag,Due Date"}
	}

	b := domain.DefaultBoard()
	stamp := domain.Timestamp(now)
	backlog := b.Columns[domain.ColumnBacklog]

	for _, rec := range records[1:] {
		// Short rows are skipped, matching the original importer.
		if len(rec) < len(csvHeader) {
			continue
		}
		id := strings.TrimSpace(rec[0])
		if id == "" {
			continue
		}
		if _, dup := b.Cards[id]; dup {
			continue
		}
		b.Cards[id] = domain.Card{
			ID:          id,
			Title:       rec[1],
			Description: rec[2],
			Priority:    domain.CoercePriority(domain.Priority(rec[3])),
			Tag:         domain.CoerceTag(domain.Tag(rec[4])),
			DueDate:     rec[5],
			CreatedAt:   stamp,
			MovedTo:     map[string]string{domain.ColumnBacklog: stamp},
		}
		backlog.CardIDs = append(backlog.CardIDs, id)
	}
	b.Columns[domain.ColumnBacklog] = backlog

	return b, nil
}
