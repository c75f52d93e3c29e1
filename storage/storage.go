package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Storage persists board and settings documents in table storage, one
// whole document per row. The board is read and written as a single
// value, which is the contract the board engine expects.
type Storage struct {
	boardTable    *aztables.Client
	settingsTable *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, boardsTable, settingsTable string) (*Storage, error) {
	clientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &clientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		boardTable:    svc.NewClient(boardsTable),
		settingsTable: svc.NewClient(settingsTable),
	}, nil
}

// documentEntity stores one JSON document per row, keyed by board id.
type documentEntity struct {
	aztables.Entity
	Document string `json:"Document"`
}

func decodeDocumentEntity(data []byte) (string, error) {
	var ent documentEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return "", err
	}
	return ent.Document, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

// LoadBoard returns the stored board for the given id. An absent row
// yields the default board (first run). A stored document that fails to
// parse or violates the board invariants is treated as corrupt: it is
// logged and replaced by the default board rather than crashing the
// caller.
func (s *Storage) LoadBoard(ctx context.Context, boardID string) (domain.Board, error) {
	ent, err := s.boardTable.GetEntity(ctx, boardID, boardID, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.DefaultBoard(), nil
		}
		return domain.Board{}, err
	}
	doc, err := decodeDocumentEntity(ent.Value)
	if err != nil {
		return domain.Board{}, err
	}

	var b domain.Board
	if err := json.Unmarshal([]byte(doc), &b); err != nil {
		log.WithFields(log.Fields{"board": boardID, "error": err}).Warn("stored board is corrupt; replacing with default")
		return domain.DefaultBoard(), nil
	}
	if err := b.Validate(); err != nil {
		log.WithFields(log.Fields{"board": boardID, "error": err}).Warn("stored board violates invariants; replacing with default")
		return domain.DefaultBoard(), nil
	}
	return b, nil
}

// SaveBoard writes the board wholesale, replacing any previous row.
func (s *Storage) SaveBoard(ctx context.Context, boardID string, b domain.Board) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return err
	}
	ent := documentEntity{
		Entity:   aztables.Entity{PartitionKey: boardID, RowKey: boardID},
		Document: string(doc),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.boardTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// LoadSettings returns the stored provider settings, or the defaults when
// absent or corrupt.
func (s *Storage) LoadSettings(ctx context.Context, boardID string) (domain.Settings, error) {
	ent, err := s.settingsTable.GetEntity(ctx, boardID, boardID, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}
	doc, err := decodeDocumentEntity(ent.Value)
	if err != nil {
		return domain.Settings{}, err
	}

	var settings domain.Settings
	if err := json.Unmarshal([]byte(doc), &settings); err != nil {
		log.WithFields(log.Fields{"board": boardID, "error": err}).Warn("stored settings are corrupt; replacing with defaults")
		return domain.DefaultSettings(), nil
	}
	if err := settings.Validate(); err != nil {
		log.WithFields(log.Fields{"board": boardID, "error": err}).Warn("stored settings are invalid; replacing with defaults")
		return domain.DefaultSettings(), nil
	}
	return settings, nil
}

// SaveSettings writes the settings wholesale.
func (s *Storage) SaveSettings(ctx context.Context, boardID string, settings domain.Settings) error {
	doc, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	ent := documentEntity{
		Entity:   aztables.Entity{PartitionKey: boardID, RowKey: boardID},
		Document: string(doc),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.settingsTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}
