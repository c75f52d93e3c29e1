package api

import (
	"context"

	"kanban-api/domain"
)

// Storage abstracts persistence for handlers. Board and settings are read
// and written as whole documents; last write wins.
type Storage interface {
	LoadBoard(ctx context.Context, boardID string) (domain.Board, error)
	SaveBoard(ctx context.Context, boardID string, b domain.Board) error
	LoadSettings(ctx context.Context, boardID string) (domain.Settings, error)
	SaveSettings(ctx context.Context, boardID string, settings domain.Settings) error
}

// Extractor turns free-form text into card drafts using the configured
// provider. Failures carry an extract taxonomy kind.
type Extractor interface {
	Extract(ctx context.Context, settings domain.Settings, input string) ([]domain.Draft, error)
}
