package api

import "kanban-api/domain"

const (
	importMaxSize  = 1 << 20 // 1 MiB
	requestMaxSize = 64 * 1024
)

// POST /api/board/extract request body
type extractRequest struct {
	Text string `json:"text"`
}

// POST /api/board/extract response body
type extractResponse struct {
	Board   domain.Board `json:"board"`
	Created int          `json:"created"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
