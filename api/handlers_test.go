package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"kanban-api/domain"
	"kanban-api/extract"
)

const testBoardID = "board-1"

type stubStore struct {
	board         domain.Board
	settings      domain.Settings
	loadBoardErr  error
	saveBoardErr  error
	savedBoard    *domain.Board
	savedSettings *domain.Settings
}

func (s *stubStore) LoadBoard(ctx context.Context, boardID string) (domain.Board, error) {
	if s.loadBoardErr != nil {
		return domain.Board{}, s.loadBoardErr
	}
	return s.board, nil
}

func (s *stubStore) SaveBoard(ctx context.Context, boardID string, b domain.Board) error {
	if s.saveBoardErr != nil {
		return s.saveBoardErr
	}
	s.savedBoard = &b
	return nil
}

func (s *stubStore) LoadSettings(ctx context.Context, boardID string) (domain.Settings, error) {
	return s.settings, nil
}

func (s *stubStore) SaveSettings(ctx context.Context, boardID string, settings domain.Settings) error {
	s.savedSettings = &settings
	return nil
}

type stubExtractor struct {
	drafts []domain.Draft
	err    error
	input  string
}

func (s *stubExtractor) Extract(ctx context.Context, settings domain.Settings, input string) ([]domain.Draft, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.drafts, nil
}

func seededBoard() domain.Board {
	b := domain.DefaultBoard()
	b.Cards["card-1"] = domain.Card{
		ID: "card-1", Title: "Fix login", Description: "Button broken",
		Priority: domain.PriorityHigh, Tag: domain.TagBug,
		CreatedAt: "2025-01-01T00:00:00.000Z",
		MovedTo:   map[string]string{domain.ColumnBacklog: "2025-01-01T00:00:00.000Z"},
	}
	b.Cards["card-2"] = domain.Card{
		ID: "card-2", Title: "Write docs",
		Priority: domain.PriorityLow, Tag: domain.TagFeature,
		CreatedAt: "2025-01-02T00:00:00.000Z",
		MovedTo:   map[string]string{domain.ColumnBacklog: "2025-01-02T00:00:00.000Z"},
	}
	b.Columns[domain.ColumnBacklog] = domain.Column{
		ID: domain.ColumnBacklog, Title: "Backlog", CardIDs: []string{"card-1", "card-2"},
	}
	return b
}

func newTestServer(t *testing.T, store Storage, extractor Extractor) *echo.Echo {
	t.Helper()
	e := echo.New()
	logger, _ := test.NewNullLogger()
	Register(e, store, extractor, testBoardID, logger)
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBoard(t *testing.T, body []byte) domain.Board {
	t.Helper()
	var b domain.Board
	if err := json.Unmarshal(body, &b); err != nil {
		t.Fatalf("decode board response: %v", err)
	}
	return b
}

func TestGetBoardReturnsStoredBoard(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodGet, "/api/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	b := decodeBoard(t, rec.Body.Bytes())
	if len(b.Cards) != 2 || len(b.Columns) != 4 {
		t.Fatalf("unexpected board: %#v", b)
	}
}

func TestGetBoardAppliesFilterParams(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodGet, "/api/board?tag=Bug", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	b := decodeBoard(t, rec.Body.Bytes())
	backlog := b.Columns[domain.ColumnBacklog]
	if len(backlog.CardIDs) != 1 || backlog.CardIDs[0] != "card-1" {
		t.Fatalf("unexpected filtered backlog: %#v", backlog.CardIDs)
	}
}

func TestGetBoardRejectsUnknownPriority(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodGet, "/api/board?priority=Critical", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestPutBoardReplacesWholesale(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	doc, err := json.Marshal(domain.DefaultBoard())
	if err != nil {
		t.Fatalf("marshal board: %v", err)
	}
	rec := doRequest(e, http.MethodPut, "/api/board", string(doc))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	if store.savedBoard == nil || len(store.savedBoard.Cards) != 0 {
		t.Fatalf("board not replaced: %#v", store.savedBoard)
	}
}

func TestPutBoardRejectsMalformedDocument(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPut, "/api/board", `{"columns":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if store.savedBoard != nil {
		t.Fatalf("malformed import must not be saved")
	}
}

func TestPostMoveCrossColumnStampsAndSaves(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	intent := `{"sourceColumnId":"backlog","sourceIndex":0,"destColumnId":"todo","destIndex":0,"cardId":"card-1"}`
	rec := doRequest(e, http.MethodPost, "/api/board/move", intent)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	if store.savedBoard == nil {
		t.Fatalf("move not saved")
	}
	todo := store.savedBoard.Columns[domain.ColumnTodo]
	if len(todo.CardIDs) != 1 || todo.CardIDs[0] != "card-1" {
		t.Fatalf("card not transferred: %#v", todo.CardIDs)
	}
	if store.savedBoard.Cards["card-1"].MovedTo[domain.ColumnTodo] == "" {
		t.Fatalf("movedTo not stamped for destination")
	}
}

func TestPostMoveMissingIntentIsNoOp(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPost, "/api/board/move", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if store.savedBoard != nil {
		t.Fatalf("no-op move must not write")
	}
}

func TestPostMoveUnknownColumnIs404(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	intent := `{"sourceColumnId":"nope","sourceIndex":0,"destColumnId":"todo","destIndex":0,"cardId":"card-1"}`
	rec := doRequest(e, http.MethodPost, "/api/board/move", intent)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestPostCardCreatesInColumn(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPost, "/api/columns/todo/cards", `{"title":"New card","priority":"High","tag":"Bug"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	if store.savedBoard == nil {
		t.Fatalf("create not saved")
	}
	todo := store.savedBoard.Columns[domain.ColumnTodo]
	if len(todo.CardIDs) != 1 {
		t.Fatalf("card not placed in column: %#v", todo.CardIDs)
	}
	created := store.savedBoard.Cards[todo.CardIDs[0]]
	if created.Title != "New card" || created.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected created card: %#v", created)
	}
}

func TestPostCardBlankTitleIs400(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPost, "/api/columns/todo/cards", `{"title":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if store.savedBoard != nil {
		t.Fatalf("invalid create must not write")
	}
}

func TestPatchCardUnknownIDIs404(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPatch, "/api/cards/ghost", `{"title":"Renamed"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestPatchCardUpdatesContentFields(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPatch, "/api/cards/card-1", `{"title":"Renamed","priority":"Low","tag":"Idea"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	updated := store.savedBoard.Cards["card-1"]
	if updated.Title != "Renamed" || updated.Priority != domain.PriorityLow {
		t.Fatalf("unexpected updated card: %#v", updated)
	}
	if updated.CreatedAt != "2025-01-01T00:00:00.000Z" {
		t.Fatalf("createdAt must be preserved: %s", updated.CreatedAt)
	}
}

func TestDeleteCardRemovesEverywhere(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodDelete, "/api/cards/card-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if _, ok := store.savedBoard.Cards["card-1"]; ok {
		t.Fatalf("card record not deleted")
	}
	for _, id := range store.savedBoard.Columns[domain.ColumnBacklog].CardIDs {
		if id == "card-1" {
			t.Fatalf("card id still referenced")
		}
	}
}

func TestClearColumnDeletesItsCards(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodDelete, "/api/columns/backlog/cards", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(store.savedBoard.Columns[domain.ColumnBacklog].CardIDs) != 0 {
		t.Fatalf("column not cleared")
	}
	if len(store.savedBoard.Cards) != 0 {
		t.Fatalf("cleared cards still present: %#v", store.savedBoard.Cards)
	}
}

func TestClearUnknownColumnIs404(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodDelete, "/api/columns/ghost/cards", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestExportBoardCSV(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodGet, "/api/board/export?format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "ID,Title,Description,Priority,Tag,Due Date") {
		t.Fatalf("missing csv header: %s", rec.Body.String())
	}
}

func TestImportCSVRebuildsIntoBacklog(t *testing.T) {
	store := &stubStore{board: seededBoard()}
	e := newTestServer(t, store, &stubExtractor{})

	csv := "ID,Title,Description,Priority,Tag,Due Date\nc1,Imported,,High,Bug,\n"
	rec := doRequest(e, http.MethodPost, "/api/board/import/csv", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	saved := store.savedBoard
	if saved == nil {
		t.Fatalf("import not saved")
	}
	backlog := saved.Columns[domain.ColumnBacklog]
	if len(backlog.CardIDs) != 1 || backlog.CardIDs[0] != "c1" {
		t.Fatalf("imported card not in backlog: %#v", backlog.CardIDs)
	}
}

func TestPostExtractInsertsIntoBacklog(t *testing.T) {
	store := &stubStore{board: seededBoard(), settings: domain.DefaultSettings()}
	extractor := &stubExtractor{drafts: []domain.Draft{
		{Title: "From text", Priority: domain.PriorityMedium, Tag: domain.TagFeature},
		{Title: "Also from text", Priority: domain.PriorityHigh, Tag: domain.TagBug},
	}}
	e := newTestServer(t, store, extractor)

	rec := doRequest(e, http.MethodPost, "/api/board/extract", `{"text":"do two things"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	if extractor.input != "do two things" {
		t.Fatalf("extractor received %q", extractor.input)
	}
	var resp extractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Created != 2 {
		t.Fatalf("unexpected created count: %d", resp.Created)
	}
	backlog := store.savedBoard.Columns[domain.ColumnBacklog]
	if len(backlog.CardIDs) != 4 {
		t.Fatalf("drafts not appended to backlog: %#v", backlog.CardIDs)
	}
}

func TestPostExtractBlankTextIs400(t *testing.T) {
	store := &stubStore{board: seededBoard(), settings: domain.DefaultSettings()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPost, "/api/board/extract", `{"text":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestPostExtractMapsTaxonomyToStatuses(t *testing.T) {
	cases := []struct {
		kind extract.Kind
		want int
	}{
		{extract.KindAuth, http.StatusUnauthorized},
		{extract.KindModel, http.StatusBadRequest},
		{extract.KindParse, http.StatusBadRequest},
		{extract.KindEmpty, http.StatusBadRequest},
		{extract.KindTransport, http.StatusBadGateway},
	}
	for _, tc := range cases {
		store := &stubStore{board: seededBoard(), settings: domain.DefaultSettings()}
		extractor := &stubExtractor{err: &extract.Error{Kind: tc.kind, Message: "nope"}}
		e := newTestServer(t, store, extractor)

		rec := doRequest(e, http.MethodPost, "/api/board/extract", `{"text":"stuff"}`)
		if rec.Code != tc.want {
			t.Fatalf("kind %s: got status %d want %d", tc.kind, rec.Code, tc.want)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if resp.Kind != string(tc.kind) {
			t.Fatalf("kind %s: body kind %q", tc.kind, resp.Kind)
		}
		if store.savedBoard != nil {
			t.Fatalf("kind %s: failed extraction must not touch the board", tc.kind)
		}
	}
}

func TestPostExtractStorageFailureIs500(t *testing.T) {
	store := &stubStore{board: seededBoard(), settings: domain.DefaultSettings(), loadBoardErr: errors.New("table down")}
	extractor := &stubExtractor{drafts: []domain.Draft{{Title: "x", Priority: domain.PriorityMedium, Tag: domain.TagFeature}}}
	e := newTestServer(t, store, extractor)

	rec := doRequest(e, http.MethodPost, "/api/board/extract", `{"text":"stuff"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := &stubStore{settings: domain.DefaultSettings()}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	body := `{"provider":"zhipu","providerSettings":{"zhipu":{"apiKey":"k","model":"glm-4.7"}}}`
	rec = doRequest(e, http.MethodPut, "/api/settings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	if store.savedSettings == nil || store.savedSettings.Provider != domain.ProviderZhipu {
		t.Fatalf("settings not saved: %#v", store.savedSettings)
	}
}

func TestPutSettingsUnknownProviderIs400(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store, &stubExtractor{})

	rec := doRequest(e, http.MethodPut, "/api/settings", `{"provider":"openai","providerSettings":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if store.savedSettings != nil {
		t.Fatalf("invalid settings must not be saved")
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &stubStore{}, &stubExtractor{})
	rec := doRequest(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
