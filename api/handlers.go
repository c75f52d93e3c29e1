package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/codec"
	"kanban-api/domain"
	"kanban-api/extract"
)

// Register wires up all API routes on the provided Echo instance. Every
// mutating handler follows the same load-apply-save shape: read the whole
// board, apply one pure operation, write the whole board back.
func Register(e *echo.Echo, store Storage, extractor Extractor, boardID string, logger *log.Logger) {
	e.GET("/api/board", getBoard(store, boardID))
	e.PUT("/api/board", putBoard(store, boardID))
	e.GET("/api/board/export", exportBoard(store, boardID))
	e.POST("/api/board/import/csv", importCSV(store, boardID))
	e.POST("/api/board/move", postMove(store, boardID))
	e.POST("/api/columns/:id/cards", postCard(store, boardID))
	e.PATCH("/api/cards/:id", patchCard(store, boardID))
	e.DELETE("/api/cards/:id", deleteCard(store, boardID))
	e.DELETE("/api/columns/:id/cards", clearColumn(store, boardID))
	e.POST("/api/board/extract", postExtract(store, extractor, boardID, logger))
	e.GET("/api/settings", getSettings(store, boardID))
	e.PUT("/api/settings", putSettings(store, boardID))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// writeOperationError maps domain, codec and extract failures onto HTTP
// statuses. Anything unrecognized is a 500.
func writeOperationError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Reason})
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: nf.Error()})
	}
	var fe *codec.FormatError
	if errors.As(err, &fe) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: fe.Reason})
	}
	var ee *extract.Error
	if errors.As(err, &ee) {
		return c.JSON(statusForExtractKind(ee.Kind), errorResponse{Error: ee.Message, Kind: string(ee.Kind)})
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}

func statusForExtractKind(kind extract.Kind) int {
	switch kind {
	case extract.KindAuth:
		return http.StatusUnauthorized
	case extract.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func decodeBody(c echo.Context, limit int64, v any) error {
	lr := io.LimitReader(c.Request().Body, limit)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func getBoard(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		q := domain.Query{
			Text:     c.QueryParam("q"),
			Priority: domain.Priority(c.QueryParam("priority")),
			Tag:      domain.Tag(c.QueryParam("tag")),
		}
		if q.Priority != "" && !q.Priority.Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown priority " + string(q.Priority)})
		}
		if q.Tag != "" && !q.Tag.Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown tag " + string(q.Tag)})
		}
		return c.JSON(http.StatusOK, domain.Filter(b, q))
	}
}

func putBoard(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, importMaxSize))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		b, err := codec.DecodeBoard(body)
		if err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveBoard(ctx, boardID, b); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, b)
	}
}

func exportBoard(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if strings.EqualFold(c.QueryParam("format"), "csv") {
			data, err := codec.EncodeCSV(b)
			if err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, err.Error())
			}
			c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="board.csv"`)
			return c.Blob(http.StatusOK, "text/csv", data)
		}
		data, err := codec.EncodeBoard(b)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}

func importCSV(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, importMaxSize))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		b, err := codec.DecodeCSV(body, nextNow())
		if err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveBoard(ctx, boardID, b); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, b)
	}
}

func postMove(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var intent domain.MoveIntent
		if err := decodeBody(c, requestMaxSize, &intent); err != nil {
			// A cancelled or out-of-bounds drop produces no intent; the
			// board is returned unchanged.
			if errors.Is(err, io.EOF) {
				b, loadErr := store.LoadBoard(ctx, boardID)
				if loadErr != nil {
					c.Logger().Error(loadErr)
					return c.String(http.StatusInternalServerError, loadErr.Error())
				}
				return c.JSON(http.StatusOK, b)
			}
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		next, err := domain.Move(b, intent, nextNow())
		if err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveBoard(ctx, boardID, next); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, next)
	}
}

func postCard(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var draft domain.Draft
		if err := decodeBody(c, requestMaxSize, &draft); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		next, err := domain.CreateCard(b, c.Param("id"), draft, nextNow())
		if err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveBoard(ctx, boardID, next); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, next)
	}
}

func patchCard(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var draft domain.Draft
		if err := decodeBody(c, requestMaxSize, &draft); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		next, err := domain.UpdateCard(b, c.Param("id"), draft)
		if err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveBoard(ctx, boardID, next); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, next)
	}
}

func deleteCard(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		next := domain.DeleteCard(b, c.Param("id"))
		if err := store.SaveBoard(ctx, boardID, next); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, next)
	}
}

func clearColumn(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		b, err := store.LoadBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		next, err := domain.ClearColumn(b, c.Param("id"))
		if err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveBoard(ctx, boardID, next); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, next)
	}
}

func postExtract(store Storage, extractor Extractor, boardID string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newExtractRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		var req extractRequest
		if decErr := decodeBody(c, requestMaxSize, &req); decErr != nil {
			metrics.SetErrorStage("invalid_body")
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
			return err
		}
		if strings.TrimSpace(req.Text) == "" {
			metrics.SetErrorStage("empty_text")
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: "text must not be blank"})
			return err
		}

		settingsStart := time.Now()
		settings, loadErr := store.LoadSettings(ctx, boardID)
		metrics.ObserveSettings(time.Since(settingsStart))
		if loadErr != nil {
			metrics.SetErrorStage("settings")
			c.Logger().Error(loadErr)
			err = c.String(http.StatusInternalServerError, loadErr.Error())
			return err
		}
		metrics.SetProvider(string(settings.Provider))

		providerStart := time.Now()
		drafts, exErr := extractor.Extract(ctx, settings, req.Text)
		metrics.ObserveProvider(time.Since(providerStart))
		if exErr != nil {
			metrics.SetErrorStage("provider")
			err = writeOperationError(c, exErr)
			return err
		}
		metrics.SetDraftsInserted(len(drafts))

		saveStart := time.Now()
		b, loadErr := store.LoadBoard(ctx, boardID)
		if loadErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(loadErr)
			err = c.String(http.StatusInternalServerError, loadErr.Error())
			return err
		}
		next, insErr := domain.BulkInsert(b, domain.ColumnBacklog, drafts, nextNow())
		if insErr != nil {
			metrics.SetErrorStage("insert")
			err = writeOperationError(c, insErr)
			return err
		}
		if saveErr := store.SaveBoard(ctx, boardID, next); saveErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(saveErr)
			err = c.String(http.StatusInternalServerError, saveErr.Error())
			return err
		}
		metrics.ObserveSave(time.Since(saveStart))

		err = c.JSON(http.StatusOK, extractResponse{Board: next, Created: len(drafts)})
		return err
	}
}

func getSettings(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		settings, err := store.LoadSettings(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, settings)
	}
}

func putSettings(store Storage, boardID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var settings domain.Settings
		if err := decodeBody(c, requestMaxSize, &settings); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := settings.Validate(); err != nil {
			return writeOperationError(c, err)
		}
		if err := store.SaveSettings(ctx, boardID, settings); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, settings)
	}
}
