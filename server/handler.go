// Package server exposes the table pipeline over HTTP with gin.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"report-tables/extract"
	"report-tables/models"
	"report-tables/services"
	"report-tables/storage"
	"report-tables/utils"
)

const (
	previewRows      = 20
	noSeriesMessage  = "No visualizable series. Try a different table."
	noTablesGuidance = "No tables found. Scanned PDFs need OCR before upload."
)

// ExtractorFactory picks the extractor for one upload by its file name.
// password may be empty.
type ExtractorFactory func(filename, password string) extract.Extractor

type TableHandler struct {
	newExtractor ExtractorFactory
	cache        *extract.Cache
	selector     *services.Selector
	insights     *services.InsightService
	logger       *utils.Logger
}

func NewTableHandler(factory ExtractorFactory, cache *extract.Cache, selector *services.Selector,
	insights *services.InsightService, logger *utils.Logger) *TableHandler {
	return &TableHandler{
		newExtractor: factory,
		cache:        cache,
		selector:     selector,
		insights:     insights,
		logger:       logger,
	}
}

type upload struct {
	name   string
	tables []models.RawTable
	sel    *models.Selection
}

// Select handles POST /api/v1/tables/select
func (h *TableHandler) Select(c *gin.Context) {
	up, ok := h.process(c)
	if !ok {
		return
	}

	resp := SelectResponse{
		RunID:    uuid.NewString(),
		Source:   up.name,
		Chosen:   up.sel.Index + 1,
		Found:    up.sel.Found,
		Long:     up.sel.Long,
		Insights: h.insights.Generate(up.name, up.sel.Page, up.sel.Long),
	}
	if !up.sel.Found {
		resp.Message = noSeriesMessage
	}
	for i, t := range up.tables {
		rows, cols := t.Shape()
		resp.Candidates = append(resp.Candidates, Candidate{
			Number: i + 1, Page: t.Page, Rows: rows, Cols: cols, Label: t.Label(i),
		})
	}
	resp.Clean = CleanPreview{Columns: up.sel.Clean.Columns, Rows: up.sel.Clean.Rows, TotalRows: len(up.sel.Clean.Rows)}
	if len(resp.Clean.Rows) > previewRows {
		resp.Clean.Rows = resp.Clean.Rows[:previewRows]
	}

	c.JSON(http.StatusOK, resp)
}

// Export handles POST /api/v1/tables/export?kind=long|clean&display_percent=true
func (h *TableHandler) Export(c *gin.Context) {
	kind := c.DefaultQuery("kind", "long")
	if kind != "long" && kind != "clean" {
		h.sendError(c, http.StatusBadRequest, "INVALID_KIND", "kind must be long or clean", nil)
		return
	}
	displayPercent, _ := strconv.ParseBool(c.DefaultQuery("display_percent", "false"))

	up, ok := h.process(c)
	if !ok {
		return
	}

	stem := strings.TrimSuffix(filepath.Base(up.name), filepath.Ext(up.name))
	suffix := "long"
	if kind == "clean" {
		suffix = "cleaned"
	}
	filename := fmt.Sprintf("%s_p%d_t%d_%s.csv", stem, up.sel.Page, up.sel.Index+1, suffix)

	if kind == "long" && up.sel.Long.Empty() {
		h.sendError(c, http.StatusUnprocessableEntity, "NO_SERIES", noSeriesMessage, nil)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	var err error
	if kind == "long" {
		err = storage.WriteLongCSV(c.Writer, up.sel.Long, displayPercent)
	} else {
		err = storage.WriteCleanCSV(c.Writer, up.sel.Clean)
	}
	if err != nil {
		h.logger.Error("[server] export %s: %v", up.name, err)
	}
}

// PurgeCache handles DELETE /api/v1/cache
func (h *TableHandler) PurgeCache(c *gin.Context) {
	if h.cache == nil {
		c.Status(http.StatusNoContent)
		return
	}
	n := h.cache.Len()
	h.cache.Purge()
	h.logger.Info("[server] cache purged (%d entries)", n)
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

// process reads the uploaded file, extracts candidate tables and picks one.
// On failure the error response has already been written.
func (h *TableHandler) process(c *gin.Context) (*upload, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "FILE_MISSING", "file missing", err)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "READ_FAILED", "could not read upload", err)
		return nil, false
	}

	forced := -1
	if v := c.PostForm("table"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.sendError(c, http.StatusBadRequest, "INVALID_TABLE", "table must be a positive number", nil)
			return nil, false
		}
		forced = n - 1
	}

	password := c.PostForm("password")
	var ex extract.Extractor = h.newExtractor(header.Filename, password)
	if password == "" && h.cache != nil {
		ex = extract.NewCachedExtractor(ex, h.cache, h.logger)
	}

	h.logger.Info("[server] %s: %d bytes via %s extractor", header.Filename, len(data), ex.Name())
	tables, err := ex.Extract(c.Request.Context(), data)
	if err != nil {
		h.sendError(c, http.StatusUnprocessableEntity, "EXTRACTION_FAILED", "could not extract tables", err)
		return nil, false
	}

	sel, err := h.selector.Pick(tables, forced)
	switch {
	case errors.Is(err, services.ErrNoTables):
		h.sendError(c, http.StatusUnprocessableEntity, "NO_TABLES", noTablesGuidance, nil)
		return nil, false
	case errors.Is(err, services.ErrTableIndex):
		h.sendError(c, http.StatusBadRequest, "INVALID_TABLE", err.Error(), nil)
		return nil, false
	case err != nil:
		h.sendError(c, http.StatusInternalServerError, "SELECTION_FAILED", "could not select a table", err)
		return nil, false
	}

	return &upload{name: header.Filename, tables: tables, sel: sel}, true
}

// sendError sends a structured error response
func (h *TableHandler) sendError(c *gin.Context, statusCode int, code, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
		h.logger.Warn("[server] %s - %v", message, err)
	}

	c.JSON(statusCode, ErrorResponse{
		Error:   code,
		Message: errorMsg,
		Code:    statusCode,
	})
}
