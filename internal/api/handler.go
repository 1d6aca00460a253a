// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/reader-provisioner/internal/generate"
	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/record"
	"github.com/tamzrod/reader-provisioner/internal/registry"
)

// Store is the registry surface the handlers use.
type Store interface {
	List(ctx context.Context) ([]registry.ReaderConfig, error)
	Resolve(ctx context.Context, index int) (record.Identity, bool, error)
	Upsert(ctx context.Context, index int, readerID, portal string) (registry.ReaderConfig, error)
	Update(ctx context.Context, index int, p registry.Patch) (registry.ReaderConfig, error)
	Delete(ctx context.Context, index int) error
}

// Notifier is told about every registry change.
type Notifier interface {
	ReaderAssigned(ctx context.Context, id record.Identity) error
	ReaderRemoved(ctx context.Context, index int) error
}

// HeaderRenderer renders the reader header for an identity.
type HeaderRenderer func(id record.Identity) []byte

type ReaderConfigHandler struct {
	store     Store
	notifiers []Notifier
	render    HeaderRenderer
	log       *logger.Logger
}

func NewReaderConfigHandler(store Store, render HeaderRenderer, logg *logger.Logger, notifiers ...Notifier) *ReaderConfigHandler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &ReaderConfigHandler{
		store:     store,
		notifiers: notifiers,
		render:    render,
		log:       logg.With("handler", "ReaderConfigHandler"),
	}
}

type identityResponse struct {
	ReaderID string `json:"readerID"`
	Portal   string `json:"portal"`
}

type upsertRequest struct {
	RIndex   indexField `json:"r_index"`
	ReaderID string     `json:"reader_id"`
	Portal   string     `json:"portal"`
}

// indexField accepts r_index as a JSON number or a numeric string ("3").
// Anything that is not a non-negative integer leaves it invalid.
type indexField struct {
	value int
	valid bool
}

func (f *indexField) UnmarshalJSON(b []byte) error {
	*f = indexField{}

	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
		return nil
	}
	f.value, f.valid = int(v), true
	return nil
}

// GET /api/reader-config/:rIndex
// Unknown indices get the fallback identity, never 404.
func (h *ReaderConfigHandler) Get(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}

	id, _, err := h.store.Resolve(c.Request.Context(), idx)
	if err != nil {
		h.serverError(c, "reader-config get", err)
		return
	}
	c.JSON(http.StatusOK, identityResponse{ReaderID: id.ReaderID, Portal: id.Portal})
}

// GET /api/reader-config
func (h *ReaderConfigHandler) List(c *gin.Context) {
	rows, err := h.store.List(c.Request.Context())
	if err != nil {
		h.serverError(c, "reader-config list", err)
		return
	}
	if rows == nil {
		rows = []registry.ReaderConfig{}
	}
	c.JSON(http.StatusOK, rows)
}

// POST /api/reader-config
func (h *ReaderConfigHandler) Upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !req.RIndex.valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid r_index"})
		return
	}

	row, err := h.store.Upsert(c.Request.Context(), req.RIndex.value, req.ReaderID, req.Portal)
	if errors.Is(err, registry.ErrInvalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reader_id and portal are required"})
		return
	}
	if err != nil {
		h.serverError(c, "reader-config upsert", err)
		return
	}

	h.assigned(c.Request.Context(), row.Identity())
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": row})
}

// PUT /api/reader-config/:rIndex
func (h *ReaderConfigHandler) Update(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}

	var patch registry.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	row, err := h.store.Update(c.Request.Context(), idx, patch)
	switch {
	case errors.Is(err, registry.ErrNothingToUpdate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case err != nil:
		h.serverError(c, "reader-config update", err)
		return
	}

	h.assigned(c.Request.Context(), row.Identity())
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": row})
}

// DELETE /api/reader-config/:rIndex
func (h *ReaderConfigHandler) Delete(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), idx); err != nil {
		h.serverError(c, "reader-config delete", err)
		return
	}

	for _, n := range h.notifiers {
		if err := n.ReaderRemoved(c.Request.Context(), idx); err != nil {
			h.log.Warn("reader removal not propagated", "r_index", idx, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/reader-config/:rIndex/header
// Renders the header a reader at this index should be flashed with.
func (h *ReaderConfigHandler) Header(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	if h.render == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "header rendering disabled"})
		return
	}

	id, _, err := h.store.Resolve(c.Request.Context(), idx)
	if err != nil {
		h.serverError(c, "reader-config header", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+generate.ReaderHeaderName(idx)+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", h.render(id))
}

// ---- helpers ----

func (h *ReaderConfigHandler) assigned(ctx context.Context, id record.Identity) {
	for _, n := range h.notifiers {
		if err := n.ReaderAssigned(ctx, id); err != nil {
			h.log.Warn("reader assignment not propagated", "r_index", id.Index, "error", err)
		}
	}
}

func (h *ReaderConfigHandler) serverError(c *gin.Context, op string, err error) {
	h.log.Error(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
}

// indexParam parses :rIndex and writes the 400 response itself when it is invalid.
func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("rIndex"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rIndex"})
		return 0, false
	}
	return idx, true
}
