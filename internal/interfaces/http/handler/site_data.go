package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/logger"
	"github.com/catalogsite/backend/internal/interfaces/http/dto"
	"github.com/catalogsite/backend/internal/interfaces/http/middleware"
)

// uploadField is the multipart field holding the document file
const uploadField = "file"

// SiteDataHandler serves the site document, its sections and the product catalog
type SiteDataHandler struct {
	BaseHandler
	store *sitedata.Store
}

// NewSiteDataHandler creates a new SiteDataHandler
func NewSiteDataHandler(store *sitedata.Store) *SiteDataHandler {
	return &SiteDataHandler{store: store}
}

// GetDocument returns the whole document
// GET /site-data
func (h *SiteDataHandler) GetDocument(c *gin.Context) {
	doc, report, err := h.store.GetDocument(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !report.IsClean() {
		logger.GetGinLogger(c).Warn("Site data needs repair",
			zap.Strings("dangling", report.DanglingIDs),
			zap.Strings("orphans", report.OrphanIDs),
			zap.Strings("legacy_scalars", report.LegacyScalars),
			zap.Strings("unreadable", report.UnreadableShards),
		)
	}
	h.Success(c, doc)
}

// ReplaceDocument overwrites the document with the request body
// PUT /site-data
func (h *SiteDataHandler) ReplaceDocument(c *gin.Context) {
	doc := site.Skeleton()
	if !h.bindJSON(c, &doc) {
		return
	}
	stored, err := h.store.ReplaceDocument(c.Request.Context(), doc)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stored)
}

// PatchSection replaces one section of the document
// PATCH /site-data/:section
func (h *SiteDataHandler) PatchSection(c *gin.Context) {
	raw, ok := h.readBody(c)
	if !ok {
		return
	}
	value, err := h.store.UpdateSection(c.Request.Context(), c.Param("section"), raw)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, value)
}

// UploadDocument replaces the document with an uploaded JSON file. Files in the older
// export format are upgraded before validation.
// POST /site-data/upload
func (h *SiteDataHandler) UploadDocument(c *gin.Context) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			middleware.AbortTooLarge(c)
			return
		}
		h.BadRequest(c, "multipart field \""+uploadField+"\" is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "uploaded file cannot be opened")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.bodyError(c, err)
		return
	}
	doc, err := site.UpgradeLegacy(raw)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	stored, err := h.store.ReplaceDocument(c.Request.Context(), doc)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Document uploaded",
		zap.String("filename", header.Filename),
		zap.Int64("bytes", header.Size),
		zap.Int("products", len(stored.Products)),
	)
	h.Success(c, stored)
}

// Report lists index drift and legacy encodings without changing anything
// GET /site-data/report
func (h *SiteDataHandler) Report(c *gin.Context) {
	report, err := h.store.Report(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Repair fixes dangling index entries and legacy scalar shards
// POST /site-data/repair
func (h *SiteDataHandler) Repair(c *gin.Context) {
	report, err := h.store.Repair(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListProducts returns the catalog in index order
// GET /site-data/products
func (h *SiteDataHandler) ListProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// GetProduct returns one product
// GET /site-data/products/:id
func (h *SiteDataHandler) GetProduct(c *gin.Context) {
	p, err := h.store.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// UpsertProduct creates or replaces a product
// POST /site-data/products
func (h *SiteDataHandler) UpsertProduct(c *gin.Context) {
	var p site.Product
	if !h.bindJSON(c, &p) {
		return
	}
	stored, err := h.store.UpsertProduct(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, stored)
}

// PatchProduct merges the request body into a stored product
// PATCH /site-data/products/:id
func (h *SiteDataHandler) PatchProduct(c *gin.Context) {
	raw, ok := h.readBody(c)
	if !ok {
		return
	}
	stored, err := h.store.PatchProduct(c.Request.Context(), c.Param("id"), json.RawMessage(raw))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stored)
}

// DeleteProduct removes a product and its featured entry
// DELETE /site-data/products/:id
func (h *SiteDataHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteProduct(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DeletedResponse{ID: id})
}

// BatchUpsertProducts upserts a list of products; with reset the list becomes the catalog
// POST /site-data/products/batch
func (h *SiteDataHandler) BatchUpsertProducts(c *gin.Context) {
	var req dto.BatchUpsertRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.store.BatchUpsertProducts(c.Request.Context(), req.Products, req.Reset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
