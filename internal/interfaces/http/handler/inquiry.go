package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/interfaces/http/dto"
)

// InquiryHandler serves the inquiries submitted from the public site
type InquiryHandler struct {
	BaseHandler
	store *sitedata.Store
}

// NewInquiryHandler creates a new InquiryHandler
func NewInquiryHandler(store *sitedata.Store) *InquiryHandler {
	return &InquiryHandler{store: store}
}

// List returns inquiries newest first
// GET /inquiries
func (h *InquiryHandler) List(c *gin.Context) {
	inquiries, err := h.store.ListInquiries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inquiries)
}

// Create stores a new inquiry; id, createdAt and status are assigned by the server
// POST /inquiries
func (h *InquiryHandler) Create(c *gin.Context) {
	var in site.InquiryInput
	if !h.bindJSON(c, &in) {
		return
	}
	inq, err := h.store.CreateInquiry(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inq)
}

// UpdateStatus changes the status of an inquiry
// PATCH /inquiries/:id
func (h *InquiryHandler) UpdateStatus(c *gin.Context) {
	var req dto.InquiryStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	inq, err := h.store.UpdateInquiryStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inq)
}
