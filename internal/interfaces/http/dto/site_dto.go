package dto

import "github.com/catalogsite/backend/internal/domain/site"

// BatchUpsertRequest is the body of POST /site-data/products/batch
type BatchUpsertRequest struct {
	Products []site.Product `json:"products"`
	// Reset makes the batch the whole catalog: ids not in it are deleted
	Reset bool `json:"reset"`
}

// InquiryStatusRequest is the body of PATCH /inquiries/:id
type InquiryStatusRequest struct {
	Status site.InquiryStatus `json:"status" binding:"required"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// DeletedResponse is the body of a successful delete
type DeletedResponse struct {
	ID string `json:"id"`
}
