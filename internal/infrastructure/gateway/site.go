package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
)

type batchRequest struct {
	Products []site.Product `json:"products"`
	Reset    bool           `json:"reset"`
}

type statusRequest struct {
	Status site.InquiryStatus `json:"status"`
}

// Health checks the server is up
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// GetDocument fetches the whole site document
func (c *Client) GetDocument(ctx context.Context) (site.Document, error) {
	doc := site.Skeleton()
	if err := c.doJSON(ctx, http.MethodGet, "/site-data", nil, &doc); err != nil {
		return site.Document{}, err
	}
	doc.Normalize()
	return doc, nil
}

// ReplaceDocument sends the whole document inline
func (c *Client) ReplaceDocument(ctx context.Context, doc site.Document) error {
	return c.doJSON(ctx, http.MethodPut, "/site-data", doc, nil)
}

// PatchSection replaces one section and returns the stored value
func (c *Client) PatchSection(ctx context.Context, section string, value any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodPatch, "/site-data/"+url.PathEscape(section), value, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadDocument sends raw document JSON as the multipart file field "file"
func (c *Client) UploadDocument(ctx context.Context, filename string, raw []byte) error {
	if filename == "" {
		filename = "site-data.json"
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("gateway: failed to create form file: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return fmt.Errorf("gateway: failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gateway: failed to close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/site-data/upload", &body, w.FormDataContentType())
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListProducts returns the products in index order
func (c *Client) ListProducts(ctx context.Context) ([]site.Product, error) {
	var out []site.Product
	if err := c.doJSON(ctx, http.MethodGet, "/site-data/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct returns one product
func (c *Client) GetProduct(ctx context.Context, id string) (site.Product, error) {
	var out site.Product
	err := c.doJSON(ctx, http.MethodGet, "/site-data/products/"+url.PathEscape(id), nil, &out)
	return out, err
}

// UpsertProduct creates or replaces a product
func (c *Client) UpsertProduct(ctx context.Context, p site.Product) (site.Product, error) {
	var out site.Product
	err := c.doJSON(ctx, http.MethodPost, "/site-data/products", p, &out)
	return out, err
}

// PatchProduct merges patch into the stored product
func (c *Client) PatchProduct(ctx context.Context, id string, patch any) (site.Product, error) {
	var out site.Product
	err := c.doJSON(ctx, http.MethodPatch, "/site-data/products/"+url.PathEscape(id), patch, &out)
	return out, err
}

// DeleteProduct removes a product
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/site-data/products/"+url.PathEscape(id), nil, nil)
}

// BatchUpsertProducts upserts a batch of products. With reset the batch becomes the whole catalog.
func (c *Client) BatchUpsertProducts(ctx context.Context, products []site.Product, reset bool) (sitedata.BatchResult, error) {
	var out sitedata.BatchResult
	err := c.doJSON(ctx, http.MethodPost, "/site-data/products/batch", batchRequest{Products: products, Reset: reset}, &out)
	return out, err
}

// ListInquiries returns inquiries newest first
func (c *Client) ListInquiries(ctx context.Context) ([]site.Inquiry, error) {
	var out []site.Inquiry
	if err := c.doJSON(ctx, http.MethodGet, "/inquiries", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []site.Inquiry{}
	}
	return out, nil
}

// CreateInquiry submits an inquiry; the server assigns id and createdAt
func (c *Client) CreateInquiry(ctx context.Context, in site.InquiryInput) (site.Inquiry, error) {
	var out site.Inquiry
	err := c.doJSON(ctx, http.MethodPost, "/inquiries", in, &out)
	return out, err
}

// UpdateInquiryStatus changes the status of an inquiry
func (c *Client) UpdateInquiryStatus(ctx context.Context, id string, status site.InquiryStatus) (site.Inquiry, error) {
	var out site.Inquiry
	err := c.doJSON(ctx, http.MethodPatch, "/inquiries/"+url.PathEscape(id), statusRequest{Status: status}, &out)
	return out, err
}
