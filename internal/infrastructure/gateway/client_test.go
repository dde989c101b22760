package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]any{"code": code, "message": message},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/api", WithTimeout(5*time.Second))
}

func TestClient_Unconfigured(t *testing.T) {
	c := New("")
	assert.False(t, c.Configured())
	ctx := context.Background()

	_, err := c.GetDocument(ctx)
	assert.ErrorIs(t, err, shared.ErrConfiguration)
	assert.ErrorIs(t, c.ReplaceDocument(ctx, site.Skeleton()), shared.ErrConfiguration)
	assert.ErrorIs(t, c.UploadDocument(ctx, "", []byte("{}")), shared.ErrConfiguration)
	_, err = c.ListInquiries(ctx)
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"payload too large", http.StatusRequestEntityTooLarge, shared.ErrPayloadTooLarge},
		{"not found", http.StatusNotFound, shared.ErrNotFound},
		{"validation", http.StatusBadRequest, shared.ErrValidation},
		{"server error", http.StatusInternalServerError, shared.ErrNetwork},
		{"bad gateway", http.StatusBadGateway, shared.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status, "ERR_X", "server says no")
			})
			err := c.ReplaceDocument(context.Background(), site.Skeleton())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Contains(t, err.Error(), "server says no")
		})
	}

	t.Run("non-envelope error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		})
		err := c.Health(context.Background())
		assert.ErrorIs(t, err, shared.ErrNetwork)
		assert.Equal(t, http.StatusGatewayTimeout, StatusCode(err))
	})

	t.Run("validation details are kept", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"error":{"code":"ERR_VALIDATION","message":"invalid product",`+
				`"details":[{"field":"name","message":"This field is required"}]}}`)
		})
		_, err := c.UpsertProduct(context.Background(), site.Product{ID: "p1"})
		require.ErrorIs(t, err, shared.ErrValidation)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "ERR_VALIDATION", se.Code)
		assert.Equal(t, []site.FieldViolation{{Field: "name", Message: "This field is required"}}, se.Details)
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		err := New(url).Health(context.Background())
		assert.ErrorIs(t, err, shared.ErrNetwork)
		assert.Equal(t, 0, StatusCode(err))
	})
}

func TestClient_GetDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/site-data", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]any{
			"settings": map[string]any{"name": map[string]string{"en": "Acme"}},
		})
	})

	doc, err := c.GetDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", doc.Settings.Name["en"])
	// Missing locales are filled in.
	assert.Contains(t, doc.Settings.Name, "zh")
	assert.NotNil(t, doc.Products)
}

func TestClient_PatchSection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/site-data/contact", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, http.StatusOK, body)
	})

	out, err := c.PatchSection(context.Background(), "contact", map[string]string{"phone": "+1 555"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"+1 555"}`, string(out))
}

func TestClient_UploadDocument(t *testing.T) {
	var received []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/site-data/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "backup.json", header.Filename)
		received, _ = io.ReadAll(file)
		writeEnvelope(w, http.StatusOK, nil)
	})

	require.NoError(t, c.UploadDocument(context.Background(), "backup.json", []byte(`{"hero":{}}`)))
	assert.Equal(t, `{"hero":{}}`, string(received))
}

func TestClient_Products(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert posts the product", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/site-data/products", r.URL.Path)
			var p site.Product
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			writeEnvelope(w, http.StatusCreated, p)
		})
		out, err := c.UpsertProduct(ctx, site.Product{ID: "valve-01"})
		require.NoError(t, err)
		assert.Equal(t, "valve-01", out.ID)
	})

	t.Run("ids are path escaped", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/site-data/products/a%2Fb", r.URL.EscapedPath())
			writeError(w, http.StatusNotFound, "ERR_NOT_FOUND", "product not found")
		})
		_, err := c.GetProduct(ctx, "a/b")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/site-data/products/valve-01", r.URL.Path)
			writeEnvelope(w, http.StatusOK, nil)
		})
		require.NoError(t, c.DeleteProduct(ctx, "valve-01"))
	})

	t.Run("batch", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/site-data/products/batch", r.URL.Path)
			var req batchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.Reset)
			assert.Len(t, req.Products, 2)
			writeEnvelope(w, http.StatusOK, sitedata.BatchResult{Upserted: 2, Deleted: 1, IDs: []string{"a", "b"}})
		})
		res, err := c.BatchUpsertProducts(ctx, []site.Product{{ID: "a"}, {ID: "b"}}, true)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Upserted)
		assert.Equal(t, 1, res.Deleted)
	})
}

func TestClient_Inquiries(t *testing.T) {
	ctx := context.Background()

	t.Run("create returns server id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var in site.InquiryInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			inq, err := site.NewInquiry(in, time.Now())
			require.NoError(t, err)
			inq.ID = "server-id"
			writeEnvelope(w, http.StatusCreated, inq)
		})
		inq, err := c.CreateInquiry(ctx, site.InquiryInput{Name: "A", Email: "a@x.com", Message: "hello!"})
		require.NoError(t, err)
		assert.Equal(t, "server-id", inq.ID)
		assert.Equal(t, site.InquiryStatusNew, inq.Status)
	})

	t.Run("empty list is non-nil", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, nil)
		})
		list, err := c.ListInquiries(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("status update", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/api/inquiries/abc", r.URL.Path)
			var body statusRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, site.InquiryStatusClosed, body.Status)
			writeEnvelope(w, http.StatusOK, site.Inquiry{ID: "abc", Status: body.Status})
		})
		inq, err := c.UpdateInquiryStatus(ctx, "abc", site.InquiryStatusClosed)
		require.NoError(t, err)
		assert.Equal(t, site.InquiryStatusClosed, inq.Status)
	})
}
