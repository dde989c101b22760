package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/storage"
	"github.com/catalogsite/backend/internal/interfaces/http/dto"
	"github.com/catalogsite/backend/internal/interfaces/http/middleware"
)

const testBodyLimit = 256 << 10

func init() {
	gin.SetMode(gin.TestMode)
}

// MockShardBackend implements sitedata.ShardBackend for testing
type MockShardBackend struct {
	mock.Mock
}

func (m *MockShardBackend) Read(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockShardBackend) Write(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockShardBackend) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockShardBackend) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

// envelope mirrors dto.Response with the data left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

// newTestEngine mounts the handlers the way the router does, without the router package
func newTestEngine(t *testing.T, backend sitedata.ShardBackend) *gin.Engine {
	t.Helper()
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	store := sitedata.NewStore(backend,
		sitedata.WithLogger(zaptest.NewLogger(t)),
		sitedata.WithClock(func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }),
	)
	sd := NewSiteDataHandler(store)
	inq := NewInquiryHandler(store)
	limit := middleware.BodyLimit(testBodyLimit)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api")
	api.GET("/health", NewHealthHandler("memory").Health)
	api.GET("/site-data", sd.GetDocument)
	api.PUT("/site-data", limit, sd.ReplaceDocument)
	api.PATCH("/site-data/:section", limit, sd.PatchSection)
	api.POST("/site-data/upload", middleware.BodyLimit(4*testBodyLimit), sd.UploadDocument)
	api.GET("/site-data/report", sd.Report)
	api.POST("/site-data/repair", sd.Repair)
	api.GET("/site-data/products", sd.ListProducts)
	api.POST("/site-data/products", limit, sd.UpsertProduct)
	api.POST("/site-data/products/batch", limit, sd.BatchUpsertProducts)
	api.GET("/site-data/products/:id", sd.GetProduct)
	api.PATCH("/site-data/products/:id", limit, sd.PatchProduct)
	api.DELETE("/site-data/products/:id", sd.DeleteProduct)
	api.GET("/inquiries", inq.List)
	api.POST("/inquiries", limit, inq.Create)
	api.PATCH("/inquiries/:id", limit, inq.UpdateStatus)
	return engine
}

func serve(t *testing.T, engine *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(t, engine, req)
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func testProduct(id string) site.Product {
	return site.Product{
		ID:          id,
		SKU:         "SKU-" + id,
		CategoryID:  "valves",
		Name:        site.Text("en", "Ball valve "+id, "zh", "球阀 "+id),
		Description: site.Text("en", "Forged brass", "zh", "锻造黄铜"),
		Price: site.Price{
			Amount:   decimal.RequireFromString("12.5"),
			Currency: "USD",
			Unit:     site.Text("en", "piece", "zh", "个"),
			MOQ:      100,
		},
		Images: []string{"/img/" + id + ".jpg"},
	}
}
