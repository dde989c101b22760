package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/catalogsite/backend/internal/application/provider"
	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/cache"
	"github.com/catalogsite/backend/internal/infrastructure/config"
	"github.com/catalogsite/backend/internal/infrastructure/dataset"
	"github.com/catalogsite/backend/internal/infrastructure/gateway"
	"github.com/catalogsite/backend/internal/infrastructure/storage"
	"github.com/catalogsite/backend/internal/interfaces/http/handler"
	"github.com/catalogsite/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServices starts a site data API over an in-memory store seeded with the bundled
// dataset and points the console at it
func setupTestServices(t *testing.T) *gateway.Client {
	t.Helper()
	log := zaptest.NewLogger(t)

	engine, err := router.NewEngine(router.EngineConfig{Logger: log})
	require.NoError(t, err)
	store := sitedata.NewStore(storage.NewMemoryBackend(), sitedata.WithLogger(log))
	r := router.NewRouter(engine)
	for _, registrar := range router.SiteRoutes(router.SiteHandlers{
		SiteData: handler.NewSiteDataHandler(store),
		Inquiry:  handler.NewInquiryHandler(store),
		Health:   handler.NewHealthHandler(config.StorageDriverMemory),
	}, router.BodyLimits{JSON: 8 << 20, Upload: 8 << 20}) {
		r.Register(registrar)
	}
	r.Setup()

	srv := httptest.NewServer(engine)
	client := gateway.New(srv.URL+"/api", gateway.WithLogger(log))
	require.NoError(t, client.ReplaceDocument(context.Background(), dataset.Default()))

	useServices(t, client)
	t.Cleanup(srv.Close)
	return client
}

// useServices injects a provider over client and a fresh memory cache
func useServices(t *testing.T, client *gateway.Client) {
	t.Helper()
	local := cache.New(cache.NewMemoryStore())
	SetServices(provider.New(client, local, dataset.Default, zaptest.NewLogger(t)), client)
	t.Cleanup(func() { SetServices(nil, nil) })
}

// executeCommand runs the root command with args and returns everything it printed
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	exportOutput = ""
	inquiryInput = site.InquiryInput{}
	inquiryQuantity = 0

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
