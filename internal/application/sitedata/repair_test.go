package sitedata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Report(t *testing.T) {
	ctx := context.Background()
	store, backend, _ := newTestStore(t)

	_, err := store.UpsertProduct(ctx, testProduct("p1"))
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, "products/index", []byte(`["p1","ghost"]`)))
	require.NoError(t, backend.Write(ctx, "products/p9", []byte(mustJSON(t, testProduct("p9")))))
	require.NoError(t, backend.Write(ctx, "inquiries/index", []byte(`["lost"]`)))
	require.NoError(t, backend.Write(ctx, "defaultLocale", []byte(`"zh"`)))
	backend.resetOps()

	report, err := store.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"inquiries/lost", "products/ghost"}, report.DanglingIDs)
	assert.Equal(t, []string{"products/p9"}, report.OrphanIDs)
	assert.Equal(t, []string{"defaultLocale"}, report.LegacyScalars)
	assert.False(t, report.Repaired)
	assert.Empty(t, backend.recorded(), "report never writes")
}

func TestStore_Repair(t *testing.T) {
	ctx := context.Background()
	store, backend, _ := newTestStore(t)

	_, err := store.UpsertProduct(ctx, testProduct("p1"))
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, "products/index", []byte(`["ghost","p1"]`)))
	require.NoError(t, backend.Write(ctx, "products/p9", []byte(mustJSON(t, testProduct("p9")))))
	require.NoError(t, backend.Write(ctx, "defaultLocale", []byte(`"\"zh\""`)))

	report, err := store.Repair(ctx)
	require.NoError(t, err)
	assert.True(t, report.Repaired)
	assert.Equal(t, []string{"products/ghost"}, report.DanglingIDs)

	assert.Equal(t, []string{"p1"}, readIndex(t, backend, "products/"))
	assert.Equal(t, "zh", readRaw(t, backend, "defaultLocale"))

	after, err := store.Report(ctx)
	require.NoError(t, err)
	assert.Empty(t, after.DanglingIDs)
	assert.Empty(t, after.LegacyScalars)
	assert.Equal(t, []string{"products/p9"}, after.OrphanIDs, "orphans are not adopted")
}

func TestStore_Repair_CleanStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	store, backend, _ := newTestStore(t)
	_, err := store.UpsertProduct(ctx, testProduct("p1"))
	require.NoError(t, err)
	backend.resetOps()

	report, err := store.Repair(ctx)
	require.NoError(t, err)
	assert.True(t, report.IsClean())
	assert.Empty(t, backend.recorded())
}
