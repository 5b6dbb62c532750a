package travel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestWatcher(t *testing.T) (string, *CatalogStore, *CatalogWatcher, *metrics.Metrics) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o644))

	store := NewCatalogStore(DefaultCatalog())
	m := metrics.NewMetrics()
	w, err := NewCatalogWatcher(CatalogWatcherConfig{
		Path:               path,
		Store:              store,
		Metrics:            m,
		Logger:             zerolog.Nop(),
		StabilityThreshold: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	return path, store, w, m
}

func TestNewCatalogWatcher(t *testing.T) {
	t.Run("should require a path", func(t *testing.T) {
		_, err := NewCatalogWatcher(CatalogWatcherConfig{Store: NewCatalogStore(DefaultCatalog())})
		assert.EqualError(t, err, "catalog path is required")
	})

	t.Run("should require a store", func(t *testing.T) {
		_, err := NewCatalogWatcher(CatalogWatcherConfig{Path: "catalog.yaml"})
		assert.EqualError(t, err, "catalog store is required")
	})
}

func TestCatalogWatcherReload(t *testing.T) {
	t.Run("should swap in a valid catalog", func(t *testing.T) {
		path, store, w, m := setupTestWatcher(t)
		updated := strings.Replace(string(defaultCatalog), "Miami: sunny 30°C", "Miami: stormy 25°C", 1)
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

		require.NoError(t, w.Reload())
		assert.Equal(t, "stormy 25°C", store.Get().Forecast("Miami"))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogReloadsTotal.WithLabelValues("success")))
	})

	t.Run("should keep the previous catalog when the file is invalid", func(t *testing.T) {
		path, store, w, m := setupTestWatcher(t)
		before := store.Get()
		require.NoError(t, os.WriteFile(path, []byte("flights: ["), 0o644))

		assert.Error(t, w.Reload())
		assert.Same(t, before, store.Get())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogReloadsTotal.WithLabelValues("error")))
	})
}

func TestCatalogWatcherEvents(t *testing.T) {
	t.Run("should reload after the file changes", func(t *testing.T) {
		path, store, w, _ := setupTestWatcher(t)
		require.NoError(t, w.Start())

		updated := strings.Replace(string(defaultCatalog), "Paris: rainy 14°C", "Paris: sunny 25°C", 1)
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

		assert.Eventually(t, func() bool {
			return store.Get().Forecast("Paris") == "sunny 25°C"
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("should ignore other files in the directory", func(t *testing.T) {
		path, store, w, _ := setupTestWatcher(t)
		before := store.Get()
		require.NoError(t, w.Start())

		other := filepath.Join(filepath.Dir(path), "notes.txt")
		require.NoError(t, os.WriteFile(other, []byte("hello"), 0o644))

		time.Sleep(100 * time.Millisecond)
		assert.Same(t, before, store.Get())
	})
}
