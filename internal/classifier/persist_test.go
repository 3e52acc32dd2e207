package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

func TestBundleRoundTrip(t *testing.T) {
	bundle, _ := trainedBundle(t)
	path := filepath.Join(t.TempDir(), "model.json")

	require.NoError(t, SaveBundle(bundle, path))

	loaded, err := LoadBundle(path)
	require.NoError(t, err)

	assert.Equal(t, bundle.Version, loaded.Version)
	assert.Equal(t, bundle.Labels, loaded.Labels)
	assert.Equal(t, bundle.Scaler, loaded.Scaler)
	assert.Equal(t, bundle.Accuracy, loaded.Accuracy)

	// The reloaded ensemble must score identically to the in-memory one.
	original := NewClassifier(bundle)
	reloaded := NewClassifier(loaded)
	readings := []types.SensorReading{
		{Piezo: 3800, TDS: 750, Distance: 2.5},
		{Piezo: 500, TDS: 250, Distance: 5},
		{Piezo: 1200, TDS: 400, Distance: 8},
	}
	for _, reading := range readings {
		want, err := original.Classify(reading)
		require.NoError(t, err)
		got, err := reloaded.Classify(reading)
		require.NoError(t, err)
		assert.Equal(t, want.Material, got.Material)
		for label, p := range want.Probabilities {
			assert.InDelta(t, p, got.Probabilities[label], 1e-12)
		}
	}
}

func TestSaveBundleCreatesParentDirs(t *testing.T) {
	bundle, _ := trainedBundle(t)
	path := filepath.Join(t.TempDir(), "nested", "deeper", "model.json")

	require.NoError(t, SaveBundle(bundle, path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadBundleRejectsBadArtifacts(t *testing.T) {
	dir := t.TempDir()
	bundle, _ := trainedBundle(t)

	write := func(t *testing.T, name string, mutate func(b *Bundle)) string {
		t.Helper()
		clone := *bundle
		mutate(&clone)
		path := filepath.Join(dir, name)
		data, err := json.Marshal(&clone)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0644))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{
			name: "missing file",
			path: filepath.Join(dir, "does-not-exist.json"),
		},
		{
			name: "wrong version",
			path: write(t, "version.json", func(b *Bundle) { b.Version = BundleVersion + 1 }),
		},
		{
			name: "nil scaler",
			path: write(t, "scaler.json", func(b *Bundle) { b.Scaler = nil }),
		},
		{
			name: "nil ensemble",
			path: write(t, "ensemble.json", func(b *Bundle) { b.Ensemble = nil }),
		},
		{
			name: "scaler width mismatch",
			path: write(t, "width.json", func(b *Bundle) {
				b.Scaler = &Scaler{Means: []float64{0, 0}, Stddevs: []float64{1, 1}}
			}),
		},
		{
			name: "label count mismatch",
			path: write(t, "labels.json", func(b *Bundle) { b.Labels = b.Labels[:3] }),
		},
		{
			name: "short voting weights",
			path: write(t, "weights.json", func(b *Bundle) {
				ens := *b.Ensemble
				ens.Weights = ens.Weights[:2]
				b.Ensemble = &ens
			}),
		},
		{
			name: "missing component model",
			path: write(t, "component.json", func(b *Bundle) {
				ens := *b.Ensemble
				ens.Kernel = nil
				b.Ensemble = &ens
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBundle(tt.path)
			require.Error(t, err)
			assert.True(t, apperrors.IsCategory(err, apperrors.CategoryScalerMismatch))
		})
	}

	t.Run("garbage json", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte("not json{"), 0644))
		_, err := LoadBundle(path)
		require.Error(t, err)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryScalerMismatch))
	})
}
