package forecast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRegression_Valid(t *testing.T) {
	path := writeArtifact(t, `{
		"name": "test",
		"features": ["ndvi_lag", "ndvi", "temp_short", "temp_long", "precip_total", "precip_x_temp"],
		"intercept": 0.5,
		"coefficients": [1, 2, 3, 4, 5, 6]
	}`)

	r, err := LoadRegression(path)
	require.NoError(t, err)
	assert.Equal(t, "test", r.Name)
	assert.InDelta(t, 0.5+1+2+3+4+5+6, r.Predict([6]float64{1, 1, 1, 1, 1, 1}), 1e-9)
}

func TestLoadRegression_ShippedArtifact(t *testing.T) {
	r, err := LoadRegression(filepath.Join("..", "model", "ndvi_regression.json"))
	require.NoError(t, err)
	assert.Len(t, r.Coefficients, len(FeatureNames))
}

func TestLoadRegression_Missing(t *testing.T) {
	_, err := LoadRegression(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, ErrModelUnavailable)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRegression_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad json":           `{`,
		"wrong coef count":   `{"coefficients": [1, 2, 3]}`,
		"wrong feature list": `{"features": ["a", "b", "c", "d", "e", "f"], "coefficients": [1, 2, 3, 4, 5, 6]}`,
		"short feature list": `{"features": ["ndvi_lag"], "coefficients": [1, 2, 3, 4, 5, 6]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRegression(writeArtifact(t, body))
			require.ErrorIs(t, err, ErrModelUnavailable)
		})
	}
}
