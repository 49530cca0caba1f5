package plot

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/superstore/core/model"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestHistorySeries(t *testing.T) {
	mlp := model.NewHistory()
	mlp.Append(model.SeriesValLoss, 0.7)
	mlp.Append(model.SeriesValLoss, 0.6)
	linear := model.NewHistory()
	linear.Append(model.SeriesValLoss, 0.9)
	forest := model.NewHistory()
	forest.Append(model.SeriesLoss, 0.5)

	series := HistorySeries(map[string]*model.History{
		"MLP":           mlp,
		"Linear":        linear,
		"Random Forest": forest,
		"OLS":           nil,
	}, model.SeriesValLoss)

	require.Len(t, series, 2)
	assert.Equal(t, "Linear", series[0].Name)
	assert.Equal(t, "MLP", series[1].Name)
	assert.Equal(t, []float64{0.7, 0.6}, series[1].Y)
}

func TestSaveHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "val_auc.png")
	err := SaveHistory(path, "Validation AUC", []Series{
		{Name: "MLP", Y: []float64{0.6, 0.7, 0.75}},
		{Name: "Random Forest", Y: []float64{math.NaN(), 0.8, 0.82}},
	})
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestSaveLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monthly.png")
	err := SaveLines(path, "Quantity per month", "Month", "Quantity", []Series{
		{Name: "Furniture", X: []float64{1, 2, 5}, Y: []float64{10, 12, 7}},
	})
	require.NoError(t, err)
	assertPNG(t, path)

	err = SaveLines(path, "bad", "", "", []Series{{Name: "x", X: []float64{1}, Y: []float64{1, 2}}})
	var dimErr *ssErrors.DimensionError
	assert.True(t, ssErrors.As(err, &dimErr))

	err = SaveLines(path, "empty", "", "", nil)
	var valueErr *ssErrors.ValueError
	assert.True(t, ssErrors.As(err, &valueErr))
}

func TestSaveBars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profit.png")
	err := SaveBars(path, "Mean profit", []string{"Furniture", "Technology"}, []float64{8.7, 78.8})
	require.NoError(t, err)
	assertPNG(t, path)

	err = SaveBars(path, "bad", []string{"a"}, []float64{1, 2})
	assert.Error(t, err)
	err = SaveBars(path, "empty", nil, nil)
	assert.Error(t, err)
}
