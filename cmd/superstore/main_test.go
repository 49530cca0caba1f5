package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = `Row ID,Order Date,Ship Date,State,Category,Sub-Category,Quantity,Profit
1,11/8/2016,11/11/2016,Kentucky,Furniture,Bookcases,2,41.91
2,,6/16/2015,California,Office Supplies,Labels,2,6.87
3,10/11/2015,10/18/2015,Florida,Furniture,Tables,5,-383.03
4,6/9/2014,6/14/2014,California,Technology,Phones,3,14.17
`

func TestSeriesTitle(t *testing.T) {
	assert.Equal(t, "Validation AUC", seriesTitle("val_auc"))
	assert.Equal(t, "Loss", seriesTitle("loss"))
	assert.Equal(t, "Validation loss", seriesTitle("val_loss"))
}

func TestRunSummary(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(ordersCSV), 0o600))
	t.Setenv("CSV_URL", csvPath)
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))

	err := run(context.Background(), options{task: taskSummary, envFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	for _, name := range []string{"category_profit.png", "monthly_quantity.png", "state_orders.png"} {
		_, err := os.Stat(filepath.Join(dir, "out", name))
		assert.NoError(t, err, name)
	}
}

func TestRunUnknownTask(t *testing.T) {
	err := run(context.Background(), options{task: "cluster"})
	assert.Error(t, err)
}
