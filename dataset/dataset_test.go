package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

const sampleCSV = `Row ID,Order Date,Ship Date,Ship Mode,Segment,Region,Category,Quantity,Profit
1,11/8/2016,11/11/2016,Second Class,Consumer,South,Furniture,2,41.9136
2,,6/16/2016,Second Class,Corporate,West,Office Supplies,2,6.8714
3,10/11/2015,10/18/2015,Standard Class,Home Office,South,Furniture,5,-383.031
4,6/9/2014,,Standard Class,Consumer,,Furniture,NaN,14.1694
`

func TestRead(t *testing.T) {
	f, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rows, cols := f.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 8, cols)
	assert.Equal(t, []string{"1", "2", "3", "4"}, f.Index())
	assert.Equal(t, "Order Date", f.Columns()[0])

	v, ok := f.Value(0, "Segment")
	assert.True(t, ok)
	assert.Equal(t, "Consumer", v)

	_, ok = f.Value(1, "Order Date")
	assert.False(t, ok)
	_, ok = f.Value(3, "Quantity")
	assert.False(t, ok)
	_, ok = f.Value(0, "Nope")
	assert.False(t, ok)
}

func TestRead_Malformed(t *testing.T) {
	_, err := Read(strings.NewReader("id,a,b\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Read(strings.NewReader(""))
	assert.True(t, ssErrors.Is(err, ssErrors.ErrEmptyData))
}

func TestFrame_Select(t *testing.T) {
	f, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	sel, err := f.Select("Profit", "Segment")
	require.NoError(t, err)
	assert.Equal(t, []string{"Profit", "Segment"}, sel.Columns())
	assert.Equal(t, f.Index(), sel.Index())

	col, err := sel.Column("Segment")
	require.NoError(t, err)
	assert.Equal(t, []string{"Consumer", "Corporate", "Home Office", "Consumer"}, col)

	_, err = f.Select("Segment", "Customer ID")
	var ce *ssErrors.ColumnError
	require.True(t, ssErrors.As(err, &ce))
	assert.Equal(t, "Customer ID", ce.Column)
	assert.True(t, ssErrors.Is(err, ssErrors.ErrMissingColumn))
}

func TestNewFrame_Validation(t *testing.T) {
	_, err := NewFrame([]string{"a", "a"}, nil, nil)
	assert.Error(t, err)

	_, err = NewFrame([]string{"a", "b"}, nil, [][]string{{"1"}})
	var de *ssErrors.DimensionError
	assert.True(t, ssErrors.As(err, &de))

	f, err := NewFrame([]string{"a"}, nil, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, f.Index())
}

func TestIsMissing(t *testing.T) {
	for _, cell := range []string{"", "  ", "NaN", "nan", "NA", "N/A", "null", "None"} {
		assert.True(t, IsMissing(cell), "%q", cell)
	}
	for _, cell := range []string{"0", "-1", "Consumer", "None of the above"} {
		assert.False(t, IsMissing(cell), "%q", cell)
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"12":        12,
		" -3.50 ":   -3.5,
		"$1,024.00": 1024,
		"(5.25)":    -5.25,
		"1e3":       1000,
	}
	for in, want := range cases {
		got, ok := ParseAmount(in)
		assert.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-12, in)
	}

	for _, in := range []string{"", "NaN", "abc"} {
		_, ok := ParseAmount(in)
		assert.False(t, ok, in)
	}
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/superstore.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	f, err := Load(context.Background(), srv.URL+"/superstore.csv")
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())

	_, err = Load(context.Background(), srv.URL+"/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLoad_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	f, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
