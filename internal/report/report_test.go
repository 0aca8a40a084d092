package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/cache"
	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testFailures = []cache.Entry{
	{ZipAndMunicipality: "99999 Atlantis, Deutschland", Source: geocode.SourceFailed},
	{ZipAndMunicipality: "10115 Berlin, Deutschland", Source: geocode.SourceException},
}

func TestWriteFailures_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.csv")
	w := NewWriter(path, "csv")

	require.NoError(t, w.WriteFailures(context.Background(), testFailures))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"zip_and_municipality", "geocode_source"}, records[0])
	assert.Equal(t, []string{"99999 Atlantis, Deutschland", "failed"}, records[1])
	assert.Equal(t, []string{"10115 Berlin, Deutschland", "exception"}, records[2])
}

func TestWriteFailures_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.xlsx")
	w := NewWriter(path, "xlsx")

	require.NoError(t, w.WriteFailures(context.Background(), testFailures))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "zip_and_municipality", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "99999 Atlantis, Deutschland", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "exception", sheet.Rows[2].Cells[1].Value)
}

func TestWriteFailures_NothingToReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.csv")
	w := NewWriter(path, "csv")

	require.NoError(t, w.WriteFailures(context.Background(), nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no artifact should be written without failures")
}
