// Package report writes the failure artifact listing every address a
// run could not resolve.
package report

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/cache"
)

var header = []string{"zip_and_municipality", "geocode_source"}

// Writer writes failure reports to a configured path. Format is "csv"
// or "xlsx"; xlsx suits operators doing manual follow-up in a
// spreadsheet.
type Writer struct {
	path   string
	format string
}

// NewWriter creates a failure report writer.
func NewWriter(path, format string) *Writer {
	return &Writer{path: path, format: format}
}

// WriteFailures implements pipeline.FailureReporter.
func (w *Writer) WriteFailures(_ context.Context, failures []cache.Entry) error {
	if len(failures) == 0 {
		return nil
	}

	var err error
	switch w.format {
	case "xlsx":
		err = w.writeXLSX(failures)
	default:
		err = w.writeCSV(failures)
	}
	if err != nil {
		return err
	}

	zap.L().Info("failure report written",
		zap.String("path", w.path),
		zap.Int("failures", len(failures)),
	)
	return nil
}

func (w *Writer) writeCSV(failures []cache.Entry) error {
	f, err := os.Create(w.path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", w.path)
	}
	defer f.Close() //nolint:errcheck

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, e := range failures {
		if err := cw.Write([]string{e.ZipAndMunicipality, string(e.Source)}); err != nil {
			return eris.Wrapf(err, "report: write %s", e.ZipAndMunicipality)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush")
	}
	return f.Close()
}

func (w *Writer) writeXLSX(failures []cache.Entry) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("failures")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().Value = h
	}
	for _, e := range failures {
		row = sheet.AddRow()
		row.AddCell().Value = e.ZipAndMunicipality
		row.AddCell().Value = string(e.Source)
	}

	if err := file.Save(w.path); err != nil {
		return eris.Wrapf(err, "report: save %s", w.path)
	}
	return nil
}
