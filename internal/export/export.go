// Package export writes the final geocoded table as a geospatial file.
package export

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/cache"
	"github.com/egon-data/mastr-geocoding/internal/config"
)

// Write serializes the table of resolved addresses to the configured
// path and format. Entries without coordinates are rejected; the
// pipeline hands over successes only.
func Write(table []cache.Entry, cfg config.ExportConfig) error {
	for _, e := range table {
		if e.Latitude == nil || e.Longitude == nil {
			return eris.Errorf("export: entry %s has no coordinates", e.ZipAndMunicipality)
		}
	}

	var err error
	switch cfg.Format {
	case "geojson":
		err = writeGeoJSON(table, cfg.Path, cfg.EPSG)
	case "shp":
		err = writeShapefile(table, cfg.Path)
	default:
		return eris.Errorf("export: unknown format %q", cfg.Format)
	}
	if err != nil {
		return err
	}

	zap.L().Info("export written",
		zap.String("path", cfg.Path),
		zap.String("format", cfg.Format),
		zap.Int("rows", len(table)),
	)
	return nil
}
