package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/egon-data/mastr-geocoding/internal/cache"
)

func writeShapefile(table []cache.Entry, path string) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close() //nolint:errcheck

	fields := []shp.Field{
		shp.StringField("ZIP_MUNI", 120),
		shp.StringField("SOURCE", 16),
		shp.FloatField("LATITUDE", 13, 7),
		shp.FloatField("LONGITUDE", 13, 7),
		shp.FloatField("ALTITUDE", 13, 3),
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, e := range table {
		row := w.Write(&shp.Point{X: *e.Longitude, Y: *e.Latitude})

		var alt float64
		if e.Altitude != nil {
			alt = *e.Altitude
		}
		attrs := []any{e.ZipAndMunicipality, string(e.Source), *e.Latitude, *e.Longitude, alt}
		for i, v := range attrs {
			if err := w.WriteAttribute(int(row), i, v); err != nil {
				return eris.Wrapf(err, "export: write attribute for %s", e.ZipAndMunicipality)
			}
		}
	}

	return nil
}
