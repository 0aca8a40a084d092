package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/egon-data/mastr-geocoding/internal/cache"
)

// featureCollection is a GeoJSON FeatureCollection with a named CRS
// member, so consumers see which reference system the run used.
type featureCollection struct {
	Type     string             `json:"type"`
	CRS      *namedCRS          `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

type namedCRS struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

func writeGeoJSON(table []cache.Entry, path string, epsg int) error {
	features := make([]*geojson.Feature, 0, len(table))
	for _, e := range table {
		point := geom.NewPointFlat(geom.XY, []float64{*e.Longitude, *e.Latitude})
		if epsg != 0 {
			point.SetSRID(epsg)
		}

		props := map[string]any{
			"zip_and_municipality": e.ZipAndMunicipality,
			"geocode_source":       string(e.Source),
			"latitude":             *e.Latitude,
			"longitude":            *e.Longitude,
		}
		if e.Altitude != nil {
			props["altitude"] = *e.Altitude
		}

		features = append(features, &geojson.Feature{
			Geometry:   point,
			Properties: props,
		})
	}

	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
	if epsg != 0 {
		fc.CRS = &namedCRS{
			Type: "name",
			Properties: map[string]any{
				"name": fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", epsg),
			},
		}
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
