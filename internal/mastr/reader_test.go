package mastr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// writeDump lays out a fake extracted dump and returns its config.
func writeDump(t *testing.T, files map[string]string) config.MaStRConfig {
	t.Helper()

	cfg := config.MaStRConfig{
		DumpDate: "2024-01-08",
		ZipName:  "bnetza_open_mastr_{}_B.zip",
		FileName: "bnetza_open_mastr_{}_raw.csv",
		DataDir:  t.TempDir(),
	}
	dir := DumpDir(cfg)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for tech, content := range files {
		cfg.Technologies = append(cfg.Technologies, tech)
		path := filepath.Join(dir, Format(cfg.FileName, tech))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return cfg
}

func TestZipAndMunicipality_DedupesAcrossFiles(t *testing.T) {
	cfg := writeDump(t, map[string]string{
		"wind": "Postleitzahl,Gemeinde,Bundesland,Land\n" +
			"10115,Berlin,Berlin,Deutschland\n" +
			"80331,München,Bayern,Deutschland\n",
		"hydro": "Postleitzahl,Gemeinde,Bundesland,Land\n" +
			"10115,Berlin,Berlin,Deutschland\n" +
			"01067,Dresden,Sachsen,Deutschland\n",
	})
	// Deterministic order across files.
	cfg.Technologies = []string{"wind", "hydro"}

	addrs, err := ZipAndMunicipality(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10115 Berlin, Deutschland",
		"80331 München, Deutschland",
		"01067 Dresden, Deutschland",
	}, addrs)
}

func TestZipAndMunicipality_StandortFallback(t *testing.T) {
	cfg := writeDump(t, map[string]string{
		"solar": "Postleitzahl,Gemeinde,Bundesland,Land,Standort\n" +
			"10115,Berlin,Berlin,Deutschland,egal\n" +
			",,Bayern,Deutschland,Musterweg 3 80331 München\n" +
			",,Bayern,Deutschland,kein Standort mit PLZ\n",
	})

	addrs, err := ZipAndMunicipality(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10115 Berlin, Deutschland",
		"80331 München, Deutschland",
	}, addrs)
}

func TestZipAndMunicipality_FederalStateFilterPerFile(t *testing.T) {
	cfg := writeDump(t, map[string]string{
		// Bayern occurs here, so the filter applies to this file.
		"wind": "Postleitzahl,Gemeinde,Bundesland,Land\n" +
			"80331,München,Bayern,Deutschland\n" +
			"10115,Berlin,Berlin,Deutschland\n",
		// Bayern does not occur here, so this file stays unfiltered.
		"hydro": "Postleitzahl,Gemeinde,Bundesland,Land\n" +
			"01067,Dresden,Sachsen,Deutschland\n",
	})
	cfg.Technologies = []string{"wind", "hydro"}
	cfg.FederalState = "Bayern"

	addrs, err := ZipAndMunicipality(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"80331 München, Deutschland",
		"01067 Dresden, Deutschland",
	}, addrs)
}

func TestZipAndMunicipality_ZeroPadsFloatZips(t *testing.T) {
	cfg := writeDump(t, map[string]string{
		"biomass": "Postleitzahl,Gemeinde,Bundesland,Land\n" +
			"1067.0,Dresden,Sachsen,Deutschland\n",
	})

	addrs, err := ZipAndMunicipality(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"01067 Dresden, Deutschland"}, addrs)
}

func TestZipAndMunicipality_MissingFile(t *testing.T) {
	cfg := writeDump(t, nil)
	cfg.Technologies = []string{"wind"}

	_, err := ZipAndMunicipality(context.Background(), cfg)
	require.Error(t, err)
}

func TestZipAndMunicipality_MissingColumn(t *testing.T) {
	cfg := writeDump(t, map[string]string{
		"wind": "Postleitzahl,Gemeinde\n10115,Berlin\n",
	})

	_, err := ZipAndMunicipality(context.Background(), cfg)
	require.Error(t, err)
}
