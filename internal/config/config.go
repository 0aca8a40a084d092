package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	MaStR     MaStRConfig     `yaml:"mastr" mapstructure:"mastr"`
	Geocoding GeocodingConfig `yaml:"geocoding" mapstructure:"geocoding"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// MaStRConfig locates and scopes the registry dump.
type MaStRConfig struct {
	URL          string   `yaml:"url" mapstructure:"url"`
	DepositID    string   `yaml:"deposit_id" mapstructure:"deposit_id"`
	DumpDate     string   `yaml:"dump_date" mapstructure:"dump_date"`
	ZipName      string   `yaml:"zip_name" mapstructure:"zip_name"`
	FileName     string   `yaml:"file_name" mapstructure:"file_name"`
	DataDir      string   `yaml:"data_dir" mapstructure:"data_dir"`
	Technologies []string `yaml:"technologies" mapstructure:"technologies"`
	FederalState string   `yaml:"federal_state" mapstructure:"federal_state"`
}

// GeocodingConfig configures the external lookup client.
type GeocodingConfig struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	MinDelaySeconds int    `yaml:"min_delay_seconds" mapstructure:"min_delay_seconds"`
	MaxRetries      int    `yaml:"max_retries" mapstructure:"max_retries"`
	ErrorWaitSecs   int    `yaml:"error_wait_seconds" mapstructure:"error_wait_seconds"`
}

// CacheConfig configures the geocode result cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures the geospatial output artifact.
type ExportConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	Path   string `yaml:"path" mapstructure:"path"`
	EPSG   int    `yaml:"epsg" mapstructure:"epsg"`
}

// ReportConfig configures the failure report artifact.
type ReportConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MASTR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("mastr.url", "https://zenodo.org/api/records/{}/files/")
	v.SetDefault("mastr.deposit_id", "10480930")
	v.SetDefault("mastr.dump_date", "2024-01-08")
	v.SetDefault("mastr.zip_name", "bnetza_open_mastr_{}_B.zip")
	v.SetDefault("mastr.file_name", "bnetza_open_mastr_{}_raw.csv")
	v.SetDefault("mastr.data_dir", "bnetza_mastr")
	v.SetDefault("mastr.technologies", []string{
		"biomass", "combustion", "gsgk", "hydro", "nuclear", "solar", "storage", "wind",
	})
	v.SetDefault("geocoding.endpoint", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocoding.user_agent", "mastr_geocoding")
	v.SetDefault("geocoding.min_delay_seconds", 1)
	v.SetDefault("geocoding.max_retries", 3)
	v.SetDefault("geocoding.error_wait_seconds", 5)
	v.SetDefault("cache.driver", "csv")
	v.SetDefault("cache.path", "geocoding_cache.csv")
	v.SetDefault("export.format", "geojson")
	v.SetDefault("export.path", "bnetza_mastr_geocoded.geojson")
	v.SetDefault("export.epsg", 4326)
	v.SetDefault("report.path", "geocoding_failures.csv")
	v.SetDefault("report.format", "csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the sections required by a command are usable.
func (c *Config) Validate(section string) error {
	switch section {
	case "geocoding":
		if c.Geocoding.UserAgent == "" {
			return eris.New("config: geocoding.user_agent is required")
		}
		if c.Geocoding.MinDelaySeconds < 1 {
			return eris.New("config: geocoding.min_delay_seconds must be at least 1")
		}
	case "cache":
		switch c.Cache.Driver {
		case "csv", "sqlite":
			if c.Cache.Path == "" {
				return eris.Errorf("config: cache.path is required for driver %s", c.Cache.Driver)
			}
		case "postgres":
			if c.Cache.DatabaseURL == "" {
				return eris.New("config: cache.database_url is required for driver postgres")
			}
		default:
			return eris.Errorf("config: unknown cache driver %q", c.Cache.Driver)
		}
	case "export":
		switch c.Export.Format {
		case "geojson", "shp":
		default:
			return eris.Errorf("config: unknown export format %q", c.Export.Format)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
