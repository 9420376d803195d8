package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = "s1t"
	envPrefix  = "S1T"
)

type Catalog struct {
	URL               string
	Collection        string
	Limit             int
	OrbitState        string
	InstrumentMode    string
	RequestsPerSecond float64
	RequestTimeout    time.Duration
}

type Search struct {
	ChunkDays    int
	MinChunkDays int
}

type Download struct {
	Concurrency int
	Timeout     time.Duration
	MinBytes    int64
	BufferBytes int
	Bands       []domain.Band
}

type Log struct {
	Level  string
	Format string
}

type Config struct {
	Catalog     Catalog
	SigningURL  string
	Search      Search
	Download    Download
	Log         Log
	MetricsPath string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.url", "https://planetarycomputer.microsoft.com/api/stac/v1")
	v.SetDefault("catalog.collection", "sentinel-1-grd")
	v.SetDefault("catalog.limit", 100)
	v.SetDefault("catalog.orbit_state", "descending")
	v.SetDefault("catalog.instrument_mode", "IW")
	v.SetDefault("catalog.requests_per_second", 2.0)
	v.SetDefault("catalog.request_timeout", "300s")
	v.SetDefault("signing.url", "https://planetarycomputer.microsoft.com/api/sas/v1")
	v.SetDefault("search.chunk_days", domain.DefaultChunkDays)
	v.SetDefault("search.min_chunk_days", domain.MinChunkDays)
	v.SetDefault("download.concurrency", 5)
	v.SetDefault("download.timeout", "300s")
	v.SetDefault("download.min_bytes", 1024)
	v.SetDefault("download.buffer_bytes", 8192*8)
	v.SetDefault("download.bands", []string{string(domain.BandVV), string(domain.BandVH)})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.path", "")
}

// Load reads config.toml from the user config directory when present and
// applies S1T_* environment overrides on top of the defaults.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	if dir, err := userConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Catalog: Catalog{
			URL:               v.GetString("catalog.url"),
			Collection:        v.GetString("catalog.collection"),
			Limit:             v.GetInt("catalog.limit"),
			OrbitState:        v.GetString("catalog.orbit_state"),
			InstrumentMode:    v.GetString("catalog.instrument_mode"),
			RequestsPerSecond: v.GetFloat64("catalog.requests_per_second"),
			RequestTimeout:    v.GetDuration("catalog.request_timeout"),
		},
		SigningURL: v.GetString("signing.url"),
		Search: Search{
			ChunkDays:    v.GetInt("search.chunk_days"),
			MinChunkDays: v.GetInt("search.min_chunk_days"),
		},
		Download: Download{
			Concurrency: v.GetInt("download.concurrency"),
			Timeout:     v.GetDuration("download.timeout"),
			MinBytes:    v.GetInt64("download.min_bytes"),
			BufferBytes: v.GetInt("download.buffer_bytes"),
			Bands:       toBands(v.GetStringSlice("download.bands")),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		MetricsPath: v.GetString("metrics.path"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Catalog.URL) == "" {
		errs = append(errs, errors.New("catalog.url is empty"))
	}
	if strings.TrimSpace(c.Catalog.Collection) == "" {
		errs = append(errs, errors.New("catalog.collection is empty"))
	}
	if c.Search.MinChunkDays < 1 {
		errs = append(errs, fmt.Errorf("search.min_chunk_days must be positive, got %d", c.Search.MinChunkDays))
	}
	if c.Search.ChunkDays < c.Search.MinChunkDays {
		errs = append(errs, fmt.Errorf("search.chunk_days %d is below search.min_chunk_days %d", c.Search.ChunkDays, c.Search.MinChunkDays))
	}
	if c.Download.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("download.concurrency must be positive, got %d", c.Download.Concurrency))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download.timeout must be positive"))
	}
	if len(c.Download.Bands) == 0 {
		errs = append(errs, errors.New("download.bands is empty"))
	}

	return errors.Join(errs...)
}

func userConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configDir), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDir), nil
}

func toBands(raw []string) []domain.Band {
	bands := make([]domain.Band, 0, len(raw))
	seen := make(map[domain.Band]struct{}, len(raw))
	for _, value := range raw {
		band := domain.Band(strings.ToLower(strings.TrimSpace(value)))
		if band == "" {
			continue
		}
		if _, ok := seen[band]; ok {
			continue
		}
		seen[band] = struct{}{}
		bands = append(bands, band)
	}
	return bands
}
