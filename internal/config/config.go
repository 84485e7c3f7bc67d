// Package config loads the seeding pipeline's configuration from the
// environment (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/fpang/media-map/internal/sink"
	"github.com/fpang/media-map/internal/source"
)

// Config holds the environment driven configuration for media-seed.
type Config struct {
	// Pipeline
	SourceKind    string   `env:"SOURCE_KIND" envDefault:"remote"`
	StorageKind   string   `env:"STORAGE_SERVICE" envDefault:"cloud"`
	Years         []string `env:"SEED_YEARS" envSeparator:","`
	Reset         bool     `env:"SEED_RESET" envDefault:"false"`
	Workers       int      `env:"SEED_WORKERS" envDefault:"1"`
	ThumbnailSize int      `env:"THUMBNAIL_SIZE" envDefault:"512"`
	LogFile       string   `env:"SEED_LOG_FILE" envDefault:"seed.log"`
	LogLevel      string   `env:"MEDIA_MAP_LOG_LEVEL" envDefault:"info"`

	// Remote source (Dropbox)
	DropboxAccessToken string        `env:"DROPBOX_ACCESS_TOKEN"`
	DropboxRoot        string        `env:"DROPBOX_ROOT" envDefault:"/Photos"`
	DropboxTimeout     time.Duration `env:"DROPBOX_TIMEOUT" envDefault:"60s"`

	// Local source
	LocalMediaRoot string `env:"LOCAL_MEDIA_ROOT"`

	// Cloud sink (Cloudinary)
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER" envDefault:"yanns-media"`

	// Local-disk sink
	LocalThumbnailDir    string `env:"LOCAL_THUMBNAIL_DIR" envDefault:"./public/mediasThumbnails"`
	LocalThumbnailPrefix string `env:"LOCAL_THUMBNAIL_PREFIX" envDefault:"/mediasThumbnails"`

	// S3 sink
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Prefix       string `env:"S3_PREFIX" envDefault:"thumbnails"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	// Record store
	DatabaseURL string `env:"DATABASE_URL"`

	// Secrets and metrics
	SSMParamPrefix   string `env:"SSM_PARAM_PREFIX"`
	MetricsNamespace string `env:"METRICS_NAMESPACE"`
}

// Load reads .env (when present) and parses the environment into Config.
// Variables already set in the environment win over .env values.
func Load() (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.SourceKind = strings.ToLower(strings.TrimSpace(c.SourceKind))
	if kind, err := sink.NormalizeKind(c.StorageKind); err == nil {
		c.StorageKind = kind
	}

	years := c.Years[:0]
	for _, y := range c.Years {
		if y = strings.TrimSpace(y); y != "" {
			years = append(years, y)
		}
	}
	c.Years = years

	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.DropboxAccessToken = strings.TrimSpace(c.DropboxAccessToken)
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
}

// Secrets returns the secret fields that may still be resolved from the
// credentials file or SSM, keyed by variable name. Only the secrets the
// selected source and storage need are included.
func (c *Config) Secrets() map[string]*string {
	secrets := map[string]*string{"DATABASE_URL": &c.DatabaseURL}
	if c.SourceKind == source.KindRemote {
		secrets["DROPBOX_ACCESS_TOKEN"] = &c.DropboxAccessToken
	}
	if c.StorageKind == sink.KindCloud {
		secrets["CLOUDINARY_API_KEY"] = &c.CloudinaryAPIKey
		secrets["CLOUDINARY_API_SECRET"] = &c.CloudinaryAPISecret
	}
	return secrets
}

// Validate checks the requirements of the selected source and storage.
func (c *Config) Validate() error {
	var errs []error

	switch c.SourceKind {
	case source.KindRemote:
		if c.DropboxAccessToken == "" {
			errs = append(errs, errors.New("DROPBOX_ACCESS_TOKEN is required when SOURCE_KIND is remote"))
		}
	case source.KindLocal:
		if strings.TrimSpace(c.LocalMediaRoot) == "" {
			errs = append(errs, errors.New("LOCAL_MEDIA_ROOT is required when SOURCE_KIND is local"))
		}
	default:
		errs = append(errs, fmt.Errorf("SOURCE_KIND must be %q or %q, got %q", source.KindRemote, source.KindLocal, c.SourceKind))
	}

	kind, err := sink.NormalizeKind(c.StorageKind)
	if err != nil {
		errs = append(errs, fmt.Errorf("STORAGE_SERVICE: %w", err))
	}
	switch kind {
	case sink.KindCloud:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for cloud storage"))
		}
	case sink.KindLocalDisk:
		if strings.TrimSpace(c.LocalThumbnailDir) == "" {
			errs = append(errs, errors.New("LOCAL_THUMBNAIL_DIR is required for local-disk storage"))
		}
	case sink.KindS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for s3 storage"))
		}
	}

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("SEED_WORKERS must be at least 1, got %d", c.Workers))
	}
	if c.ThumbnailSize < 1 {
		errs = append(errs, fmt.Errorf("THUMBNAIL_SIZE must be positive, got %d", c.ThumbnailSize))
	}

	return errors.Join(errs...)
}
