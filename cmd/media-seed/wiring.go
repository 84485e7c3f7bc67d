package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/media-map/internal/auth"
	"github.com/fpang/media-map/internal/cli"
	"github.com/fpang/media-map/internal/cloudinary"
	"github.com/fpang/media-map/internal/config"
	"github.com/fpang/media-map/internal/dropbox"
	"github.com/fpang/media-map/internal/logging"
	"github.com/fpang/media-map/internal/s3util"
	"github.com/fpang/media-map/internal/sink"
	"github.com/fpang/media-map/internal/source"
)

// loadConfig reads the environment, applies flags, resolves secrets and,
// when validate is set, checks the result.
func loadConfig(ctx context.Context, cmd *cobra.Command, validate bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := resolver.Fill(ctx, cfg.Secrets()); err != nil {
		log.Debug().Err(err).Msg("Some secrets are unresolved")
	}

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceKind = strings.ToLower(sourceFlag)
	}
	if flags.Changed("storage") {
		cfg.StorageKind = storageFlag
	}
	if kind, err := sink.NormalizeKind(cfg.StorageKind); err == nil {
		cfg.StorageKind = kind
	}
	if flags.Changed("years") {
		cfg.Years = yearsFlag
	}
	if flags.Changed("reset") {
		cfg.Reset = resetFlag
	}
	if flags.Changed("workers") {
		cfg.Workers = workersFlag
	}
	if flags.Changed("thumbnail-size") {
		cfg.ThumbnailSize = thumbnailSizeFlag
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFileFlag
	}
}

func newResolver(ctx context.Context, cfg *config.Config) (*auth.Resolver, error) {
	opts := auth.Options{SSMPrefix: cfg.SSMParamPrefix}
	if cfg.SSMParamPrefix != "" {
		client, err := auth.NewSSMClient(ctx, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		opts.SSM = client
	}
	return auth.NewResolver(opts), nil
}

// openRunLog switches the global logger to console plus run log. An empty
// path or "-" keeps console-only logging.
func openRunLog(path string) (func(), error) {
	if path == "" || path == "-" {
		return func() {}, nil
	}
	closer, err := logging.InitWithRunLog(path)
	if err != nil {
		return nil, err
	}
	return func() { _ = closer.Close() }, nil
}

func buildSource(cfg *config.Config) (source.Source, error) {
	switch cfg.SourceKind {
	case source.KindLocal:
		root, err := cli.ValidateAndResolveDirectory(cfg.LocalMediaRoot)
		if err != nil {
			return nil, fmt.Errorf("LOCAL_MEDIA_ROOT: %w", err)
		}
		return source.NewLocal(root), nil
	case source.KindRemote:
		client := dropbox.NewClient(cfg.DropboxAccessToken, cfg.DropboxTimeout)
		return source.NewRemote(client, cfg.DropboxRoot), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.SourceKind)
}

func buildSink(ctx context.Context, cfg *config.Config) (sink.Sink, error) {
	kind, err := sink.NormalizeKind(cfg.StorageKind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case sink.KindLocalDisk:
		return sink.NewLocalDisk(cfg.LocalThumbnailDir, cfg.LocalThumbnailPrefix), nil
	case sink.KindS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
		client, err := s3util.NewClient(ctx, s3util.ClientOptions{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return sink.NewS3(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("cloudinary credentials are required for cloud storage")
		}
		client, err := cloudinary.NewClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return nil, err
		}
		return sink.NewCloud(client, cfg.CloudinaryFolder), nil
	}
}

func logStartup(cfg *config.Config, dialect string, initDuration time.Duration) {
	s := logging.NewStartupLogger("media-seed").
		Version(version).
		Resource("database", dialect).
		Config("source", cfg.SourceKind).
		Config("storage", cfg.StorageKind).
		Config("years", strings.Join(cfg.Years, ",")).
		Config("workers", strconv.Itoa(cfg.Workers)).
		Config("thumbnailSize", strconv.Itoa(cfg.ThumbnailSize)).
		Config("logFile", cfg.LogFile).
		Feature("reset", cfg.Reset).
		Feature("metrics", cfg.MetricsNamespace != "").
		Feature("ssm", cfg.SSMParamPrefix != "").
		InitDuration(initDuration)

	switch cfg.SourceKind {
	case source.KindRemote:
		s.Resource("dropboxRoot", cfg.DropboxRoot).Secret("DROPBOX_ACCESS_TOKEN", cfg.DropboxAccessToken != "")
	case source.KindLocal:
		s.Resource("mediaRoot", cfg.LocalMediaRoot)
	}
	switch cfg.StorageKind {
	case sink.KindCloud:
		s.Resource("cloudinaryFolder", cfg.CloudinaryCloudName+"/"+cfg.CloudinaryFolder).
			Secret("CLOUDINARY_API_SECRET", cfg.CloudinaryAPISecret != "")
	case sink.KindLocalDisk:
		s.Resource("thumbnailDir", cfg.LocalThumbnailDir)
	case sink.KindS3:
		s.Resource("s3Bucket", cfg.S3Bucket+"/"+cfg.S3Prefix)
	}
	if cfg.S3Endpoint != "" {
		if u, err := url.Parse(cfg.S3Endpoint); err == nil {
			s.Config("s3Endpoint", u.Host)
		}
	}

	s.Log()
}
