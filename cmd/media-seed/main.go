package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/media-map/internal/cli"
	"github.com/fpang/media-map/internal/logging"
	"github.com/fpang/media-map/internal/metrics"
	"github.com/fpang/media-map/internal/seed"
	"github.com/fpang/media-map/internal/store"
)

// version is set at build time with -ldflags "-X main.version=…".
var version = "dev"

// CLI flags
var (
	sourceFlag        string
	storageFlag       string
	yearsFlag         []string
	resetFlag         bool
	yesFlag           bool
	workersFlag       int
	thumbnailSizeFlag int
	logFileFlag       string
)

// rootCmd is the main Cobra command for the media-seed CLI.
var rootCmd = &cobra.Command{
	Use:   "media-seed",
	Short: "Seed the media map from a photo archive",
	Long: `Media Seed walks a photo archive laid out as <year>/<event>/..., keeps the
photos that carry GPS coordinates, stores a thumbnail of each one and
records it in the database behind the media map.

The archive is read from Dropbox (SOURCE_KIND=remote) or a local directory
(SOURCE_KIND=local). Thumbnails go to Cloudinary, a local directory or S3
(STORAGE_SERVICE=cloud|local-disk|s3). A report of created and skipped
media is printed at the end and appended to the run log.

Examples:
  media-seed --years 2021,2022
  media-seed --source local --storage local-disk --years all
  media-seed --reset --yes --years 2022 --workers 4
  media-seed remove --year 2022 --event "Summer Trip"
  media-seed url --storage cloud yanns-media/abc123 --version 1712345678`,
	Run: runMain,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", "", "Thumbnail storage: cloud, local-disk or s3 (default from STORAGE_SERVICE)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Append-only run log (default from SEED_LOG_FILE)")

	rootCmd.Flags().StringVar(&sourceFlag, "source", "", "Archive source: remote or local (default from SOURCE_KIND)")
	rootCmd.Flags().StringSliceVarP(&yearsFlag, "years", "y", nil, "Year partitions to seed, or \"all\" (default from SEED_YEARS)")
	rootCmd.Flags().BoolVar(&resetFlag, "reset", false, "Delete every media record and stored thumbnail before seeding")
	rootCmd.Flags().BoolVar(&yesFlag, "yes", false, "Do not ask for confirmation before a reset")
	rootCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Files processed concurrently per event (default from SEED_WORKERS)")
	rootCmd.Flags().IntVar(&thumbnailSizeFlag, "thumbnail-size", 0, "Longest thumbnail edge in pixels (default from THUMBNAIL_SIZE)")

	rootCmd.AddCommand(removeCmd, urlCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runSeed(ctx, cmd); err != nil {
		stop()
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}

func runSeed(ctx context.Context, cmd *cobra.Command) error {
	initStart := time.Now()

	cfg, err := loadConfig(ctx, cmd, true)
	if err != nil {
		return err
	}

	closeLog, err := openRunLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Reset && !yesFlag {
		if !cli.Confirm(os.Stdin, os.Stderr, "Reset deletes every media record and stored thumbnail. Continue?") {
			log.Info().Msg("Reset declined, nothing to do")
			return nil
		}
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	snk, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close record store")
		}
	}()
	if err := st.AutoMigrate(ctx); err != nil {
		return err
	}

	var rec *metrics.Recorder
	if cfg.MetricsNamespace != "" {
		rec = metrics.New(cfg.MetricsNamespace)
	}

	logStartup(cfg, st.Dialect(), time.Since(initStart))

	report, err := seed.Run(ctx, seed.Options{
		Source:        src,
		Sink:          snk,
		Store:         st,
		Years:         cfg.Years,
		Reset:         cfg.Reset,
		ThumbnailSize: cfg.ThumbnailSize,
		Workers:       cfg.Workers,
		Metrics:       rec,
	})
	if report != nil {
		fmt.Println(report.String())
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("Seeding interrupted, partial report above")
		return nil
	}
	return err
}
