package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/media-map/internal/logging"
	"github.com/fpang/media-map/internal/seed"
	"github.com/fpang/media-map/internal/store"
)

var (
	removeYearFlag  string
	removeEventFlag string
)

// removeCmd deletes the media of one year and/or event.
var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove seeded media of a year and/or event",
	Long: `Remove deletes the geotagged media whose path lies under the given year
and/or whose event contains the given text, together with their image
records and, when the storage supports it, their stored thumbnails.

Examples:
  media-seed remove --year 2022
  media-seed remove --year 2022 --event "Summer Trip" --storage local-disk`,
	Run: func(cmd *cobra.Command, args []string) {
		logging.Init()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runRemove(ctx, cmd); err != nil {
			stop()
			log.Fatal().Err(err).Msg("Removal failed")
		}
	},
}

func init() {
	removeCmd.Flags().StringVar(&removeYearFlag, "year", "", "Year partition to remove")
	removeCmd.Flags().StringVar(&removeEventFlag, "event", "", "Event name (substring) to remove")
}

func runRemove(ctx context.Context, cmd *cobra.Command) error {
	if removeYearFlag == "" && removeEventFlag == "" {
		return fmt.Errorf("--year or --event is required")
	}

	cfg, err := loadConfig(ctx, cmd, false)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	closeLog, err := openRunLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	snk, err := buildSink(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Storage unavailable, thumbnails will not be removed")
		snk = nil
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

	report, err := seed.Remove(ctx, seed.RemoveOptions{
		Store: st,
		Sink:  snk,
		Year:  removeYearFlag,
		Event: removeEventFlag,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d of %d matching media (%d thumbnails removed, %d failed)\n",
		report.Deleted, report.Matched, report.ThumbnailsRemoved, report.ThumbnailsFailed)
	return nil
}
