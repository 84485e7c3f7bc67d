package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/media-map/internal/config"
	"github.com/fpang/media-map/internal/filehandler"
	"github.com/fpang/media-map/internal/logging"
	"github.com/fpang/media-map/internal/sink"
)

var (
	urlFormatFlag  string
	urlVersionFlag string
)

// urlCmd prints the retrieval URL of a stored thumbnail.
var urlCmd = &cobra.Command{
	Use:   "url <public-id>",
	Short: "Print the retrieval URL of a stored thumbnail",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logging.Init()

		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		applyFlags(cmd, cfg)

		u, err := sink.URL(cfg.StorageKind, sink.Handle{
			PublicID: args[0],
			Format:   urlFormatFlag,
			Version:  urlVersionFlag,
		}, sink.URLOptions{
			CloudName: cfg.CloudinaryCloudName,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compose URL")
		}
		fmt.Println(u)
	},
}

func init() {
	urlCmd.Flags().StringVar(&urlFormatFlag, "format", filehandler.ThumbnailFormat, "Stored format")
	urlCmd.Flags().StringVar(&urlVersionFlag, "version", "1", "Stored version")
}
