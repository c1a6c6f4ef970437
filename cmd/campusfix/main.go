// Command campusfix is a terminal client for the CampusFix portal,
// exercising the cached API client the way the web pages do.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/campusfix/campusfix/cache"
	"github.com/campusfix/campusfix/internal/config"
	"github.com/campusfix/campusfix/portal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !cfg.Debug {
		logger = logger.Level(zerolog.WarnLevel)
	}

	var store cache.Store
	if cfg.CacheDir != "" {
		lvl, err := cache.OpenLevel(cfg.CacheDir)
		if err != nil {
			// run memory-only rather than refusing to start
			logger.Warn().Str("dir", cfg.CacheDir).Err(err).Msg("persistent cache unavailable")
		} else {
			store = lvl
			defer lvl.Close()
		}
	}

	client, err := portal.New(cfg.BaseURLs,
		portal.WithStore(store),
		portal.WithLogger(logger),
		portal.WithTTL(cfg.CacheTTL),
		portal.WithTimeout(cfg.Timeout),
		portal.WithThumbOptions(portal.ThumbOptions{
			MaxWidth: cfg.ThumbMaxWidth,
			Quality:  cfg.ThumbQuality,
			MaxBytes: cfg.ThumbMaxKB << 10,
		}),
		portal.WithUnauthorizedHook(func() {
			fmt.Fprintln(os.Stderr, "Session expired, please log in again.")
		}),
	)
	if err != nil {
		return err
	}
	defer client.Flush()

	return newRootCmd(client).Execute()
}

func newRootCmd(client *portal.Client) *cobra.Command {
	root := &cobra.Command{
		Use:           "campusfix",
		Short:         "CampusFix campus issue-tracking client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(client),
		newLogoutCmd(client),
		newWhoamiCmd(client),
		newIssuesCmd(client),
		newStatsCmd(client),
		newMessCmd(client),
	)
	return root
}
