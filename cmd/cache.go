package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"echofm/config"
	"echofm/core/extractor"
	"echofm/core/mediacache"
	"echofm/logger"
)

var (
	purgePlatform string
	purgeDays     int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the audio cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached audio older than a given age",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		cache := mediacache.New(cfg.CacheDir, cfg.DefaultQuality, cfg.DownloadTimeout,
			extractor.NewYtdlp(cfg.YtdlpPath))
		removed, err := cache.Evict(purgePlatform, purgeDays)
		if err != nil {
			fmt.Fprintf(os.Stderr, "purge failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("removed %d cached files\n", removed)
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache usage by platform",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		cache := mediacache.New(cfg.CacheDir, cfg.DefaultQuality, cfg.DownloadTimeout,
			extractor.NewYtdlp(cfg.YtdlpPath))
		report, err := cache.Usage()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cache info failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d files, %.1f MB\n", report.FileCount, report.TotalSizeMB)
		for platform, usage := range report.ByPlatform {
			fmt.Printf("  %-12s %4d files, %6.1f MB\n", platform, usage.Count, float64(usage.Size)/(1024*1024))
		}
	},
}

func init() {
	cachePurgeCmd.Flags().StringVar(&purgePlatform, "platform", "", "limit the purge to one platform directory")
	cachePurgeCmd.Flags().IntVar(&purgeDays, "days", 7, "remove files older than this many days")
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	rootCmd.AddCommand(cacheCmd)
}
