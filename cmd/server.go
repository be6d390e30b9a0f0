package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"echofm/config"
	"echofm/logger"
	"echofm/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the echofm HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer() {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: filepath.Join(cfg.LogDir, "echofm.log"),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	server.Start(cfg)
}
