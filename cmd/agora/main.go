package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/iceymoss/go-agora/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	// .env 可选，缺失时只使用系统环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(".env load failed", zap.Error(err))
	}

	if err := rootCmd().Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agora",
		Short:         "trending keywords, topic voting and discussion backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "config file")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(taskCmd())
	return root
}
