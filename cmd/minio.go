package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"TuneCrate/config"
	"TuneCrate/logger"
	"TuneCrate/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Object storage connectivity check",
	Long:  `Verifies the MinIO connection and that the configured bucket is reachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.New(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Fatalf("MinIO ping failed: %v", err)
		}
		fmt.Println("MinIO connection OK.")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
