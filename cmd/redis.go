package cmd

import (
	"fmt"
	"log"

	"TuneCrate/config"
	"TuneCrate/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis connectivity check",
	Long:  `Verifies the Redis connection and runs a basic read/write round trip.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		fmt.Println("Redis connection OK.")

		if err := db.TestRedis(client); err != nil {
			log.Fatalf("Redis round trip failed: %v", err)
		}
		fmt.Println("Redis round trip OK.")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
