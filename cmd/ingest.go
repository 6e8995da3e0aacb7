package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"TuneCrate/config"
	"TuneCrate/core/artwork"
	"TuneCrate/core/catalog"
	"TuneCrate/core/extract"
	"TuneCrate/core/ingest"
	"TuneCrate/db"
	"TuneCrate/logger"
	"TuneCrate/model"
	"TuneCrate/repository"
	"TuneCrate/server"
	"TuneCrate/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "One-shot batch ingest of a local directory",
	Long: `Stages every audio file in the given directory, runs the enrichment
pipeline over them sequentially and commits the successes to the library.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		database, err := db.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.AutoMigrate(&model.User{}, &model.Song{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		blobs, err := storage.New(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}

		songRepo := repository.NewSongRepository(database.Gorm)
		userRepo := repository.NewUserRepository(database.Gorm)

		// Committed songs are owned by the configured admin account.
		adminID, err := server.SeedAdmin(cfg, userRepo)
		if err != nil {
			log.Fatalf("Failed to resolve admin account: %v", err)
		}
		if adminID == 0 {
			log.Fatalf("No admin account available; set ADMIN_PASSWORD to seed one")
		}

		extractor := extract.NewExtractor(&extract.ExtractorConfig{
			APIBaseURL:  cfg.ExtractorAPIURL,
			APIKey:      cfg.ExtractorAPIKey,
			Model:       cfg.ExtractorModel,
			MaxTokens:   cfg.ExtractorMaxTok,
			Temperature: cfg.ExtractorTemp,
		})
		catalogClient := catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogLimit)

		pipeline := ingest.NewPipeline(extractor, catalogClient, artwork.NewFetcher(), songRepo, blobs,
			func(_ int64, update ingest.ProgressUpdate) {
				if update.Status.Terminal() {
					line := fmt.Sprintf("[%d/%d] %s: %s", update.Processed, update.Total, update.Filename, update.Status)
					if update.Error != "" {
						line += " (" + update.Error + ")"
					}
					fmt.Println(line)
				}
			})

		if err := runDirIngest(cmd.Context(), args[0], adminID, pipeline, blobs); err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
	},
}

var ingestExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".aac":  true,
}

// runDirIngest stages all audio files under dir into one batch owned by the
// given admin, processes it and commits the successes.
func runDirIngest(ctx context.Context, dir string, ownerID int64, pipeline *ingest.Pipeline, blobs *storage.Store) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	batch := ingest.NewBatch(ownerID)
	var files []ingest.StagedFile
	var stagedKeys []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !ingestExtensions[ext] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			fmt.Printf("skipping %s: %v\n", entry.Name(), err)
			continue
		}

		info, err := f.Stat()
		if err != nil {
			f.Close()
			fmt.Printf("skipping %s: %v\n", entry.Name(), err)
			continue
		}

		var tagGuess *model.TrackGuess
		if guess, ok := extract.ProbeTags(f); ok {
			tagGuess = &guess
		}
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			continue
		}

		audioKey := "staging/" + batch.ID + "/" + entry.Name()
		if err := blobs.PutStream(ctx, audioKey, f, info.Size(), "application/octet-stream"); err != nil {
			f.Close()
			return fmt.Errorf("failed to stage %s: %w", entry.Name(), err)
		}
		f.Close()
		stagedKeys = append(stagedKeys, audioKey)

		files = append(files, ingest.StagedFile{
			Filename:    entry.Name(),
			AudioKey:    audioKey,
			Size:        info.Size(),
			ContentType: "application/octet-stream",
			TagGuess:    tagGuess,
		})
	}

	if len(files) == 0 {
		fmt.Println("No audio files found.")
		return nil
	}

	if _, err := pipeline.Stage(batch, files); err != nil {
		blobs.RemoveAll(ctx, stagedKeys)
		return err
	}
	fmt.Printf("Staged %d files, processing...\n", len(files))

	if err := pipeline.ProcessAll(ctx, batch); err != nil {
		return err
	}

	songs, err := pipeline.Commit(ctx, batch, ownerID)
	blobs.RemoveAll(ctx, batch.StagingKeys())
	if err != nil {
		var commitErr *ingest.CommitError
		if errors.As(err, &commitErr) {
			blobs.RemoveAll(ctx, commitErr.UploadedKeys)
		}
		return err
	}

	fmt.Printf("Committed %d of %d files to the library.\n", len(songs), len(files))
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
