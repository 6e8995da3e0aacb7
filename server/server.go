package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"TuneCrate/cache"
	"TuneCrate/config"
	"TuneCrate/core/artwork"
	"TuneCrate/core/auth"
	"TuneCrate/core/catalog"
	"TuneCrate/core/extract"
	"TuneCrate/core/ingest"
	"TuneCrate/core/watcher"
	"TuneCrate/db"
	"TuneCrate/logger"
	"TuneCrate/model"
	"TuneCrate/repository"
	"TuneCrate/storage"
)

// Start initializes all backing services and runs the HTTP server until
// interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer database.Close()

	if err := database.AutoMigrate(&model.User{}, &model.Song{}); err != nil {
		logger.Fatal("Failed to migrate database", logger.ErrorField(err))
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	blobs, err := storage.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", logger.ErrorField(err))
	}

	userRepo := repository.NewUserRepository(database.Gorm)
	songRepo := repository.NewSongRepository(database.Gorm)

	adminID, err := SeedAdmin(cfg, userRepo)
	if err != nil {
		logger.Fatal("Failed to seed admin account", logger.ErrorField(err))
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, 72*time.Hour)
	hub := NewProgressHub()

	extractor := extract.NewExtractor(&extract.ExtractorConfig{
		APIBaseURL:  cfg.ExtractorAPIURL,
		APIKey:      cfg.ExtractorAPIKey,
		Model:       cfg.ExtractorModel,
		MaxTokens:   cfg.ExtractorMaxTok,
		Temperature: cfg.ExtractorTemp,
	})
	catalogClient := catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogLimit)
	artFetcher := artwork.NewFetcher()

	pipeline := ingest.NewPipeline(extractor, catalogClient, artFetcher, songRepo, blobs, hub.Publish)
	registry := ingest.NewRegistry()
	queue := cache.NewQueueCache(redisClient)

	apiHandler := NewAPIHandler(cfg, userRepo, songRepo, pipeline, registry, blobs, queue, tokens, hub)

	router := mux.NewRouter()

	// CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Authentication
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// Ingestion (admin only)
	router.HandleFunc("/api/ingest/stage", apiHandler.AuthMiddleware(apiHandler.RequireAdmin(apiHandler.StageHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/ingest/process", apiHandler.AuthMiddleware(apiHandler.RequireAdmin(apiHandler.ProcessHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/ingest/batch", apiHandler.AuthMiddleware(apiHandler.RequireAdmin(apiHandler.BatchHandler))).Methods(http.MethodGet)
	router.HandleFunc("/api/ingest/batch", apiHandler.AuthMiddleware(apiHandler.RequireAdmin(apiHandler.ClearHandler))).Methods(http.MethodDelete)
	router.HandleFunc("/api/ingest/commit", apiHandler.AuthMiddleware(apiHandler.RequireAdmin(apiHandler.CommitHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/ingest/ws", apiHandler.ProgressWSHandler).Methods(http.MethodGet)

	// Library
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.GetSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.GetSongHandler)).Methods(http.MethodGet)
	router.HandleFunc("/media/{kind}/{id}", apiHandler.AuthMiddleware(apiHandler.MediaHandler)).Methods(http.MethodGet)

	// Play queue
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.QueueHandler)).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Optional drop-folder watcher.
	watcherCtx, cancelWatcher := context.WithCancel(context.Background())
	defer cancelWatcher()
	if cfg.WatchDir != "" {
		if adminID == 0 {
			logger.Warn("Drop folder watcher disabled; no admin account to own ingested songs")
		} else {
			dropWatcher := watcher.New(cfg.WatchDir, adminID, pipeline, blobs)
			go func() {
				if err := dropWatcher.Run(watcherCtx); err != nil && err != context.Canceled {
					logger.Error("Drop folder watcher stopped", logger.ErrorField(err))
				}
			}()
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// SeedAdmin ensures the configured admin account exists and returns its id.
// It returns 0 when no admin exists and no admin password is configured.
func SeedAdmin(cfg *config.Config, userRepo repository.UserRepository) (int64, error) {
	existing, err := userRepo.GetUserByUsername(cfg.AdminUsername)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	if cfg.AdminPassword == "" {
		logger.Warn("No admin password configured; skipping admin seed",
			logger.String("username", cfg.AdminUsername))
		return 0, nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return 0, err
	}

	adminID, err := userRepo.CreateUser(&model.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminUsername + "@tunecrate.local",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Seeded admin account", logger.String("username", cfg.AdminUsername))
	return adminID, nil
}
