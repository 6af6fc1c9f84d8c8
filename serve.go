package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"humorize/auth"
	"humorize/caption"
	"humorize/config"
	"humorize/db"
	"humorize/handlers"
	"humorize/models"
	"humorize/storage"
	"humorize/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const sessionCookieName = "token"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	database, err := db.Open(cfg.MySQLDSN, cfg.SQLiteFile)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err = models.Init(database); err != nil {
		return nil, fmt.Errorf("migration: %w", err)
	}
	return database, nil
}

// newStateStore picks where the key quarantine is kept
func newStateStore(cfg *config.Config, database *gorm.DB) (caption.StateStore, error) {
	switch cfg.CaptionState {
	case config.CaptionStateRedis:
		return caption.NewRedisStateStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})), nil
	case config.CaptionStateMemory:
		return caption.NewMemoryStateStore(), nil
	}
	return caption.NewGormStateStore(database)
}

func newKeyPool(cfg *config.Config, database *gorm.DB) (*caption.KeyPool, error) {
	store, err := newStateStore(cfg, database)
	if err != nil {
		return nil, fmt.Errorf("caption state: %w", err)
	}
	return caption.NewKeyPool(cfg.CaptionAPIKeys, store, cfg.CaptionQuarantine, time.Now)
}

func sessionKey(cfg *config.Config) []byte {
	if cfg.SessionKey != "" {
		return []byte(cfg.SessionKey)
	}
	log.Warn().Msg("HUMORIZE_SESSION_KEY is not set, sessions will not survive a restart")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

func serve(cfg *config.Config) error {
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	pool, err := newKeyPool(cfg, database)
	if err != nil {
		return err
	}
	store, err := storage.New(cfg)
	if err != nil {
		return err
	}
	h := &handlers.Handlers{
		DB:        database,
		Storage:   store,
		Captioner: caption.NewClient(pool, caption.NewGeminiProvider(cfg.CaptionBaseURL), cfg.CaptionModel, caption.WithMaxImageSize(cfg.CaptionMaxImagePx)),
		Feed:      handlers.NewFeed(),
	}
	if cfg.GoogleEnabled() {
		h.Identity = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	if cfg.DebugMode {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.PublicBaseURL},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))

	sessionStore := gormsessions.NewStore(database, true, sessionKey(cfg))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: int(cfg.SessionMaxAge.Seconds()), HttpOnly: true})
	router.Use(sessions.Sessions(sessionCookieName, sessionStore))
	if !cfg.DebugMode {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{storage.MediaPrefix, "/gallery/live"})))
	}
	// No cache by default, stored images never change
	router.Use((&utils.CacheRouter{
		CacheTime: utils.CacheNoCache,
		Overrides: map[string]int{storage.MediaPrefix: 30 * 86400},
	}).Handler())

	h.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.StorageType == config.StorageTypeDisk {
		router.Static(storage.MediaPrefix, cfg.StorageDir)
	}

	log.Info().Int("keys", pool.Len()).Str("storage", cfg.StorageType).Str("caption_state", cfg.CaptionState).Msg("starting server")
	if domains := cfg.TLSDomainList(); len(domains) > 0 {
		err = autotls.Run(router, domains...)
	} else {
		err = router.Run(cfg.BindAddress)
	}
	return fmt.Errorf("server stopped: %w", err)
}
