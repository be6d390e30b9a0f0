package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"echofm/config"
	"echofm/core/audio"
	"echofm/core/extractor"
	"echofm/core/mediacache"
	"echofm/core/playlist"
	"echofm/core/stream"
	"echofm/db"
	"echofm/logger"
)

// Start wires up all components and runs the HTTP server until SIGINT/SIGTERM.
func Start(cfg *config.Config) {
	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal("failed to create directories", logger.ErrorField(err))
	}

	// Redis only backs the extractor info cache; run without it if needed.
	rdb, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Warn("running without Redis info cache", logger.ErrorField(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	ex := extractor.WithInfoCache(extractor.NewYtdlp(cfg.YtdlpPath), rdb, cfg.InfoCacheTTL)
	cache := mediacache.New(cfg.CacheDir, cfg.DefaultQuality, cfg.DownloadTimeout, ex)
	transcoder := audio.NewFFmpeg(cfg.FFmpegPath, cfg.CacheDir)
	if transcoder.Available() {
		cache.SetProber(transcoder)
	} else {
		logger.Warn("ffmpeg not found, sidecar metadata may be incomplete",
			logger.String("path", cfg.FFmpegPath))
	}

	pl := playlist.Load(cfg.PlaylistFile)
	gateway := stream.NewGateway(cache)

	settings := config.NewSettingsStore(cfg.SettingsFile, config.DefaultSettings(cfg.DefaultQuality))
	if err := settings.Watch(); err != nil {
		logger.Warn("settings watcher disabled", logger.ErrorField(err))
	}
	defer settings.Close()

	api := NewAPIHandler(pl, cache, gateway, ex, transcoder, settings, cfg)

	server := &http.Server{
		Addr:        cfg.Addr,
		Handler:     newRouter(api),
		ReadTimeout: 30 * time.Second,
		// A first-time stream request downloads before serving, so the write
		// timeout has to cover a full download.
		WriteTimeout: cfg.DownloadTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

// newRouter builds the full API route table.
func newRouter(api *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/playlist", api.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlist/add", api.AddToPlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/remove/{track_id}", api.RemoveFromPlaylistHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlist/move", api.MoveTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/clear", api.ClearPlaylistHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlist/shuffle", api.ShufflePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/current", api.CurrentTrackHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/api/playlist/next", api.NextTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/previous", api.PreviousTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/mode", api.SetModeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist/export", api.ExportPlaylistHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/audio/stream/{track_id}", api.StreamAudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/audio/download/{track_id}", api.DownloadAudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/audio/info", api.AudioInfoHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/settings", api.SettingsHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/api/cache/clear", api.ClearCacheHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/cache/info", api.CacheInfoHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/health", api.HealthHandler).Methods(http.MethodGet)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
