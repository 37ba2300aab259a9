package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whiteboard-sync-server/internal/config"
	"whiteboard-sync-server/internal/conflict"
	"whiteboard-sync-server/internal/handler"
	"whiteboard-sync-server/internal/localcache"
	"whiteboard-sync-server/internal/logger"
	"whiteboard-sync-server/internal/middleware"
	"whiteboard-sync-server/internal/service"
	"whiteboard-sync-server/internal/store"
	"whiteboard-sync-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", err)
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		logger.Fatal("failed to configure logging", err)
	}

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		logger.Fatal("failed to connect to CouchDB", err)
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		logger.Fatal("failed to check database existence", err)
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			logger.Fatal("failed to create database", err)
		}
		logger.Info("created database", map[string]interface{}{"name": cfg.Database.Name})
	}

	accountStore := store.NewAccountStore(client, cfg.Database.Name)
	projectStore := store.NewProjectStore(client, cfg.Database.Name)
	pageStore := store.NewPageStore(client, cfg.Database.Name)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go wsManager.Run()

	resolver := conflict.NewResolver(projectStore, pageStore, nil)
	cache := localcache.New(cfg.Sync.LocalCacheDir)

	authService := service.NewAuthService(accountStore, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	syncService := service.NewSyncService(projectStore, pageStore, resolver, cache, cfg.Sync.LocalFlushDebounce)
	syncService.SetNotifier(websocket.NewNotifier(wsManager))

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(syncService)
	syncHandler := handler.NewSyncHandler(syncService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret,
		cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")

	// Document and sync routes take optional auth: without credentials they
	// operate on the guest document set backed by the local cache.
	docs := api.PathPrefix("").Subrouter()
	docs.Use(middleware.OptionalAuthMiddleware(cfg.JWT.Secret))

	docs.HandleFunc("/documents", documentHandler.GetDocuments).Methods("GET", "OPTIONS")
	docs.HandleFunc("/documents/active", documentHandler.SetActive).Methods("PUT", "OPTIONS")

	docs.HandleFunc("/projects", documentHandler.CreateProject).Methods("POST", "OPTIONS")
	docs.HandleFunc("/projects/{id}", documentHandler.RenameProject).Methods("PUT", "OPTIONS")
	docs.HandleFunc("/projects/{id}", documentHandler.DeleteProject).Methods("DELETE", "OPTIONS")

	docs.HandleFunc("/pages", documentHandler.CreatePage).Methods("POST", "OPTIONS")
	docs.HandleFunc("/pages/{id}", documentHandler.UpdatePage).Methods("PUT", "OPTIONS")
	docs.HandleFunc("/pages/{id}", documentHandler.DeletePage).Methods("DELETE", "OPTIONS")

	docs.HandleFunc("/sync/save", syncHandler.Save).Methods("POST", "OPTIONS")
	docs.HandleFunc("/sync/conflict", syncHandler.GetConflict).Methods("GET", "OPTIONS")
	docs.HandleFunc("/sync/conflict/resolve", syncHandler.ResolveConflict).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting whiteboard sync server", map[string]interface{}{
			"addr": addr,
			"env":  cfg.Server.Env,
			"db":   fmt.Sprintf("%s:%s", cfg.Database.Host, cfg.Database.Port),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", err)
	}

	logger.Info("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"whiteboard-sync-server"}`))
}
