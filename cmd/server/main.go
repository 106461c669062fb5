package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/curvelab/curvelab/backend-go/internal/auth"
	"github.com/curvelab/curvelab/backend-go/internal/config"
	"github.com/curvelab/curvelab/backend-go/internal/curvedoc"
	"github.com/curvelab/curvelab/backend-go/internal/library"
	"github.com/curvelab/curvelab/backend-go/internal/live"
	mw "github.com/curvelab/curvelab/backend-go/internal/middleware"
	"github.com/curvelab/curvelab/backend-go/internal/store"
	"github.com/curvelab/curvelab/backend-go/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queries := store.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	libraryService := library.NewService(queries)
	libraryHandler := library.NewHandler(libraryService)

	// Document loader for live sessions. Runs on the hub goroutine, so it
	// uses a background context.
	docLoader := func(curveID string) (*curvedoc.Document, error) {
		snap, err := queries.GetLatestSnapshot(context.Background(), curveID)
		if err != nil {
			return nil, err
		}
		var doc curvedoc.Document
		if err := json.Unmarshal(snap.Document, &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}

	// Document saver for live sessions: persists the session's final state
	// as the next snapshot version.
	docSaver := func(curveID string, doc *curvedoc.Document) error {
		nextVersion := int32(1)
		if snap, err := queries.GetLatestSnapshot(context.Background(), curveID); err == nil {
			nextVersion = snap.Version + 1
		}
		doc.Version = int(nextVersion)

		docJSON, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}

		_, err = queries.CreateSnapshot(context.Background(), store.CreateSnapshotParams{
			ID:       typeid.NewSnapshotID(),
			CurveID:  curveID,
			Version:  nextVersion,
			Document: docJSON,
		})
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		return nil
	}

	hub := live.NewHub(docLoader, docSaver, cfg.BakeQuiescence())
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/presets", libraryHandler.ListPresets).Methods("GET")
	api.HandleFunc("/curves", libraryHandler.List).Methods("GET")
	api.HandleFunc("/curves", libraryHandler.Create).Methods("POST")
	api.HandleFunc("/curves/{curveId}", libraryHandler.Get).Methods("GET")
	api.HandleFunc("/curves/{curveId}", libraryHandler.Delete).Methods("DELETE")
	api.HandleFunc("/curves/{curveId}/document", libraryHandler.GetDocument).Methods("GET")
	api.HandleFunc("/curves/{curveId}/document", libraryHandler.SaveDocument).Methods("PUT")
	api.HandleFunc("/curves/{curveId}/baked", libraryHandler.GetBakedTable).Methods("GET")

	// WebSocket endpoint for live curve editing
	r.HandleFunc("/ws/curves/{curveId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, libraryService, cfg.AllowedOrigins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every live session is persisted and its
		// background baker joined.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *live.Hub, authSvc *auth.Service, lib *library.Service, allowedOrigins string) {
	curveID := mux.Vars(r)["curveId"]

	// Auth via query param; browsers cannot set headers on websockets.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := lib.Get(r.Context(), curveID, userID); err != nil {
		http.Error(w, "curve not accessible", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(allowedOrigins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := live.NewClient(hub, conn, userID, curveID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns strips schemes from the configured origins; the
// websocket library matches host patterns.
func originPatterns(allowedOrigins string) []string {
	var patterns []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
