package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiger-colonel/xyflow-study/internal/auth"
	"github.com/tiger-colonel/xyflow-study/internal/config"
	"github.com/tiger-colonel/xyflow-study/internal/engine"
	"github.com/tiger-colonel/xyflow-study/internal/flows"
	mw "github.com/tiger-colonel/xyflow-study/internal/middleware"
	"github.com/tiger-colonel/xyflow-study/internal/session"
	"github.com/tiger-colonel/xyflow-study/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	level, err := cfg.Level()
	if err != nil {
		slog.Warn("falling back to info logging", "error", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	flowService := flows.NewService()
	flowHandler := flows.NewHandler(flowService)

	hub := session.NewHub(engine.OptionsFromConfig(cfg), cfg.FrameInterval, flowService)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","rooms":%d}`, hub.Rooms())
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if cfg.DevTokens {
		slog.Warn("dev token endpoint enabled")
		r.HandleFunc("/auth/dev-token", authHandler.IssueDevToken).Methods("POST")
	}

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/flows", flowHandler.List).Methods("GET")
	api.HandleFunc("/flows", flowHandler.Create).Methods("POST")
	api.HandleFunc("/flows/{flowId}", flowHandler.Get).Methods("GET")
	api.HandleFunc("/flows/{flowId}", flowHandler.Delete).Methods("DELETE")
	api.HandleFunc("/flows/{flowId}/snapshots/latest", flowHandler.GetLatestSnapshot).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/flow/{flowId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, flowService, cfg.AllowedOrigins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.AllowedOrigins)(r), // preflights never reach route matching
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Close()

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

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, flowSvc *flows.Service, origins []string) {
	flowID := mux.Vars(r)["flowId"]
	if err := typeid.Validate(flowID, typeid.PrefixFlow); err != nil {
		http.Error(w, "invalid flow id", http.StatusBadRequest)
		return
	}

	// Browsers cannot set headers on an upgrade, so the token comes as a
	// query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !claims.Allows(flowID) {
		http.Error(w, "token not valid for this flow", http.StatusForbidden)
		return
	}
	if _, err := flowSvc.Get(r.Context(), flowID); err != nil {
		http.Error(w, "flow not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := session.NewClient(hub, conn, uuid.New().String(), claims.Subject, flowID)
	hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
