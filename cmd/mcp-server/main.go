// cmd/mcp-server/main.go: standalone HTTP tool server for notesolve
//
// Exposes the notesolve engine as an HTTP endpoint for AI agent frameworks.
// Every session owns one Engine, so variables stored by one client never
// leak into another.
//
// Usage:
//
//	go run ./cmd/mcp-server -port 8080 -config notesolve.yaml
//
// Session endpoint:   POST /session  -> {"session": "<id>"}
// Tool call endpoint: POST /tool     (header X-Session-ID)
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/njchilds90/notesolve"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	configPath := flag.String("config", "", "YAML config file")
	ttl := flag.Duration("session-ttl", 30*time.Minute, "Evict sessions idle for this long")
	flag.Parse()

	cfg := notesolve.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = notesolve.LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv := newServer(cfg, logger, *ttl)
	stop := srv.startJanitor(*ttl / 2)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("notesolve tool server listening", "addr", addr, "session_ttl", *ttl)
	logger.Info("routes",
		"session", "POST /session",
		"tool", "POST /tool",
		"schema", "GET /schema",
		"health", "GET /health")

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
