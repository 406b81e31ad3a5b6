package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/resolverd/resolverd/internal/infrastructure/config"
	"github.com/resolverd/resolverd/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	seedPath := flag.String("seed", "", "Seed file path (overrides SEED_PATH)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *seedPath != "" {
		cfg.Resolver.SeedPath = *seedPath
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
