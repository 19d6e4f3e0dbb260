package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hearthos/shell/internal/infrastructure/config"
	"github.com/hearthos/shell/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (environment overrides used when empty)")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.FromFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	// Window and bus transports attach at the session boundary; the
	// service starts without them and still serves the launch-intent
	// and read APIs.
	srv, err := server.New(cfg, server.Transports{})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
