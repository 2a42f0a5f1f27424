// Fieldlined is the main daemon for the Fieldline Engine magnetic topology
// classifier.
//
// It loads configuration, starts the HTTP/WebSocket server, and runs either
// the batch job runner against a live field model server or a demo loop
// depending on config. Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/fieldline-engine/internal/app"
	"github.com/large-farva/fieldline-engine/internal/config"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/fieldline/fieldline.toml", "Path to config TOML")
		bind       = pflag.String("bind", "0.0.0.0:8080", "HTTP bind address")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := log.New(os.Stdout, "fieldlined ", log.LstdFlags|log.Lmicroseconds)

	a, err := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		Bind:       *bind,
		ConfigPath: *configPath,
	})
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("fieldlined failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
