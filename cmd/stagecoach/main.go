// main is the entry point of the Stagecoach application.
// It initializes the configuration, logger, database, GeoIP provider, browser
// session, and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wildwest-rp/stagecoach/internal/browser"
	"github.com/wildwest-rp/stagecoach/internal/config"
	"github.com/wildwest-rp/stagecoach/internal/directory"
	"github.com/wildwest-rp/stagecoach/internal/geoip"
	"github.com/wildwest-rp/stagecoach/internal/logger"
	"github.com/wildwest-rp/stagecoach/internal/server"
	"github.com/wildwest-rp/stagecoach/internal/status"
	"github.com/wildwest-rp/stagecoach/internal/storage"
)

// Seed values for a fresh deployment; the row is updated by the first
// successful scrape and editable through the database afterwards.
const (
	seedServerName  = "Wild West RP Server"
	seedDescription = "Experience the authentic Wild West in Red Dead Redemption 2 roleplay server"
	seedServerIP    = "127.0.0.1"
	seedServerPort  = 30120
	seedMaxPlayers  = 32
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Msg("Starting stagecoach service...")

	// GeoIP Update
	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	geoProvider, err := geoip.Open(cfg.GeoIP.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		geoProvider = nil
	} else {
		defer func() {
			if err := geoProvider.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing GeoIP provider")
			}
		}()
	}

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	if err := store.EnsureDefault(seedServerName, seedDescription, seedServerIP, seedServerPort, seedMaxPlayers); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed server status record")
	}

	// Shared browser session, started lazily on the first upstream fetch
	session := browser.NewSession(cfg.Status.BrowserHeadless)

	client := directory.NewClient(session, cfg.Status)
	orchestrator := status.New(client, store, cfg.Status)

	srvHandler := server.New(orchestrator, geoProvider, cfg)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srvHandler.Run(),
		// Write timeout must cover a full upstream fetch attempt
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Status.FetchTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Shut down HTTP
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Tear down the shared browser process
	session.Close()

	// Close DB
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}

	log.Info().Msg("Server exited")
}
