package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledpanel/internal/app"
	"github.com/dokzlo13/ledpanel/internal/config"
	"github.com/dokzlo13/ledpanel/internal/db"
	"github.com/dokzlo13/ledpanel/internal/logging"
	"github.com/dokzlo13/ledpanel/internal/mock"
	"github.com/dokzlo13/ledpanel/internal/state"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	resetState := flag.Bool("reset-state", false, "Clear stored schedule and color on startup")
	flag.Parse()

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Setup(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	database, err := db.Open(cfg.Mock.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	st := state.NewStore(database.DB)
	if *resetState {
		log.Info().Msg("Clearing stored controller state (--reset-state)")
		if err := st.Clear(""); err != nil {
			log.Warn().Err(err).Msg("Failed to clear state")
		}
	}

	server, err := mock.NewServer(st, mock.Config{
		SequencesDir: cfg.Mock.SequencesDir,
		PollTimeout:  cfg.Mock.PollTimeout.Duration(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create mock controller")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Mock.Host, cfg.Mock.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	ctx := app.SignalContext()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Mock controller shutdown error")
		}
	}()

	log.Info().
		Str("addr", addr).
		Str("sequences", cfg.Mock.SequencesDir).
		Msg("Starting mock LED controller")

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Mock controller failed")
	}

	log.Info().Msg("Mock controller stopped")
}
