// Command flighttrak runs the aircraft telemetry monitor: it polls a
// dump1090-compatible feed, tracks trajectories, alerts on watch-listed
// flybys, behavioral anomalies, and emergency squawks, and serves the
// HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/config"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/handler"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/history"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/monitor"
	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/notify"
)

func main() {
	configPath := flag.String("config", "flighttrak.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log)

	log.Info().
		Str("feed_url", cfg.Feed.URL).
		Str("addr", cfg.Server.Addr).
		Int("watchlist", len(cfg.Watchlist)).
		Int("zones", len(cfg.Zones)).
		Msg("Starting flighttrak")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	sinks, natsSink := buildSinks(cfg)
	defer func() {
		if natsSink != nil {
			natsSink.Close()
		}
	}()

	db := connectHistory(ctx, cfg.DatabaseURL)
	defer func() {
		if db != nil {
			db.Close()
		}
	}()

	dispatcher := notify.NewDispatcher(sinks, cfg.Sinks.QueueSize, log.Logger)
	mon := monitor.New(cfg, dispatcher, log.Logger)

	wsHub := handler.NewWebSocketHub(log.Logger)
	mon.OnAlert(wsHub.BroadcastAlert)
	if db != nil {
		mon.OnAlert(func(a alert.Alert) {
			archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer archiveCancel()
			if err := db.InsertAlert(archiveCtx, a); err != nil {
				log.Error().Err(err).Str("alert_id", a.ID).Msg("Failed to archive alert")
			}
		})
	}

	api := handler.NewServer(mon, wsHub, db, natsSink, *configPath, cfg.Server, log.Logger)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		dispatcher.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		if err := mon.Run(gCtx); err != nil && err != context.Canceled {
			return fmt.Errorf("monitor error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
	}

	dispatcher.Wait()
	log.Info().Msg("flighttrak shutdown complete")
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// buildSinks assembles the notification destinations. The log sink is
// always present; webhook and NATS activate when configured. A NATS
// connection failure downgrades to the remaining sinks rather than
// refusing to start.
func buildSinks(cfg *config.Config) ([]notify.Sink, *notify.NATSSink) {
	sinks := []notify.Sink{notify.NewLogSink(log.Logger)}

	if cfg.Sinks.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Sinks.WebhookURL, cfg.Sinks.WebhookTimeout()))
		log.Info().Str("url", cfg.Sinks.WebhookURL).Msg("Webhook sink enabled")
	}

	var natsSink *notify.NATSSink
	if cfg.Sinks.NATSURL != "" {
		sink, err := notify.ConnectNATS(cfg.Sinks.NATSURL, log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without message bus")
		} else {
			natsSink = sink
			sinks = append(sinks, sink)
			log.Info().Str("url", cfg.Sinks.NATSURL).Msg("NATS sink enabled")
		}
	}

	return sinks, natsSink
}

// connectHistory opens the optional alert archive. A failure is a warning
// not a fatal: the monitor's core job does not depend on persistence.
func connectHistory(ctx context.Context, url string) *history.Pool {
	if url == "" {
		return nil
	}

	db, err := history.NewPoolFromURL(ctx, url)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to PostgreSQL, continuing without alert archive")
		return nil
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to prepare alert archive schema, continuing without it")
		db.Close()
		return nil
	}
	log.Info().Msg("Alert archive enabled")
	return db
}
