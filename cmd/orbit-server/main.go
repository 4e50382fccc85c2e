// orbit-server runs the interactive solar-system simulation and mission
// planner as an HTTP + websocket service.
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

	"github.com/orbitengine/server/internal/config"
	"github.com/orbitengine/server/internal/journal"
	"github.com/orbitengine/server/internal/metrics"
	"github.com/orbitengine/server/internal/server"
	"github.com/orbitengine/server/internal/simulation"
	"github.com/orbitengine/server/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	port := flag.String("port", "", "HTTP port (overrides ORBIT_PORT)")
	tickHz := flag.Float64("tick-hz", 0, "simulation tick rate in Hz (overrides ORBIT_TICK_HZ)")
	logDir := flag.String("log-dir", "", "journal output directory (overrides ORBIT_JOURNAL_DIR)")
	noJournal := flag.Bool("no-log", false, "disable the simulation journal")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *tickHz > 0 {
		cfg.TickHz = *tickHz
	}
	if *logDir != "" {
		cfg.JournalDir = *logDir
	}
	if *noJournal {
		cfg.JournalEnabled = false
	}

	log := telemetry.NewLogger(cfg.LogLevel, cfg.LogOutput)
	log.WithField("env", cfg.Env).Info("orbit-server starting")

	m := metrics.Get()

	var jr *journal.Writer
	if cfg.JournalEnabled {
		jr, err = journal.New(cfg.JournalDir, log)
		if err != nil {
			log.WithError(err).Error("failed to initialize journal")
			return 1
		}
		jr.Start()
		defer jr.Stop()
	}

	hub := server.NewHub(m, log)

	engine := simulation.NewEngine(cfg.TickHz, 0, log, func(snap simulation.Snapshot) {
		hub.Broadcast(snap)
		if jr != nil {
			jr.Write(journal.Entry{SimTime: snap.SimTime, Kind: "tick", Data: snap})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	engine.Start(ctx)
	defer engine.Stop()

	router := server.NewRouter(engine, hub, cfg.CORSAllowedOrigins, m, log)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed")
			return 1
		}
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
			return 1
		}
	}

	return 0
}
