// Program cwtrainer serves browser-based Morse practice sessions: a
// WebSocket transport feeds paddle events into per-session keyer/decoder
// pairs, and finished sessions are persisted to SQLite summaries and a
// Pebble transcript archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"cwtrainer/archive"
	"cwtrainer/config"
	"cwtrainer/drill"
	"cwtrainer/recorder"
	"cwtrainer/session"
	"cwtrainer/sqliteutil"
	"cwtrainer/stats"
	"cwtrainer/web"
)

const (
	defaultConfigPath  = "data/config.yaml"
	envConfigPath      = "CWTRAINER_CONFIG"
	statsReportPeriod  = 5 * time.Minute
	archiveSweepPeriod = 6 * time.Hour
	shutdownTimeout    = 5 * time.Second
)

func main() {
	cfgPath := os.Getenv(envConfigPath)
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			cfg = config.Default()
			fmt.Printf("No config at %s, using defaults\n", cfgPath)
		} else {
			fmt.Fprintf(os.Stderr, "Config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Print()

	// Console logging only when attached to a terminal; the daily file
	// sink carries everything either way.
	loggingCfg := cfg.Logging
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		loggingCfg.Console = false
	}
	fanout, err := setupLogging(loggingCfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging: %v (continuing console-only)\n", err)
	}
	log.SetFlags(0)
	log.SetOutput(fanout)
	defer fanout.Close()

	tracker := stats.NewTracker()
	manager := session.NewManager()

	var rec *recorder.Recorder
	if cfg.Stats.Enabled {
		if _, err := sqliteutil.Preflight(cfg.Stats.Path, 2*time.Second, log.Printf); err != nil {
			log.Printf("Stats: preflight: %v; summaries disabled", err)
		} else if rec, err = recorder.NewRecorder(cfg.Stats.Path, cfg.Stats.MaxSessions); err != nil {
			log.Printf("Stats: %v; summaries disabled", err)
			rec = nil
		}
	}
	defer rec.Close()

	var arch *archive.Store
	if cfg.Archive.Enabled {
		arch, err = archive.Open(cfg.Archive.Dir)
		if err != nil {
			log.Printf("Archive: %v; transcripts disabled", err)
			arch = nil
		}
	}
	defer func() {
		if arch != nil {
			arch.Close()
		}
	}()

	manager.OnClose = func(sum session.Summary) {
		if rec != nil {
			rec.Record(sum)
		}
		if arch != nil {
			if err := arch.Put(sum); err != nil {
				log.Printf("Archive: put %s: %v", sum.ID, err)
			}
		}
		log.Printf("Session %s closed: mode=%s tokens=%d decoder=%.1f wpm",
			sum.ID, sum.Mode, sum.Tokens, sum.DecoderWPM)
	}

	drills := drill.New(time.Now().UnixNano())
	server := web.NewServer(*cfg, manager, tracker, drills, log.Printf)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  0, // WebSocket connections are long-lived
		WriteTimeout: 0,
	}
	go func() {
		log.Printf("Web: listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Web: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan struct{})
	go statsReporter(tracker, manager, quit)
	if arch != nil && cfg.Archive.RetentionDays > 0 {
		go archiveSweeper(arch, cfg.Archive.RetentionDays, quit)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("Shutting down")
	close(quit)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	manager.CloseAll()
	for _, line := range tracker.SnapshotLines() {
		log.Printf("%s", line)
	}
	log.Printf("Uptime: %s", tracker.Uptime().Round(time.Second))
}

// statsReporter logs headline counters on a fixed period so long-running
// installs leave a progress trail in the daily logs.
func statsReporter(tracker *stats.Tracker, manager *session.Manager, quit chan struct{}) {
	ticker := time.NewTicker(statsReportPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sessions, elements, tokens, unknown := tracker.Totals()
			log.Printf("Stats: %s sessions (%d live), %s elements, %s tokens (%s unrecognized)",
				humanize.Comma(int64(sessions)),
				manager.Count(),
				humanize.Comma(int64(elements)),
				humanize.Comma(int64(tokens)),
				humanize.Comma(int64(unknown)))
		case <-quit:
			return
		}
	}
}

// archiveSweeper enforces transcript retention in the background.
func archiveSweeper(arch *archive.Store, retentionDays int, quit chan struct{}) {
	ticker := time.NewTicker(archiveSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
			removed, err := arch.Sweep(cutoff)
			if err != nil {
				log.Printf("Archive: sweep: %v", err)
			} else if removed > 0 {
				log.Printf("Archive: swept %d sessions older than %d days", removed, retentionDays)
			}
		case <-quit:
			return
		}
	}
}
