// cmd/monitor/main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folderMon/internal/api"
	"folderMon/internal/console"
	"folderMon/internal/model"
	"folderMon/internal/monitor"
)

func main() {
	cfg := monitor.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	var configFile string
	var sink string
	var apiPort int

	flag.StringVar(&configFile, "config", "", "YAML config file (root, pollIntervalSeconds, logFile, watch)")
	flag.StringVar(&cfg.RootPath, "root", cfg.RootPath, "Root directory to monitor")
	flag.IntVar(&cfg.PollIntervalSeconds, "poll-interval", cfg.PollIntervalSeconds, "Polling interval in seconds")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Change log file")
	flag.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Run an extra pass as soon as fsnotify reports a change")
	flag.StringVar(&sink, "sink", "none", "Mirror change events to a database: none, postgres or oracle")
	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Events per mirror batch")
	flag.IntVar(&cfg.BatchIntervalSeconds, "batch-interval", cfg.BatchIntervalSeconds, "Mirror flush interval in seconds")
	flag.IntVar(&apiPort, "api-port", 0, "API server port (0 to disable)")
	flag.Parse()

	if configFile != "" {
		if err := loadConfigFile(&cfg, configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store, err := openSink(sink)
	if err != nil {
		log.Fatalf("Failed to create event sink: %v", err)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("Error closing event store: %v", err)
			}
		}()
		cfg.Sink = store
	}

	folderMonitor, err := monitor.NewMonitor(cfg)
	if err != nil {
		log.Fatalf("Failed to create monitor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if apiPort > 0 {
		server = &http.Server{Addr: fmt.Sprintf(":%d", apiPort)}
		apiServer := api.NewMonitorAPI(folderMonitor)
		go func() {
			log.Printf("Starting API server on %s", server.Addr)
			if err := apiServer.ServeWithServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("API server error: %v", err)
			}
		}()
	}

	if err := folderMonitor.Start(ctx); err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}
	log.Printf("Monitoring %s every %v, logging to %s", cfg.RootPath, cfg.PollInterval(), folderMonitor.ChangeLog().Path())

	if err := console.New(folderMonitor, os.Stdin, os.Stdout).Run(ctx); err != nil {
		log.Printf("Console error: %v", err)
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping API server: %v", err)
		}
		cancel()
	}

	log.Println("Monitor stopped.")
}

// loadConfigFile overlays the YAML file, then re-applies any flag given on
// the command line so explicit flags win.
func loadConfigFile(cfg *monitor.Config, path string) error {
	explicit := *cfg
	if err := cfg.LoadFile(path); err != nil {
		return err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.RootPath = explicit.RootPath
		case "poll-interval":
			cfg.PollIntervalSeconds = explicit.PollIntervalSeconds
		case "log-file":
			cfg.LogFile = explicit.LogFile
		case "watch":
			cfg.Watch = explicit.Watch
		case "batch-size":
			cfg.BatchSize = explicit.BatchSize
		case "batch-interval":
			cfg.BatchIntervalSeconds = explicit.BatchIntervalSeconds
		}
	})
	return nil
}

func openSink(name string) (*model.EventStore, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "postgres":
		log.Println("Mirroring change events to PostgreSQL")
		return model.NewPostgresEventStore()
	case "oracle":
		log.Println("Mirroring change events to Oracle")
		return model.NewOracleEventStore()
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}
