package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mwhitfield/skytalk/gateway"
	"github.com/mwhitfield/skytalk/live"
	"github.com/mwhitfield/skytalk/minutes"
	"github.com/mwhitfield/skytalk/scenario"
	"github.com/mwhitfield/skytalk/session"
	"github.com/mwhitfield/skytalk/speech"
	"github.com/mwhitfield/skytalk/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	addr := flag.String("addr", ":8090", "HTTP listen address (host:port)")
	dataDir := flag.String("data", "data", "Directory for persisted state")
	storeKind := flag.String("store", "file", "Persistence backend: file or sqlite")
	inboxDir := flag.String("inbox", "", "Directory watched for dropped recordings (disabled when empty)")
	scenariosPath := flag.String("scenarios", "", "Path to a scenario catalog JSON file (built-in catalog when empty)")
	upstreamURL := flag.String("upstream", "", "Override the AI provider base URL")
	workers := flag.Int("workers", 2, "Concurrent inbox pipeline workers")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Debug("Received shutdown signal")
		cancel()
	}()

	var st store.Store
	switch *storeKind {
	case "file":
		fileStore, err := store.NewFileStore(*dataDir)
		if err != nil {
			slog.Error("Failed to open file store", "dir", *dataDir, "error", err)
			os.Exit(1)
		}
		st = fileStore
	case "sqlite":
		if err := os.MkdirAll(*dataDir, 0755); err != nil {
			slog.Error("Failed to create data directory", "dir", *dataDir, "error", err)
			os.Exit(1)
		}
		sqliteStore, err := store.OpenSQLite(filepath.Join(*dataDir, "skytalk.db"))
		if err != nil {
			slog.Error("Failed to open sqlite store", "dir", *dataDir, "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		st = sqliteStore
	default:
		slog.Error("Unknown store backend", "store", *storeKind)
		flag.Usage()
		os.Exit(1)
	}

	sessions, err := session.NewManager(st)
	if err != nil {
		slog.Error("Failed to load sessions", "error", err)
		os.Exit(1)
	}

	catalog, err := loadCatalog(*scenariosPath)
	if err != nil {
		slog.Error("Failed to load scenario catalog", "path", *scenariosPath, "error", err)
		os.Exit(1)
	}

	upstream, err := gateway.NewUpstream(gateway.UpstreamConfig{
		BaseURL:  *upstreamURL,
		APIKey:   os.Getenv("OPENAI_API_KEY"),
		ProxyURL: proxyFromEnv(),
	})
	if err != nil {
		slog.Error("Failed to configure upstream client", "error", err)
		os.Exit(1)
	}

	svc := minutes.NewService(st, upstream, upstream)

	if *inboxDir != "" {
		inbox, err := minutes.NewInbox(minutes.InboxConfig{Dir: *inboxDir, Workers: *workers}, svc)
		if err != nil {
			slog.Error("Failed to initialize recording inbox", "dir", *inboxDir, "error", err)
			os.Exit(1)
		}
		if err := inbox.Start(ctx); err != nil {
			slog.Error("Failed to start recording inbox", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := inbox.Stop(context.Background()); err != nil {
				slog.Error("Failed to stop recording inbox", "error", err)
			}
		}()
	}

	srv := gateway.New(gateway.Config{Addr: *addr}, gateway.Deps{
		Sessions: sessions,
		Minutes:  svc,
		Speech:   speech.NewHistory(st),
		Tracker:  scenario.NewTracker(st),
		Catalog:  catalog,
		Upstream: upstream,
		Hub:      live.NewHub(session.NewTranscriptSync(sessions)),
	})

	if err := srv.Start(ctx); err != nil {
		slog.Error("Gateway failed", "error", err)
		os.Exit(1)
	}

	slog.Debug("Program exiting")
}

func loadCatalog(path string) ([]scenario.Scenario, error) {
	if path == "" {
		return scenario.DefaultCatalog()
	}
	return scenario.LoadCatalog(path)
}

func proxyFromEnv() string {
	if proxy := os.Getenv("HTTPS_PROXY"); proxy != "" {
		return proxy
	}
	return os.Getenv("HTTP_PROXY")
}
