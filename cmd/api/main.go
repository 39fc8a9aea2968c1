package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barbizo19/mapty/internal/api"
	"github.com/barbizo19/mapty/internal/config"
	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/engine"
	"github.com/barbizo19/mapty/internal/events"
	"github.com/barbizo19/mapty/internal/geocode"
	"github.com/barbizo19/mapty/internal/geolocation"
	"github.com/barbizo19/mapty/internal/mapview"
	"github.com/barbizo19/mapty/internal/persistence"
	"github.com/barbizo19/mapty/internal/persistence/file"
	"github.com/barbizo19/mapty/internal/persistence/memory"
	"github.com/barbizo19/mapty/internal/persistence/postgres"
	"github.com/barbizo19/mapty/internal/persistence/sqlite"
	httptransport "github.com/barbizo19/mapty/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	canvas := mapview.NewCanvas()
	opts := []engine.Option{
		engine.WithMap(canvas),
		engine.WithZoom(cfg.MapZoom),
		engine.WithGeocodeTimeout(cfg.GeocoderTimeout),
	}
	if cfg.HasHome {
		opts = append(opts, engine.WithLocator(geolocation.NewStatic(cfg.HomeLatitude, cfg.HomeLongitude)))
	}
	if cfg.GeocoderEnabled {
		client := geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderAPIKey, cfg.GeocoderTimeout)
		opts = append(opts, engine.WithGeocoder(geocode.NewCached(client, cfg.GeocoderCache)))
	}
	if cfg.KafkaEnabled() {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, engine.WithPublisher(publisher))
	}

	manager := engine.New(persistence.NewCodec(store, cfg.StorageKey), opts...)
	if err := manager.Open(ctx); err != nil {
		log.Fatalf("failed to load workouts: %v", err)
	}
	defer manager.Close()

	if err := manager.Start(ctx); err != nil {
		if !errors.Is(err, domain.ErrPositionUnavailable) {
			log.Fatalf("failed to start map: %v", err)
		}
		log.Printf("map not initialised: %v", err)
	}

	handler := api.NewHandler(manager, canvas)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLog := log.New(log.Writer(), "[http] ", log.LstdFlags)
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux, httptransport.Logging(requestLog), httptransport.CORS(cfg.CORSOrigin)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("mapty listening on %s (store=%s)", cfg.HTTPAddress, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (persistence.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewStore(), noop, nil
	case config.DriverFile:
		store, err := file.NewStore(cfg.StorePath)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.StorePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, err
			}
		}
		store, err := sqlite.Open(ctx, cfg.StorePath)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("close sqlite store: %v", err)
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
