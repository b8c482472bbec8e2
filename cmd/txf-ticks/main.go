package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"txgather/internal/config"
	"txgather/internal/gather"
	"txgather/internal/session"
	"txgather/internal/store"
	"txgather/internal/util"
)

func main() {
	period := flag.String("period", "", "preset range: last_day, week, month, 6_months, year, 5_years, custom (default: last 5 days)")
	start := flag.String("start", "", "custom range start, YYYY-MM-DD")
	end := flag.String("end", "", "custom range end, YYYY-MM-DD")
	flag.Parse()

	cfgPath := "config/txgather.yaml"
	if p := os.Getenv("TXGATHER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Log to stdout and a dated file.
	logFileName := fmt.Sprintf("/tmp/txf-ticks-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	logger := util.NewLogger(io.MultiWriter(os.Stdout, logFile), cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	rng, err := gather.PeriodRange(*period, *start, *end, time.Now().UTC())
	if err != nil {
		log.Fatalf("resolving date range: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := session.NewBridgeClient(cfg.Shioaji.BridgeURL, session.Credentials{
		APIKey:     cfg.Shioaji.APIKey,
		SecretKey:  cfg.Shioaji.SecretKey,
		CAPath:     cfg.Shioaji.CAPath,
		CAPassword: cfg.Shioaji.CAPassword,
	})
	if err := client.Login(ctx); err != nil {
		log.Fatalf("logging in: %v", err)
	}
	if err := session.VerifyVersion(client.DriverVersion()); err != nil {
		log.Fatalf("driver version check: %v", err)
	}

	csvStore := store.NewCSVStore(filepath.Join(cfg.Storage.DataDir, "csv"))
	parquetStore := store.NewParquetStore(cfg.Storage.DataDir)
	tickSinks := []store.TickSink{csvStore, parquetStore}

	barSinks := []store.BarSink{csvStore}
	if cfg.Storage.SQLitePath != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		defer sqliteStore.Close()
		barSinks = append(barSinks, sqliteStore)
	}
	if cfg.Firestore.Enabled {
		fs, err := store.NewFirestoreSink(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile, cfg.Firestore.Collection)
		if err != nil {
			log.Fatalf("connecting to firestore: %v", err)
		}
		defer fs.Close()
		barSinks = append(barSinks, fs)
	}

	gatherer := gather.NewTickGatherer(
		client,
		gather.NewCheckpoint(cfg.Storage.DataDir),
		util.NewRateLimiter(cfg.Gather.RateLimitPerMin),
		rng,
		cfg.Gather.Symbol,
		cfg.Gather.WeeklyNaming,
		tickSinks,
		barSinks,
	)

	slog.Info("starting gatherer",
		"name", gatherer.Name(),
		"start", rng.Start.Format("2006-01-02"),
		"end", rng.End.Format("2006-01-02"),
	)
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gatherer error: %v", err)
	}
}
