package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pressly/goose/v3"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/genrelay/internal/core/config"
	"github.com/vietddude/genrelay/internal/core/domain"
	"github.com/vietddude/genrelay/internal/directory"
	"github.com/vietddude/genrelay/internal/dispatch"
	"github.com/vietddude/genrelay/internal/infra/admission"
	"github.com/vietddude/genrelay/internal/infra/credstore"
	"github.com/vietddude/genrelay/internal/infra/storage/postgres"
	"github.com/vietddude/genrelay/internal/metrics"
	"github.com/vietddude/genrelay/internal/report"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	service := flag.String("service", "image", "Service type: image or video")
	path := flag.String("path", "/generate", "Logical request path")
	body := flag.String("body", "", "JSON request body")
	label := flag.String("label", "cli", "Context label for failure records")
	summary := flag.String("summary", "", "Short summary recorded on failure")
	token := flag.String("token", "", "Explicit credential (strict mode)")
	exact := flag.Bool("exact", false, "Suppress strict-mode fallbacks (pure probe)")
	probe := flag.Bool("probe", false, "Tag the call as a probe instead of a generation")
	serverOverride := flag.String("server", "", "Pin the current server by name")
	failures := flag.Int("failures", 0, "List the N most recent failure records and exit")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address while dispatching")
	flag.Parse()

	// A missing .env is fine; config can still resolve from the shell env.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})

	ctx := context.Background()

	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, metrics.Handler()); err != nil {
				slog.Warn("Metrics server stopped", "error", err)
			}
		}()
	}

	var db *postgres.DB
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(ctx, postgres.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			slog.Error("Failed to init failure store", "error", err)
			os.Exit(1)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			slog.Error("Failed to set migration dialect", "error", err)
			os.Exit(1)
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			slog.Error("Failed to migrate failure store", "error", err)
			os.Exit(1)
		}
	}

	if *failures > 0 {
		listFailures(ctx, db, *failures)
		return
	}

	store := credstore.NewFileStore(cfg.Session.Path, cfg.Session.PoolFresh, slog.Default())

	username := cfg.Username
	if username == "" {
		username = store.Username()
	}

	dir := directory.New(cfg.Services, nil)
	if *serverOverride != "" {
		dir.SetOverride(domain.ServiceType(*service), *serverOverride)
	}

	var ctrl *admission.Controller
	if cfg.Redis.URL != "" {
		slots, err := admission.NewRedisSlotService(cfg.Redis, cfg.Admission.Capacity)
		if err != nil {
			// Advisory gate: a missing counting service must not block usage.
			slog.Warn("Slot service unavailable, admission disabled", "error", err)
		} else {
			defer slots.Close()
			ctrl = admission.New(slots, cfg.Admission, slog.Default())
		}
	} else {
		ctrl = admission.New(nil, cfg.Admission, slog.Default())
	}

	reporters := report.Multi{report.NewLogReporter(slog.Default())}
	if db != nil {
		reporters = append(reporters, report.NewStoreReporter(postgres.NewFailureRepo(db), slog.Default()))
	}

	planner := dispatch.NewPlanner(store, dir, cfg.Failover, nil)
	exec := dispatch.NewExecutor(cfg.HTTP.Timeout, username, slog.Default())
	d := dispatch.New(planner, exec, ctrl, dir, reporters, slog.Default())

	req := dispatch.Request{
		Service: domain.ServiceType(*service),
		Path:    *path,
		Class:   domain.ClassGeneration,
		Label:   *label,
		Summary: *summary,
		Status: func(msg string) {
			slog.Info(msg)
		},
	}
	if *probe {
		req.Class = domain.ClassProbe
	}
	if *token != "" {
		req.Credential = &domain.Credential{Token: *token}
		req.ExactOnly = *exact
	}
	if *body != "" {
		req.Body = json.RawMessage(*body)
	}

	res, err := d.Do(ctx, req)
	if err != nil {
		slog.Error("Dispatch failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Dispatch succeeded",
		"attempts", res.Attempts,
		"provenance", res.Credential.Provenance,
		"credential", res.Credential.Fingerprint(),
	)
	fmt.Println(string(res.Payload))
}

func listFailures(ctx context.Context, db *postgres.DB, limit int) {
	if db == nil {
		slog.Error("Listing failures requires a database URL in the config")
		os.Exit(1)
	}

	recs, err := postgres.NewFailureRepo(db).Recent(ctx, limit)
	if err != nil {
		slog.Error("Failed to list failure records", "error", err)
		os.Exit(1)
	}

	for _, rec := range recs {
		fmt.Printf("%s  %-12s attempts=%d  %s  %s\n",
			rec.CreatedAt.Format(time.RFC3339), rec.Label, rec.Attempts, rec.Error, rec.Summary)
	}
}
