package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"traveldesk/internal/budget"
	"traveldesk/internal/config"
	"traveldesk/internal/db"
	"traveldesk/internal/engine"
	"traveldesk/internal/events"
	"traveldesk/internal/exporter"
	"traveldesk/internal/google"
	"traveldesk/internal/importer"
	"traveldesk/internal/metrics"
	"traveldesk/internal/models"
	"traveldesk/internal/server"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		logger.Fatal().Msg("usage: traveldesk <run|serve> [flags]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(ctx, os.Args[2:], logger)
	case "serve":
		err = serveCommand(ctx, os.Args[2:], logger)
	default:
		logger.Fatal().Str("command", os.Args[1]).Msg("unknown command, expected run or serve")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

// runCommand imports a schedule workbook, reconciles the project and writes
// the budget and calendar workbooks.
func runCommand(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("TRAVELDESK_CONFIG_PATH"), "path to config.yaml")
	schedulePath := fs.String("schedule", "", "path to the shooting schedule xlsx")
	projectID := fs.String("project", "", "project ID to load (created when absent)")
	projectName := fs.String("name", "Untitled Production", "project name used when creating")
	homeLocation := fs.String("home", "", "home location for members created from the schedule")
	budgetPath := fs.String("budget", "budget.xlsx", "output path of the budget workbook")
	calendarPath := fs.String("calendar", "calendar.xlsx", "output path of the calendar workbook")
	pushSheets := fs.Bool("push-sheets", false, "push the fleet summary to Google Sheets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *schedulePath == "" && *projectID == "" {
		return fmt.Errorf("either -schedule or -project is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	project, err := loadOrCreateProject(ctx, store, *projectID, *projectName, cfg, logger)
	if err != nil {
		return err
	}

	if *schedulePath != "" {
		rows, err := importer.New(logger).ReadFile(*schedulePath)
		if err != nil {
			return err
		}
		metrics.AddImportedAssignments(len(rows))
		project.Assignments = rows
		mergeMembers(project, rows, *homeLocation)
	}

	if err := store.SaveProject(ctx, project); err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	start := time.Now()
	timelines, failures, err := engine.Run(project, logger)
	if err != nil {
		metrics.IncRunCompleted("error")
		return err
	}
	metrics.ObserveRunDuration(time.Since(start))
	metrics.IncRunCompleted("ok")
	metrics.AddMemberFailures(len(failures))
	for memberID, ferr := range failures {
		logger.Warn().Err(ferr).Str("member", memberID).Msg("member skipped")
	}

	fleet := budget.SummarizeAll(timelines)
	logger.Info().
		Int("members", len(fleet.Members)).
		Int("travel_days", fleet.TotalTravelDays).
		Int("nights", fleet.TotalNights).
		Int("round_trips", fleet.TotalRoundTrips).
		Msg("reconciliation complete")

	if err := writeWorkbook(*budgetPath, timelines, exporter.NewBudget(logger).Write); err != nil {
		return fmt.Errorf("write budget workbook: %w", err)
	}
	if err := writeWorkbook(*calendarPath, timelines, exporter.NewCalendar(logger).Write); err != nil {
		return fmt.Errorf("write calendar workbook: %w", err)
	}

	if *pushSheets && cfg.Sheets.Enabled {
		sheets, err := google.NewSheetsService(ctx,
			cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger)
		if err != nil {
			return err
		}
		if err := sheets.PushFleetSummary(ctx, fleet); err != nil {
			return err
		}
	}

	return nil
}

func loadOrCreateProject(ctx context.Context, store *db.DB, id, name string, cfg *config.Config, logger zerolog.Logger) (*models.Project, error) {
	if id != "" {
		project, err := store.LoadProject(ctx, id)
		if err == nil {
			return project, nil
		}
		if !errors.Is(err, db.ErrProjectNotFound) {
			return nil, err
		}
		logger.Info().Str("project", id).Msg("project not found, creating")
		return &models.Project{ID: id, Name: name, Policy: cfg.DefaultPolicy()}, nil
	}
	return &models.Project{ID: uuid.NewString(), Name: name, Policy: cfg.DefaultPolicy()}, nil
}

// mergeMembers adds members for schedule names the project does not know yet.
func mergeMembers(p *models.Project, rows []models.AssignmentRow, homeLocation string) {
	known := make(map[string]struct{}, len(p.Members))
	for _, m := range p.Members {
		known[m.Name] = struct{}{}
	}
	for _, row := range rows {
		if _, ok := known[row.MemberName]; ok {
			continue
		}
		known[row.MemberName] = struct{}{}
		p.Members = append(p.Members, models.NewCastMember(row.MemberName, homeLocation))
	}
}

func writeWorkbook(path string, timelines []*models.Timeline, render func(exporter.ExcelWriter, []*models.Timeline) error) error {
	w := exporter.NewExcelizeWriter()
	defer w.Close()
	if err := render(w, timelines); err != nil {
		return err
	}
	return w.SaveToFile(path)
}

// serveCommand starts the HTTP API plus health and metrics servers.
func serveCommand(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("TRAVELDESK_CONFIG_PATH"), "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var rdb *redis.Client
	var cache *server.Cache
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = server.NewCache(rdb, cfg.CacheTTL(), logger)
	}

	bus := events.NewEventBus()
	metrics.Register()

	backup := db.NewBackupService(cfg.Database.Path, cfg.Backup, cfg.BackupInterval(), logger)
	go backup.Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, store, rdb, logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	logger.Info().Msg("traveldesk started")
	return server.New(cfg, store, cache, bus, logger).Run(ctx)
}

func startHealthServer(ctx context.Context, port int, store *db.DB, rdb *redis.Client, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := store.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
