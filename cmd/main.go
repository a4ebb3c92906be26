package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contact-splitter/internal/config"
	"contact-splitter/internal/db"
	"contact-splitter/internal/helper"
	"contact-splitter/internal/metrics"
	"contact-splitter/internal/models"
	"contact-splitter/internal/processor"
	"contact-splitter/internal/server"
	"contact-splitter/internal/splitter"
	"contact-splitter/internal/storage"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	historyLimit      = 20
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to the YAML config file")
	filePath := flag.String("file", "", "Path to the contact spreadsheet (.csv, .xlsx, .xls)")
	column := flag.String("column", "", "Contact column name (defaults to config)")
	numbersPath := flag.String("numbers", "", "Path to a text file with one number to remove per line")
	maxRows := flag.Int("max-rows", 0, "Max rows per output file (defaults to config)")
	serve := flag.Bool("serve", false, "Start the web server")
	history := flag.Bool("history", false, "Print the latest recorded runs")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(cfg.Log.Level)
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *history:
		printHistory(ctx, cfg)
	case *serve:
		runServer(ctx, cfg)
	case *filePath != "":
		if *column == "" {
			*column = cfg.Defaults.ContactColumn
		}
		if *maxRows == 0 {
			*maxRows = cfg.Defaults.MaxRows
		}
		splitFile(ctx, cfg, *filePath, *column, *numbersPath, *maxRows)
	default:
		log.Fatal().Msg("Please provide either a spreadsheet using the -file flag or start the web server with -serve")
	}
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// openRecorder returns nil when run history is disabled.
func openRecorder(ctx context.Context, cfg *config.Config) (*db.RunStore, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, err
	}
	return db.NewRunStore(bunDB), nil
}

func newSplitter(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*splitter.Splitter, *storage.Workspace, func()) {
	ws, err := storage.NewWorkspace(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Error preparing storage folders")
	}

	store, err := openRecorder(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	if store == nil {
		return splitter.NewSplitter(cfg, ws, nil, m), ws, func() {}
	}
	return splitter.NewSplitter(cfg, ws, store, m), ws, func() { store.Close() }
}

func splitFile(ctx context.Context, cfg *config.Config, filePath, column, numbersPath string, maxRows int) {
	var numbers []string
	if numbersPath != "" {
		data, err := os.ReadFile(numbersPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading numbers file")
		}
		numbers = processor.ParseNumbers(string(data))
	}

	sp, ws, closeFn := newSplitter(ctx, cfg, nil)
	defer closeFn()

	runID, err := ws.NewRun()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating run")
	}

	res, err := sp.Split(ctx, splitter.Request{
		RunID:         runID,
		FilePath:      filePath,
		SourceName:    filePath,
		ContactColumn: column,
		Numbers:       numbers,
		MaxRows:       maxRows,
	})
	if err != nil {
		if models.IsValidationError(err) {
			log.Error().Msg(models.UserMessage(err))
			closeFn()
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Error splitting file")
	}

	log.Info().Msgf("Wrote %d files to %s/%s", len(res.Files), cfg.Storage.ProcessedDir, res.RunID)
	helper.PrettyPrint(res)
}

func runServer(ctx context.Context, cfg *config.Config) {
	m := metrics.New()
	sp, ws, closeFn := newSplitter(ctx, cfg, m)
	defer closeFn()

	srv, err := server.NewServer(cfg, sp, ws, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating server")
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}

func printHistory(ctx context.Context, cfg *config.Config) {
	if !cfg.Database.Enabled {
		log.Fatal().Msg("Run history needs database.enabled in the config")
	}
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	defer bunDB.Close()

	runs, err := db.ListRuns(ctx, bunDB, historyLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing runs")
	}
	helper.PrettyPrint(runs)
}
