package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lox/citywx/internal/api"
	"github.com/lox/citywx/internal/config"
	"github.com/lox/citywx/internal/httputil"
	"github.com/lox/citywx/internal/ingest"
	"github.com/lox/citywx/internal/provider"
	"github.com/lox/citywx/internal/rank"
	"github.com/lox/citywx/internal/store"
	"github.com/lox/citywx/internal/weather"
)

type CLI struct {
	config.Settings

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API."`
	Fetch   FetchCmd   `cmd:"" help:"Fetch current weather for a city and store it."`
	Import  ImportCmd  `cmd:"" help:"Import a CSV file or ftp:// URL."`
	Export  ExportCmd  `cmd:"" help:"Export all records as CSV."`
	Current CurrentCmd `cmd:"" help:"Show the best stored record for a city."`
	Latest  LatestCmd  `cmd:"" help:"Show the most recently observed record for a city."`
	Alerts  AlertsCmd  `cmd:"" help:"Show alerts for a city, or the most recently observed city."`
	Compare CompareCmd `cmd:"" help:"Compare two cities."`
	Cities  CitiesCmd  `cmd:"" help:"List stored cities."`
	Stats   StatsCmd   `cmd:"" help:"Show database statistics."`
	Runs    RunsCmd    `cmd:"" help:"List recent fetches and imports."`
	Payload PayloadCmd `cmd:"" help:"Print an archived provider payload."`
}

// app carries the opened dependencies into each command's Run.
type app struct {
	settings *config.Settings
	log      *zap.Logger
	db       *sql.DB
	store    *store.Store
	svc      *weather.Service
	out      io.Writer
}

func newApp(s *config.Settings, log *zap.Logger) (*app, error) {
	if dir := filepath.Dir(s.DB); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, clockwork.NewRealClock(), log)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("database migrated", zap.String("path", s.DB))

	var fetcher weather.Fetcher
	if s.APIKey != "" {
		fetcher = provider.New(s.APIKey, s.Fahrenheit(),
			provider.WithHTTPClient(httputil.NewClient(s.HTTPTimeout)),
			provider.WithLogger(log))
	}

	return &app{
		settings: s,
		log:      log,
		db:       db,
		store:    st,
		svc:      weather.NewService(st, fetcher, s.Fahrenheit(), log),
		out:      os.Stdout,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

type ServeCmd struct {
	Port string `env:"CITYWX_PORT" default:"8080" help:"HTTP server port."`
}

func (c *ServeCmd) Run(a *app) error {
	if a.settings.APIKey == "" {
		a.log.Warn("OPENWEATHER_API_KEY not set; lookups will only use stored data")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return api.NewServer(a.svc, a.store, c.Port, a.log).Run(ctx)
}

type FetchCmd struct {
	City string `arg:"" help:"City name, e.g. \"nyc\" or \"Boston\"."`
}

func (c *FetchCmd) Run(a *app) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	cond, err := a.svc.FetchAndStore(ctx, c.City)
	if err != nil {
		return err
	}
	printConditions(a.out, cond, a.svc.Fahrenheit())
	return nil
}

type ImportCmd struct {
	Source   string `short:"s" required:"" help:"Source layout, one of: ${sources}."`
	Location string `arg:"" help:"Local path or ftp://[user[:pass]@]host[:port]/path."`
}

func (c *ImportCmd) Run(a *app) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rc, err := ingest.OpenSource(ctx, c.Location)
	if err != nil {
		return err
	}
	defer rc.Close()

	sum, err := a.svc.Import(ctx, c.Source, rc, c.Location)
	printImportSummary(a.out, sum)
	return err
}

type ExportCmd struct {
	Out string `short:"o" help:"Write to this file instead of stdout."`
}

func (c *ExportCmd) Run(a *app) error {
	w := a.out
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := a.store.ExportCSV(w)
	if err != nil {
		return err
	}
	a.log.Info("export: wrote records", zap.Int("count", n), zap.String("path", c.Out))
	return nil
}

type CurrentCmd struct {
	City string `arg:"" help:"City name."`
}

func (c *CurrentCmd) Run(a *app) error {
	cond, err := a.svc.Current(c.City)
	if err != nil {
		return err
	}
	printConditions(a.out, cond, a.svc.Fahrenheit())
	return nil
}

type LatestCmd struct {
	City string `arg:"" help:"City name."`
}

func (c *LatestCmd) Run(a *app) error {
	rec, err := a.svc.Latest(c.City)
	if err != nil {
		return err
	}
	printRecord(a.out, rec, rank.Score(rec), a.svc.Fahrenheit())
	return nil
}

type AlertsCmd struct {
	City string `arg:"" optional:"" help:"City name. Defaults to the most recently observed city."`
}

func (c *AlertsCmd) Run(a *app) error {
	var (
		cond weather.Conditions
		err  error
	)
	if c.City != "" {
		cond, err = a.svc.Current(c.City)
	} else {
		cond, err = a.svc.LatestAlerts()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (observed %s UTC)\n", cond.City, cond.Record.ObservedAtText())
	printAlerts(a.out, cond)
	return nil
}

type CompareCmd struct {
	A string `arg:"" help:"First city."`
	B string `arg:"" help:"Second city."`
}

func (c *CompareCmd) Run(a *app) error {
	cmp, err := a.svc.Compare(c.A, c.B)
	if err != nil {
		return err
	}
	printComparison(a.out, cmp, a.svc.Fahrenheit())
	return nil
}

type CitiesCmd struct{}

func (c *CitiesCmd) Run(a *app) error {
	names, err := a.store.Locations()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(a.out, n)
	}
	count, err := a.store.LocationCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d cities\n", count)
	return nil
}

type StatsCmd struct{}

func (c *StatsCmd) Run(a *app) error {
	st, err := a.store.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total records:       %d\n", st.TotalRecords)
	fmt.Fprintf(a.out, "Unique cities:       %d\n", st.UniqueCities)
	fmt.Fprintf(a.out, "Feels-like records:  %d\n", st.FeelsLikeRecords)
	fmt.Fprintf(a.out, "Completeness:        %.1f%%\n", st.CompletenessPercentage)
	return nil
}

type RunsCmd struct {
	Limit int `short:"n" default:"20" help:"Number of runs to show."`
}

func (c *RunsCmd) Run(a *app) error {
	runs, err := a.store.RecentIngestRuns(c.Limit)
	if err != nil {
		return err
	}
	printRuns(a.out, runs)
	return nil
}

type PayloadCmd struct {
	ID int64 `arg:"" help:"Payload ID."`
}

func (c *PayloadCmd) Run(a *app) error {
	payload, err := a.store.GetRawPayload(c.ID)
	if err != nil {
		return fmt.Errorf("payload %d: %w", c.ID, err)
	}
	_, err = fmt.Fprintf(a.out, "%s\n", payload)
	return err
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("citywx"),
		kong.Description("City weather lookup, ranking and alerts."),
		kong.UsageOnError(),
		kong.Vars{"sources": joinSources(ingest.DefaultRegistry().IDs())},
	)

	logger, err := config.NewLogger(cli.Debug)
	kctx.FatalIfErrorf(err)
	defer logger.Sync()

	a, err := newApp(&cli.Settings, logger)
	kctx.FatalIfErrorf(err)
	defer a.Close()

	kctx.FatalIfErrorf(kctx.Run(a))
}
