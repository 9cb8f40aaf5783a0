package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"resource-planner/config"
	"resource-planner/formatter"
	"resource-planner/logger"
	"resource-planner/models"
	"resource-planner/parser"
	"resource-planner/service"
	"resource-planner/store"
)

// app holds the persistent flags and what setup builds from them.
type app struct {
	configPath  string
	format      string
	dbPath      string
	logDir      string
	metricsAddr string
	pushURL     string
	debug       bool
	wait        bool
	timeout     time.Duration
	workers     int

	cfg   config.Config
	out   formatter.Format
	store *store.Store
}

// execute runs the CLI with args and releases what the run opened.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if finishErr := a.finish(ctx); finishErr != nil && err == nil {
		err = finishErr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "planner",
		Short: "Resource planning: conflicts, forecasts, scenarios and critical paths",
		Long: `planner checks staff allocations for overallocation, forecasts skill demand
against supply, compares what-if scenarios and finds the critical path of a
task graph. Inputs are CSV files (capacities, allocations, demand, tasks) and
YAML pipeline files.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.format, "format", "text", "Output format: text|json|csv")
	pf.StringVar(&a.dbPath, "db", "", "SQLite file or postgres:// URL for committed scenarios and run history")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&a.logDir, "log-dir", "", "Directory for planner.log (default: stderr only)")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	pf.StringVar(&a.pushURL, "push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	pf.BoolVar(&a.wait, "wait", false, "Keep process running after completion to allow for metric scraping")
	pf.DurationVar(&a.timeout, "timeout", config.DefaultTimeout, "Batch timeout per run")
	pf.IntVar(&a.workers, "workers", config.DefaultWorkers, "Concurrent employees during conflict detection")

	root.AddCommand(
		a.conflictsCmd(),
		a.forecastCmd(),
		a.compareCmd(),
		a.criticalPathCmd(),
		a.deriveCmd(),
		a.commitCmd(),
		a.runsCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and opens shared resources.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	out, err := formatter.ParseFormat(a.format)
	if err != nil {
		return err
	}
	a.out = out

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Service.Timeout = a.timeout
	}
	if flags.Changed("workers") {
		cfg.Service.Workers = a.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(logger.Config{Debug: a.debug, Dir: a.logDir}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("configuration loaded", "path", a.configPath, "workers", cfg.Service.Workers, "timeout", cfg.Service.Timeout)

	if a.dbPath != "" {
		st, err := store.Open(a.dbPath)
		if err != nil {
			return err
		}
		a.store = st
	}
	if a.metricsAddr != "" {
		serveMetrics(a.metricsAddr)
	}
	return nil
}

func (a *app) finish(ctx context.Context) error {
	var err error
	if a.pushURL != "" {
		err = pushMetrics(a.pushURL)
	}
	if a.metricsAddr != "" {
		waitForScrape(ctx, a.wait)
	}
	if a.store != nil {
		if closeErr := a.store.Close(); closeErr != nil {
			logger.Warn("closing store", "err", closeErr)
		}
	}
	return err
}

func (a *app) service(caps []models.EmployeeCapacity) *service.Service {
	var opts []service.Option
	if a.store != nil {
		opts = append(opts, service.WithStore(a.store))
	}
	return service.New(a.cfg, service.StaticCapacities(caps), opts...)
}

func (a *app) render(cmd *cobra.Command, v any) error {
	s, err := formatter.Render(a.out, v)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), s)
	return nil
}

func (a *app) months(n int) int {
	if n > 0 {
		return n
	}
	return a.cfg.Forecast.Months
}

// parseDay reads a --start style flag. Empty is the zero time.
func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(parser.DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want %s)", value, parser.DateLayout)
	}
	return t, nil
}

func loadCapacities(path string) ([]models.EmployeeCapacity, error) {
	if path == "" {
		return nil, nil
	}
	return parser.ParseCapacitiesFile(path)
}

// scenarioFromFile builds a scenario from an allocations file. Without an
// explicit id the scenario takes the single scenario_id found in the file, or
// else the file's base name. A zero start begins at the month of the earliest
// allocation.
func scenarioFromFile(path, id string, start time.Time, months int) (models.Scenario, error) {
	allocs, err := parser.ParseAllocationsFile(path)
	if err != nil {
		return models.Scenario{}, err
	}

	if id == "" {
		id = commonScenarioID(allocs)
	}
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if start.IsZero() {
		for _, al := range allocs {
			if start.IsZero() || al.StartDate.Before(start) {
				start = al.StartDate
			}
		}
		start = models.MonthStart(start)
	}
	return models.Scenario{ID: id, BaseDate: start, ForecastPeriodMonths: months, Allocations: allocs}, nil
}

func commonScenarioID(allocs []models.Allocation) string {
	id := ""
	for _, al := range allocs {
		switch {
		case al.ScenarioID == models.LiveScenarioID:
			return ""
		case id == "":
			id = al.ScenarioID
		case id != al.ScenarioID:
			return ""
		}
	}
	return id
}

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintf(os.Stderr, "flag %s: %v\n", name, err)
		}
	}
}
