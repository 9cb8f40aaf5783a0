package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resource-planner/formatter"
	"resource-planner/models"
	"resource-planner/parser"
	"resource-planner/service"
)

func (a *app) conflictsCmd() *cobra.Command {
	var capsPath, allocsPath, start string
	var months int

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Find periods where employees are allocated above 100%",
		Long: `Sweep every employee's allocations and report each period in which the
summed allocation exceeds 100%, classified low, medium, high or critical.

Without --start, open-ended allocations run to the latest date in the file.
Employees with invalid allocations are skipped and reported on stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := loadCapacities(capsPath)
			if err != nil {
				return err
			}
			allocs, err := parser.ParseAllocationsFile(allocsPath)
			if err != nil {
				return err
			}
			from, err := parseDay(start)
			if err != nil {
				return err
			}
			var horizon models.DateRange
			if !from.IsZero() {
				horizon = models.DateRange{Start: from, End: from.AddDate(0, a.months(months), -1)}
			}

			report, err := a.service(caps).Conflicts(cmd.Context(), allocs, horizon)
			if err != nil {
				return err
			}
			for _, f := range report.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  skipped employee %s: %v\n", f.EmployeeID, f.Err)
			}
			return a.render(cmd, report.Conflicts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&capsPath, "capacities", "", "Employee capacities CSV")
	f.StringVar(&allocsPath, "allocations", "", "Allocations CSV (required)")
	f.StringVar(&start, "start", "", "Horizon start date (YYYY-MM-DD)")
	f.IntVar(&months, "months", 0, "Horizon length in months (default from config)")
	requireFlags(cmd, "allocations")
	return cmd
}

func (a *app) forecastCmd() *cobra.Command {
	var capsPath, demandPath, pipelinePath, scenarioPath, start string
	var months int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project skill demand against supply per month",
		Long: `Collect demand from a demand CSV, a pipeline YAML file and/or a scenario
allocations CSV, weight it by probability and compare it with the capacity of
the employees holding each skill. Gaps are turned into FTE hiring
recommendations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := loadCapacities(capsPath)
			if err != nil {
				return err
			}
			from, err := parseDay(start)
			if err != nil {
				return err
			}
			n := a.months(months)

			var sources []service.DemandSource
			if demandPath != "" {
				records, err := parser.ParseDemandFile(demandPath)
				if err != nil {
					return err
				}
				sources = append(sources, service.StaticDemand(records))
			}
			if pipelinePath != "" {
				deals, err := parser.ParsePipelineFile(pipelinePath)
				if err != nil {
					return err
				}
				sources = append(sources, service.PipelineSource{Deals: deals, StageProbabilities: a.cfg.Pipeline.StageProbabilities})
			}
			if scenarioPath != "" {
				sc, err := scenarioFromFile(scenarioPath, "", from, n)
				if err != nil {
					return err
				}
				sources = append(sources, service.ScenarioSource{Scenario: sc, Capacities: service.StaticCapacities(caps)})
			}
			if len(sources) == 0 {
				return fmt.Errorf("at least one of --demand, --pipeline or --scenario is required")
			}

			req := service.ForecastRequest{Sources: sources, Start: from, Months: n}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}
			res, err := a.service(caps).Forecast(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd, &formatter.ForecastReport{Buckets: res.Buckets, Totals: res.Totals})
		},
	}

	f := cmd.Flags()
	f.StringVar(&capsPath, "capacities", "", "Employee capacities CSV (required)")
	f.StringVar(&demandPath, "demand", "", "Demand records CSV")
	f.StringVar(&pipelinePath, "pipeline", "", "Pipeline deals YAML")
	f.StringVar(&scenarioPath, "scenario", "", "Scenario allocations CSV")
	f.StringVar(&start, "start", "", "First forecast month (default: current month)")
	f.IntVar(&months, "months", 0, "Forecast length in months (default from config)")
	f.Float64Var(&threshold, "threshold", 0, "Minimum probability weight of counted demand (default from config)")
	requireFlags(cmd, "capacities")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var capsPath, pathA, pathB, idA, idB, start string
	var months int

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare cost, utilization, skill gaps and conflicts of two scenarios",
		Long: `Evaluate scenario A and scenario B against the same capacities and report
the differences (B minus A). Each scenario is an allocations CSV (--a, --b)
or a committed scenario loaded from --db (--a-id, --b-id).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := loadCapacities(capsPath)
			if err != nil {
				return err
			}
			from, err := parseDay(start)
			if err != nil {
				return err
			}
			svc := a.service(caps)

			load := func(path, id string) (models.Scenario, error) {
				if path != "" {
					return scenarioFromFile(path, id, from, a.months(months))
				}
				if id == "" {
					return models.Scenario{}, fmt.Errorf("each scenario needs a file or a committed scenario id")
				}
				return svc.Scenario(cmd.Context(), id)
			}
			scA, err := load(pathA, idA)
			if err != nil {
				return fmt.Errorf("scenario a: %w", err)
			}
			scB, err := load(pathB, idB)
			if err != nil {
				return fmt.Errorf("scenario b: %w", err)
			}

			cmp, err := svc.Compare(cmd.Context(), scA, scB)
			if err != nil {
				return err
			}
			return a.render(cmd, cmp)
		},
	}

	f := cmd.Flags()
	f.StringVar(&capsPath, "capacities", "", "Employee capacities CSV (required)")
	f.StringVar(&pathA, "a", "", "Scenario A allocations CSV")
	f.StringVar(&pathB, "b", "", "Scenario B allocations CSV")
	f.StringVar(&idA, "a-id", "", "Scenario A id (committed scenario when --a is not given)")
	f.StringVar(&idB, "b-id", "", "Scenario B id (committed scenario when --b is not given)")
	f.StringVar(&start, "start", "", "Base date of file scenarios (default: month of earliest allocation)")
	f.IntVar(&months, "months", 0, "Horizon of file scenarios in months (default from config)")
	requireFlags(cmd, "capacities")
	return cmd
}

func (a *app) criticalPathCmd() *cobra.Command {
	var tasksPath string

	cmd := &cobra.Command{
		Use:   "critical-path",
		Short: "Compute slack, critical tasks and staffing waves of a task graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := parser.ParseTasksFile(tasksPath)
			if err != nil {
				return err
			}
			analysis, err := a.service(nil).CriticalPath(cmd.Context(), tasks)
			if err != nil {
				return err
			}
			return a.render(cmd, analysis)
		},
	}

	cmd.Flags().StringVar(&tasksPath, "tasks", "", "Tasks CSV (required)")
	requireFlags(cmd, "tasks")
	return cmd
}

func (a *app) deriveCmd() *cobra.Command {
	var capsPath, pipelinePath, allocsPath, scenarioID string

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Propose candidate allocations for pipeline deals",
		Long: `Staff pipeline deal requirements from the capacity left over by existing
allocations. The plan is only printed; store it with 'planner commit'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := loadCapacities(capsPath)
			if err != nil {
				return err
			}
			deals, err := parser.ParsePipelineFile(pipelinePath)
			if err != nil {
				return err
			}
			var existing []models.Allocation
			if allocsPath != "" {
				if existing, err = parser.ParseAllocationsFile(allocsPath); err != nil {
					return err
				}
			}

			plan, err := a.service(caps).Derive(cmd.Context(), scenarioID, deals, existing)
			if err != nil {
				return err
			}
			return a.render(cmd, plan)
		},
	}

	f := cmd.Flags()
	f.StringVar(&capsPath, "capacities", "", "Employee capacities CSV (required)")
	f.StringVar(&pipelinePath, "pipeline", "", "Pipeline deals YAML (required)")
	f.StringVar(&allocsPath, "allocations", "", "Existing allocations CSV")
	f.StringVar(&scenarioID, "scenario-id", "pipeline", "Scenario id of the candidate allocations")
	requireFlags(cmd, "capacities", "pipeline")
	return cmd
}

func (a *app) commitCmd() *cobra.Command {
	var capsPath, allocsPath, scenarioID, name, start string
	var months int

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Store a scenario's allocations in the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := loadCapacities(capsPath)
			if err != nil {
				return err
			}
			from, err := parseDay(start)
			if err != nil {
				return err
			}
			sc, err := scenarioFromFile(allocsPath, scenarioID, from, a.months(months))
			if err != nil {
				return err
			}
			sc.Name = name

			revision, err := a.service(caps).Commit(cmd.Context(), sc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed scenario %s (revision %d, %d allocations)\n", sc.ID, revision, len(sc.Allocations))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&capsPath, "capacities", "", "Employee capacities CSV (required)")
	f.StringVar(&allocsPath, "allocations", "", "Allocations CSV (required)")
	f.StringVar(&scenarioID, "scenario-id", "", "Scenario id (required)")
	f.StringVar(&name, "name", "", "Scenario name")
	f.StringVar(&start, "start", "", "Scenario base date (default: month of earliest allocation)")
	f.IntVar(&months, "months", 0, "Scenario horizon in months (default from config)")
	requireFlags(cmd, "capacities", "allocations", "scenario-id")
	return cmd
}

func (a *app) runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent planning runs recorded in the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.service(nil).Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.render(cmd, runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 = all)")
	return cmd
}
