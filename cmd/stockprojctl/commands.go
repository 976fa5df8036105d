package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stockproj/internal/config"
	"stockproj/internal/logging"
	"stockproj/internal/model"
	"stockproj/internal/scenario"
	api "stockproj/pkg/stockproj"
)

type globalFlags struct {
	configPath   string
	storeKind    string
	dbPath       string
	artifactsDir string
	exportsDir   string
	logLevel     string
	logFormat    string
}

type app struct {
	out   io.Writer
	flags globalFlags
	cfg   config.Config
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "stockprojctl",
		Short:         "Age-structured stock projection and fleet catch accounting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ./stockproj.yaml or $STOCKPROJ_CONFIG)")
	pf.StringVar(&a.flags.storeKind, "store", "", "store backend: memory|sqlite")
	pf.StringVar(&a.flags.dbPath, "db-path", "", "sqlite database path")
	pf.StringVar(&a.flags.artifactsDir, "artifacts-dir", "", "run artifacts directory")
	pf.StringVar(&a.flags.exportsDir, "exports-dir", "", "export directory")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "text|json|auto")

	root.AddCommand(
		a.initCommand(),
		a.validateCommand(),
		a.runCommand(),
		a.runsCommand(),
		a.showCommand(),
		a.exportCommand(),
		a.sensitivityCommand(),
	)
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("store", &cfg.Store.Kind, a.flags.storeKind)
	override("db-path", &cfg.Store.SQLitePath, a.flags.dbPath)
	override("artifacts-dir", &cfg.Artifacts.Dir, a.flags.artifactsDir)
	override("exports-dir", &cfg.Artifacts.ExportDir, a.flags.exportsDir)
	override("log-level", &cfg.Log.Level, a.flags.logLevel)
	override("log-format", &cfg.Log.Format, a.flags.logFormat)
	a.cfg = cfg
	return nil
}

func (a *app) client(cmd *cobra.Command) (*api.Client, error) {
	level, err := logging.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = a.cfg.Log.Format
	logCfg.Output = cmd.ErrOrStderr()

	client, err := api.New(api.Options{
		StoreKind:    a.cfg.Store.Kind,
		DBPath:       a.cfg.Store.SQLitePath,
		ArtifactsDir: a.cfg.Artifacts.Dir,
		ExportsDir:   a.cfg.Artifacts.ExportDir,
		Logger:       logging.New(logCfg),
		Workers:      a.cfg.Sensitivity.Workers,
		FDStep:       a.cfg.Sensitivity.FDStep,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (a *app) initCommand() *cobra.Command {
	var examplePath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the store and optionally write an example scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintf(a.out, "initialized store=%s\n", storeName(a.cfg.Store.Kind))
			if examplePath != "" {
				if err := scenario.Write(examplePath, scenario.Example()); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "wrote example scenario %s\n", examplePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&examplePath, "example", "", "write an example scenario to this path (.yaml or .json)")
	return cmd
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Check a scenario file without evaluating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "scenario %s valid: years=%d ages=%d fleets=%d recruitment=%s\n",
				s.ID, s.NYears, len(s.Ages), len(s.Fleets), s.Recruitment.Form)
			return nil
		},
	}
}

type scenarioFlags struct {
	path string
	id   string
	save bool
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "scenario", "", "scenario file (.yaml or .json)")
	cmd.Flags().StringVar(&f.id, "scenario-id", "", "id of a stored scenario")
	cmd.MarkFlagsMutuallyExclusive("scenario", "scenario-id")
	cmd.MarkFlagsOneRequired("scenario", "scenario-id")
}

func (a *app) runCommand() *cobra.Command {
	var (
		sf    scenarioFlags
		runID string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a scenario and persist the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			if sf.save && sf.path != "" {
				s, err := scenario.Load(sf.path)
				if err != nil {
					return err
				}
				if _, err := client.SaveScenario(ctx, s); err != nil {
					return err
				}
			}
			summary, err := client.Evaluate(ctx, api.EvaluateRequest{
				RunID:        runID,
				ScenarioPath: sf.path,
				ScenarioID:   sf.id,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "run_id=%s scenario=%s duration=%s\n", summary.RunID, summary.ScenarioID, summary.Duration)
			fmt.Fprintf(a.out, "terminal_spawning_biomass=%s terminal_biomass=%s depletion=%.3f total_catch=%s\n",
				quantity(summary.TerminalSpawningBiomass), quantity(summary.TerminalBiomass),
				summary.Depletion, quantity(summary.TotalCatch))
			fmt.Fprintf(a.out, "artifacts=%s\n", summary.ArtifactsDir)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&sf.save, "save", false, "also store the scenario file")
	cmd.Flags().StringVar(&runID, "run-id", "", "run id (default: random uuid)")
	return cmd
}

func (a *app) runsCommand() *cobra.Command {
	var (
		limit      int
		scenarioID string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), api.RunsRequest{Limit: limit, ScenarioID: scenarioID})
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "no runs")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(a.out, "run_id=%s scenario=%s created=%s years=%d ages=%d fleets=%d terminal_sb=%s depletion=%.3f catch=%s\n",
					item.RunID, item.ScenarioID, createdLabel(item.CreatedAtUTC), item.NYears, item.NAges, item.NFleets,
					quantity(item.TerminalSpawningBiomass), item.Depletion, quantity(item.TotalCatch))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().StringVar(&scenarioID, "scenario-id", "", "only runs of this scenario")
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's summary and per-fleet catch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			run, err := client.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			printRun(a.out, run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run record as JSON")
	return cmd
}

func printRun(out io.Writer, run model.RunRecord) {
	o := run.Output
	fmt.Fprintf(out, "run_id=%s scenario=%s created=%s\n", run.ID, run.ScenarioID, humanize.Time(run.CreatedAt))
	fmt.Fprintf(out, "years=%d ages=%d phi0=%.4g depletion=%.3f\n", o.NYears, o.NAges, o.Phi0, run.Depletion)
	for y := 0; y <= o.NYears && y < len(o.SpawningBiomass); y++ {
		fmt.Fprintf(out, "year=%d spawning_biomass=%s biomass=%s\n", y, quantity(o.SpawningBiomass[y]), quantity(at(o.Biomass, y)))
	}
	for _, f := range o.Fleets {
		kind := "fishery"
		if f.IsSurvey {
			kind = "survey"
		}
		total := 0.0
		for _, c := range f.ExpectedCatch {
			total += c
		}
		fmt.Fprintf(out, "fleet=%s kind=%s total_catch=%s terminal_index=%.4g\n", f.Name, kind, quantity(total), at(f.ExpectedIndex, len(f.ExpectedIndex)-1))
	}
}

func (a *app) exportCommand() *cobra.Command {
	var (
		runID  string
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts to the export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), api.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id to export")
	cmd.Flags().BoolVar(&latest, "latest", false, "export the newest run")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default from config)")
	return cmd
}

func (a *app) sensitivityCommand() *cobra.Command {
	var (
		sf      scenarioFlags
		runID   string
		output  string
		index   int
		params  []string
		checkFD bool
		top     int
	)
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Differentiate an output with respect to every scenario parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Sensitivity(cmd.Context(), api.SensitivityRequest{
				RunID:        runID,
				ScenarioPath: sf.path,
				ScenarioID:   sf.id,
				Output:       output,
				OutputIndex:  index,
				Parameters:   params,
				CheckFD:      checkFD,
			})
			if err != nil {
				return err
			}
			printSensitivity(a.out, result, checkFD, top)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "id to store the records under (default: random uuid)")
	cmd.Flags().StringVar(&output, "output", "spawning_biomass", "derived quantity to differentiate")
	cmd.Flags().IntVar(&index, "index", -1, "element of the output; negative counts from the end")
	cmd.Flags().StringSliceVar(&params, "param", nil, "restrict to these parameters, e.g. trawl/log_fmort[3]")
	cmd.Flags().BoolVar(&checkFD, "fd", false, "check each derivative against a central finite difference")
	cmd.Flags().IntVar(&top, "top", 0, "print only the n largest derivatives by magnitude")
	return cmd
}

func printSensitivity(out io.Writer, result api.SensitivityResult, withFD bool, top int) {
	records := append([]model.SensitivityRecord(nil), result.Records...)
	if top > 0 {
		sort.SliceStable(records, func(i, j int) bool {
			return math.Abs(records[i].Derivative) > math.Abs(records[j].Derivative)
		})
		if len(records) > top {
			records = records[:top]
		}
	}
	output := ""
	if len(records) > 0 {
		output = records[0].Output
	}
	fmt.Fprintf(out, "run_id=%s output=%s parameters=%d\n", result.RunID, output, len(result.Records))
	for _, rec := range records {
		line := fmt.Sprintf("%s value=%.6g derivative=%.6g", rec.Parameter, rec.Value, rec.Derivative)
		if withFD {
			line += fmt.Sprintf(" fd=%.6g rel_err=%.2e", rec.FiniteDifference, rec.RelativeError)
		}
		fmt.Fprintln(out, line)
	}
}

func quantity(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	if math.Abs(v) < 1000 {
		return humanize.CommafWithDigits(v, 3)
	}
	return humanize.Commaf(math.Round(v))
}

func createdLabel(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339Nano, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.UTC().Format(time.RFC3339)
}

func storeName(kind string) string {
	if strings.TrimSpace(kind) == "" {
		return "memory"
	}
	return kind
}

func at(values []float64, i int) float64 {
	if i < 0 || i >= len(values) {
		return 0
	}
	return values[i]
}
