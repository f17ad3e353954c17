package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/timelag/internal/config"
	"github.com/san-kum/timelag/internal/dataio"
	"github.com/san-kum/timelag/internal/diffusion"
	"github.com/san-kum/timelag/internal/export"
	"github.com/san-kum/timelag/internal/logging"
	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/storage"
	"github.com/san-kum/timelag/internal/viz"
	"github.com/san-kum/timelag/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	themeName  string
	outputDir  string

	experimentID string
	thickness    float64
	diameter     float64
	flowRate     float64
	startTime    float64
	endTime      float64
	preset       string
	sheet        string

	noSave   bool
	writeSVG bool
	asJSON   bool
	interact bool
	jobs     int

	simD        float64
	simCEq      float64
	simLength   float64
	simDuration float64
	simDt       float64
	simDx       float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "timelag",
		Short:         "time-lag analysis of gas permeation experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "", fmt.Sprintf("terminal theme %v", viz.ThemeNames()))
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "directory for saved runs")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "analyse one experiment file",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeFile,
	}
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	analyzeCmd.Flags().BoolVar(&writeSVG, "svg", false, "write SVG figures")
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	analyzeCmd.Flags().BoolVar(&interact, "view", false, "open the interactive viewer")

	viewCmd := &cobra.Command{
		Use:   "view [file...]",
		Short: "analyse files and browse the results interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE:  viewFiles,
	}
	addAnalysisFlags(viewCmd)

	batchCmd := &cobra.Command{
		Use:   "batch [experiment...]",
		Short: "analyse registered experiments concurrently",
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&jobs, "jobs", 4, "experiments analysed at once (0 = unlimited)")
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	batchCmd.Flags().BoolVar(&writeSVG, "svg", false, "write SVG figures")
	batchCmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("detection preset %v", config.ListPresets()))

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the diffusion model on its own",
		RunE:  simulate,
	}
	simulateCmd.Flags().Float64Var(&simD, "D", 1e-6, "diffusion coefficient (cm²/s)")
	simulateCmd.Flags().Float64Var(&simCEq, "ceq", 1.0, "upstream concentration (cm³(STP)/cm³)")
	simulateCmd.Flags().Float64Var(&simLength, "length", 0.1, "membrane thickness (cm)")
	simulateCmd.Flags().Float64Var(&simDuration, "time", 10000, "duration (s)")
	simulateCmd.Flags().Float64Var(&simDt, "dt", 1.0, "timestep (s)")
	simulateCmd.Flags().Float64Var(&simDx, "dx", 0, "grid spacing (cm), default length/50")

	experimentsCmd := &cobra.Command{
		Use:   "experiments",
		Short: "list registered experiments",
		Args:  cobra.NoArgs,
		RunE:  listExperiments,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list detection presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tWINDOW\tTHRESHOLD\tREQUIRE MAX")
			for _, name := range config.ListPresets() {
				p, _ := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%g\t%v\n", name, p.Window, p.Threshold, p.RequireMax)
			}
			return w.Flush()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&writeSVG, "svg", false, "write SVG figures into the run directory")
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	showCmd.Flags().BoolVar(&interact, "view", false, "open the interactive viewer")

	rootCmd.AddCommand(analyzeCmd, viewCmd, batchCmd, simulateCmd, experimentsCmd, presetsCmd, listCmd, showCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&experimentID, "experiment", "", "experiment id (default: file name)")
	cmd.Flags().Float64Var(&thickness, "thickness", 0, "membrane thickness (cm)")
	cmd.Flags().Float64Var(&diameter, "diameter", 0, "membrane diameter (cm)")
	cmd.Flags().Float64Var(&flowRate, "flow-rate", 0, "sweep flow rate (ml/min), overrides the data column")
	cmd.Flags().Float64Var(&startTime, "start", 0, "stabilisation time (s), skips detection")
	cmd.Flags().Float64Var(&endTime, "end", 0, "end of the analysed window (s)")
	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("detection preset %v", config.ListPresets()))
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name (default: first sheet)")
}

type env struct {
	cfg    *config.Config
	logger *slog.Logger
	theme  viz.Theme
}

// setup loads the config and applies the persistent flags over it.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("theme") {
		cfg.Theme = themeName
	}
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}
	th, ok := viz.LookupTheme(cfg.Theme)
	if !ok {
		logger.Warn("unknown theme, using default", "theme", cfg.Theme)
	}
	return &env{cfg: cfg, logger: logger, theme: th}, nil
}

func analyzeFile(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	path := args[0]

	id := experimentID
	if id == "" {
		id = dataio.ExperimentName(path)
	}
	p, err := analysisParams(e.cfg, id, cmd.Flags().Changed)
	if err != nil {
		return err
	}

	res, err := analyze(cmd.Context(), e, path, p)
	if err != nil {
		return err
	}

	dir := e.cfg.OutputDir
	if !noSave {
		st := storage.New(e.cfg.OutputDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(res)
		if err != nil {
			return err
		}
		dir = st.Dir(runID)
		e.logger.Info("run saved", "run_id", runID, "dir", dir)
	}
	if writeSVG {
		if err := writeFigures(e.logger, dir, res); err != nil {
			return err
		}
	}

	if asJSON {
		return storage.ExportJSON(os.Stdout, res)
	}
	if interact {
		return runViewer(e.theme, res)
	}
	printResult(e.theme, res)
	return nil
}

func viewFiles(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	results := make([]*workflow.Result, 0, len(args))
	for _, path := range args {
		id := dataio.ExperimentName(path)
		if experimentID != "" && len(args) == 1 {
			id = experimentID
		}
		p, err := analysisParams(e.cfg, id, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		res, err := analyze(cmd.Context(), e, path, p)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	return runViewer(e.theme, results...)
}

func analyze(ctx context.Context, e *env, path string, p workflow.Params) (*workflow.Result, error) {
	loader := dataio.NewLoader(e.cfg.Columns)
	loader.Sheet = sheet
	raw, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("loaded data", "file", path, "samples", len(raw))
	start := time.Now()
	res, err := workflow.NewRunner(e.logger).Run(ctx, raw, p)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("analysis finished", "experiment", p.Experiment, "elapsed", time.Since(start))
	return res, nil
}

// analysisParams starts from the registry entry for id, or the global
// settings when id is not registered, and applies the flags that were set.
func analysisParams(cfg *config.Config, id string, changed func(string) bool) (workflow.Params, error) {
	var p workflow.Params
	if _, err := cfg.Experiments.Lookup(id); err == nil {
		if p, err = cfg.Params(id); err != nil {
			return p, err
		}
	} else {
		if !changed("thickness") {
			return p, fmt.Errorf("experiment %q is not registered, --thickness is required", id)
		}
		p = cfg.BaseParams(id, thickness)
	}

	if preset != "" {
		d, ok := config.GetPreset(preset)
		if !ok {
			return p, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		p.Detection = d.Options()
	}
	if changed("thickness") {
		p.Thickness = thickness
	}
	if changed("diameter") {
		p.Diameter = diameter
	}
	if changed("flow-rate") {
		q := flowRate
		p.FlowRate = &q
	}
	if changed("start") {
		s := startTime
		p.Override.Start = &s
	}
	if changed("end") {
		t := endTime
		p.Override.End = &t
	}
	return p, p.Validate()
}

func runBatch(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	ids := args
	if len(ids) == 0 {
		ids = e.cfg.Experiments.IDs()
	}
	if len(ids) == 0 {
		fmt.Println("no experiments registered")
		return nil
	}

	var detection *config.DetectionConfig
	if preset != "" {
		d, ok := config.GetPreset(preset)
		if !ok {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		detection = &d
	}

	loader := dataio.NewLoader(e.cfg.Columns)
	batch := make([]workflow.Job, 0, len(ids))
	for _, id := range ids {
		p, err := e.cfg.Params(id)
		if err != nil {
			return err
		}
		if detection != nil {
			p.Detection = detection.Options()
		}
		path, err := e.cfg.DataPath(id)
		if err != nil {
			return err
		}
		batch = append(batch, workflow.Job{
			Params: p,
			Load: func(ctx context.Context) ([]permeation.RawSample, error) {
				return loader.Load(path)
			},
		})
	}

	start := time.Now()
	results, err := workflow.NewRunner(e.logger).Batch(cmd.Context(), batch, jobs)
	if err != nil {
		return err
	}
	e.logger.Info("batch finished", "experiments", len(results), "elapsed", time.Since(start))

	var st *storage.Store
	if !noSave {
		st = storage.New(e.cfg.OutputDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXPERIMENT\tTIME LAG (s)\tD (cm²/s)\tP\tS\tR²\tRUN")
	for _, res := range results {
		runID := "-"
		dir := e.cfg.OutputDir
		if st != nil {
			if runID, err = st.Save(res); err != nil {
				return err
			}
			dir = st.Dir(runID)
		}
		if writeSVG {
			if err := writeFigures(e.logger, dir, res); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%.1f\t%.3e\t%.3e\t%.3e\t%.5f\t%s\n",
			res.Experiment,
			res.TimeLag,
			res.DiffusionCoefficient,
			res.Permeability,
			res.SolubilityCoefficient,
			res.Validation.RSquared,
			runID,
		)
	}
	return w.Flush()
}

func simulate(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	dx := simDx
	if !cmd.Flags().Changed("dx") {
		dx = simLength / float64(e.cfg.Simulation.SpaceDivisions)
	}
	dt := simDt
	if !cmd.Flags().Changed("dt") {
		dt = e.cfg.Simulation.Dt
	}
	p := diffusion.Params{D: simD, CEq: simCEq, Length: simLength, Duration: simDuration, Dt: dt, Dx: dx}

	start := time.Now()
	field, err := diffusion.Run(cmd.Context(), p)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	nx, nt := p.GridSize()
	lag := simLength * simLength / (6 * simD)
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("nodes: %d  steps: %d  max stable dt: %.4g s\n", nx, nt, p.MaxStableDt())
	fmt.Printf("theoretical time lag L²/6D: %.4g s\n", lag)
	fmt.Printf("final outlet flux: %.4e (steady state D·C/L: %.4e)\n",
		field.Flux[len(field.Flux)-1], simD*simCEq/simLength)

	width := 70
	data := make([]float64, width)
	for i := range data {
		data[i] = field.Flux[i*(len(field.Flux)-1)/(width-1)]
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(15),
		asciigraph.Precision(3),
		asciigraph.Caption(fmt.Sprintf("outlet flux over %.0f s", simDuration)),
	))
	return nil
}

func listExperiments(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	ids := e.cfg.Experiments.IDs()
	if len(ids) == 0 {
		fmt.Println("no experiments registered")
		return nil
	}

	opt := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%g", *v)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tTHICKNESS\tFLOW RATE\tDIAMETER\tSTART\tEND")
	for _, id := range ids {
		exp := e.cfg.Experiments[id]
		path, _ := e.cfg.DataPath(id)
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\t%s\n",
			id, path, exp.Thickness, opt(exp.FlowRate), opt(exp.Diameter), opt(exp.Start), opt(exp.End))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	runs, err := storage.New(e.cfg.OutputDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXPERIMENT\tTIME\tTIME LAG\tD\tR²")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%.3e\t%.5f\n",
			run.ID,
			run.Experiment,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TimeLag,
			run.DiffusionCoefficient,
			run.RSquared,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	runID := args[0]

	st := storage.New(e.cfg.OutputDir)
	res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	if asJSON {
		return storage.ExportJSON(os.Stdout, res)
	}
	if writeSVG {
		if err := writeFigures(e.logger, st.Dir(runID), res); err != nil {
			return err
		}
	}
	if interact {
		return runViewer(e.theme, res)
	}
	printResult(e.theme, res)
	return nil
}

func writeFigures(logger *slog.Logger, dir string, res *workflow.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	paths, err := export.WriteFigures(dir, res, export.DefaultStyle())
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("figure written", "path", filepath.Clean(p))
	}
	return nil
}

func printResult(th viz.Theme, res *workflow.Result) {
	size := viz.DefaultPlotSize()
	fmt.Println(viz.Report(res, th))
	for _, plot := range []string{
		viz.CumulativeFluxPlot(res, size),
		viz.FluxPlot(res, size),
		viz.ProfilePlot(res, size),
	} {
		if plot != "" {
			fmt.Println()
			fmt.Println(plot)
		}
	}
}

func runViewer(th viz.Theme, results ...*workflow.Result) error {
	p := tea.NewProgram(viz.NewViewer(th, results...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
