package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/skanders/thermoflow/internal/config"
	"github.com/skanders/thermoflow/internal/export"
	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
	"github.com/skanders/thermoflow/internal/view"
)

var (
	dataDir string
	verbose bool

	mode       string
	maxIter    int
	minIter    int
	alwaysAll  bool
	useCUDA    bool
	initOnly   bool
	initPath   string
	designPath string

	colored bool
	outFile string
	height  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thermoflow",
		Short: "steady-state thermodynamic network solver",
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".thermoflow", "run storage directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	solveCmd := &cobra.Command{
		Use:   "solve [case.yaml]",
		Short: "solve a network case",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	addSolveFlags(solveCmd)

	liveCmd := &cobra.Command{
		Use:   "live [case.yaml]",
		Short: "solve with a live convergence view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addSolveFlags(liveCmd)

	resultsCmd := &cobra.Command{
		Use:   "results [run_id]",
		Short: "print the result tables of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runResults,
	}
	resultsCmd.Flags().BoolVar(&colored, "colored", false, "highlight specified values")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the convergence history of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().IntVar(&height, "height", 12, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [case.yaml]",
		Short: "solve a case and export diagram data as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	addSolveFlags(exportCmd)
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  runList,
	}

	fluidsCmd := &cobra.Command{
		Use:   "fluids",
		Short: "list the fluid property registry",
		Run:   runFluids,
	}

	rootCmd.AddCommand(solveCmd, liveCmd, resultsCmd, plotCmd, exportCmd, listCmd, fluidsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mode, "mode", "", "design or offdesign (default from case)")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "maximum iterations")
	cmd.Flags().IntVar(&minIter, "min-iter", 0, "minimum iterations before convergence")
	cmd.Flags().BoolVar(&alwaysAll, "always-all-equations", true, "recompute every residual each iteration")
	cmd.Flags().BoolVar(&useCUDA, "cuda", false, "gpu matrix inversion when available")
	cmd.Flags().BoolVar(&initOnly, "init-only", false, "stop after initialisation")
	cmd.Flags().StringVar(&initPath, "init-path", "", "stored run as starting values")
	cmd.Flags().StringVar(&designPath, "design-path", "", "stored design run for offdesign")
}

func loadCase(path string) (*config.Case, *netw.Network, netw.SolveOptions, string, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, nil, netw.SolveOptions{}, "", err
	}
	nw, err := c.Build()
	if err != nil {
		return nil, nil, netw.SolveOptions{}, "", err
	}

	opts := c.Solver.Options()
	if maxIter > 0 {
		opts.MaxIter = maxIter
	}
	if minIter > 0 {
		opts.MinIter = minIter
	}
	opts.AlwaysAllEquations = alwaysAll
	opts.UseCUDA = opts.UseCUDA || useCUDA
	opts.InitOnly = initOnly
	if initPath != "" {
		opts.InitPath = initPath
	}
	if designPath != "" {
		opts.DesignPath = designPath
	}

	solveMode := c.Solver.SolveMode()
	if mode != "" {
		solveMode = mode
	}
	return c, nw, opts, solveMode, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	c, nw, opts, solveMode, err := loadCase(args[0])
	if err != nil {
		return err
	}
	if err := nw.Solve(solveMode, opts); err != nil {
		return err
	}
	if opts.InitOnly {
		return nil
	}

	nw.PrintResults(colored)

	store := export.NewStore(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(c.Name, nw, nw.Report)
	if err != nil {
		return err
	}
	log.Info("stored run", "id", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	c, nw, opts, solveMode, err := loadCase(args[0])
	if err != nil {
		return err
	}

	msgs, onIter, finish := view.Feed()
	opts.IterInfo = false
	opts.OnIteration = onIter

	errc := make(chan error, 1)
	go func() {
		err := nw.Solve(solveMode, opts)
		finish(err)
		errc <- err
	}()

	p := tea.NewProgram(view.NewModel(c.Name, solveMode, msgs))
	_, runErr := p.Run()

	// join the solver before reading the report or network state; the
	// viewer may have quit while the iteration was still running
	solveErr := <-errc
	if runErr != nil {
		return runErr
	}
	if solveErr != nil {
		return solveErr
	}

	store := export.NewStore(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(c.Name, nw, nw.Report)
	if err != nil {
		return err
	}
	log.Info("stored run", "id", runID)
	return nil
}

func runResults(cmd *cobra.Command, args []string) error {
	store := export.NewStore(dataDir)
	meta, err := store.Meta(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run %s: case %s, %s mode, %d iterations, residual %.3e\n\n",
		meta.ID, meta.Case, meta.Mode, meta.Iterations, meta.Residual)

	for _, table := range []struct{ title, file string }{
		{"Connections", "connections.csv"},
		{"Components", "components.csv"},
	} {
		recs, err := store.Table(args[0], table.file)
		if err != nil {
			return err
		}
		printTable(table.title, recs)
	}
	return nil
}

func printTable(title string, recs [][]string) {
	if colored {
		title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render(title)
	}
	fmt.Println(title)
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, rec := range recs {
		fmt.Fprintln(w, strings.Join(rec, "\t"))
	}
	w.Flush()
	fmt.Println()
}

func runPlot(cmd *cobra.Command, args []string) error {
	store := export.NewStore(dataDir)
	residuals, err := store.Convergence(args[0])
	if err != nil {
		return err
	}
	fmt.Println(export.ConvergencePlot(residuals, height))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	c, nw, opts, solveMode, err := loadCase(args[0])
	if err != nil {
		return err
	}
	opts.IterInfo = false
	if err := nw.Solve(solveMode, opts); err != nil {
		return err
	}

	data := export.CollectPlotData(c.Name, nw)
	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return data.WriteJSON(out)
}

func runList(cmd *cobra.Command, args []string) error {
	store := export.NewStore(dataDir)
	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no stored runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tcase\tmode\titer\tresidual\tconverged\twhen")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2e\t%v\t%s\n",
			m.ID, m.Case, m.Mode, m.Iterations, m.Residual, m.Converged,
			m.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runFluids(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "fluid\tp_min (Pa)\tp_max (Pa)\tT_min (K)\tT_max (K)")
	for _, name := range fluid.Names() {
		f, err := fluid.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%.3g\t%.3g\t%.4g\t%.4g\n",
			name, f.Valid.PMin, f.Valid.PMax, f.Valid.TMin, f.Valid.TMax)
	}
	w.Flush()
}
