// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sguazt/fog-vmalloc-sub000/driver"
	"github.com/sguazt/fog-vmalloc-sub000/report"
	"github.com/sguazt/fog-vmalloc-sub000/scenario"
)

var (
	scenarioPath   string
	rngSeed        int64
	optimRelTol    float64
	optimTimeLimit float64
	ciLevel        float64
	ciRelPrecision float64
	maxNumRep      int
	maxRepLen      int
	outStatsFile   string
	outTraceFile   string
	testOnly       bool
	verbosity      int
)

var rootCmd = &cobra.Command{
	Use:   "fog-vmalloc",
	Short: "Discrete-event simulator for fog-computing VM placement",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a fog VM-placement experiment from a scenario file",
	RunE:  runExperiment,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario file (required)")
	runCmd.Flags().Int64Var(&rngSeed, "rng-seed", 1, "Master RNG seed")
	runCmd.Flags().Float64Var(&optimRelTol, "optim-reltol", 1e-4, "Placement solver relative optimality gap")
	runCmd.Flags().Float64Var(&optimTimeLimit, "optim-tilim", 1.0, "Placement solver time limit, in seconds")
	runCmd.Flags().Float64Var(&ciLevel, "sim-ci-level", 0.95, "Confidence level for the profit CI estimator")
	runCmd.Flags().Float64Var(&ciRelPrecision, "sim-ci-rel-precision", 0.04, "Target relative precision for the profit CI estimator")
	runCmd.Flags().IntVar(&maxNumRep, "sim-max-num-rep", 0, "Max number of replications (0 = unlimited)")
	runCmd.Flags().IntVar(&maxRepLen, "sim-max-rep-len", 100, "Max number of VM-allocation slots per replication")
	runCmd.Flags().StringVar(&outStatsFile, "out-stats-file", "stats.csv", "Output path for the stats CSV file")
	runCmd.Flags().StringVar(&outTraceFile, "out-trace-file", "", "Output path for the trace CSV file (optional)")
	runCmd.Flags().BoolVar(&testOnly, "test", false, "Print the resolved settings and exit without running")
	runCmd.Flags().IntVar(&verbosity, "verbosity", 4, "Log verbosity, 0 (silent) to 9 (trace)")

	_ = runCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(runCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	logrus.SetLevel(verbosityToLevel(verbosity))

	cfg, err := scenario.Load(scenarioPath)
	if err != nil {
		logrus.Fatalf("loading scenario: %v", err)
	}

	if testOnly {
		printSettings(cfg)
		return nil
	}

	statsWriter, err := report.NewWriter(outStatsFile, statsColumns())
	if err != nil {
		logrus.Fatalf("opening stats file: %v", err)
	}
	defer statsWriter.Close()

	if err := report.WriteManifest(outStatsFile+".manifest.yaml", report.Manifest{
		ScenarioPath:   scenarioPath,
		RNGSeed:        rngSeed,
		CILevel:        ciLevel,
		CIRelPrecision: ciRelPrecision,
		MaxNumRep:      maxNumRep,
		MaxRepLen:      maxRepLen,
		OptimRelTol:    optimRelTol,
		OptimTimeLimit: optimTimeLimit,
	}); err != nil {
		logrus.Warnf("writing run manifest: %v", err)
	}

	var traceWriter *report.Writer
	if outTraceFile != "" {
		traceWriter, err = report.NewWriter(outTraceFile, traceColumns())
		if err != nil {
			logrus.Fatalf("opening trace file: %v", err)
		}
		defer traceWriter.Close()
	}

	logrus.Infof("starting experiment: scenario=%s seed=%d fns=%d svcs=%d", scenarioPath, rngSeed, cfg.NumFNs(), cfg.NumSvcs())

	d, err := driver.New(driver.Config{
		Scenario:              cfg,
		Seed:                  rngSeed,
		CILevel:               ciLevel,
		CIRelPrecision:        ciRelPrecision,
		MaxNumReplications:    maxNumRep,
		MaxReplicationLen:     maxRepLen,
		OptimTimeLimitSeconds: optimTimeLimit,
		OptimRelTol:           optimRelTol,
		StatsWriter:           statsWriter,
		TraceWriter:           traceWriter,
	})
	if err != nil {
		logrus.Fatalf("building driver: %v", err)
	}

	summary, err := d.Run()
	if err != nil {
		logrus.Fatalf("running experiment: %v", err)
	}

	logrus.Infof("done: %d replications, mean predicted profit=%.4f mean real profit=%.4f half-width=%.4f",
		summary.Replications, summary.MeanPredictedProfit, summary.MeanRealProfit, summary.HalfWidth)
	return nil
}

func printSettings(cfg *scenario.Config) {
	fmt.Printf("scenario: %s\n", scenarioPath)
	fmt.Printf("  fn categories:  %d (total FNs %d)\n", cfg.NumFNCategories, cfg.NumFNs())
	fmt.Printf("  svc categories: %d (total services %d)\n", cfg.NumSvcCategories, cfg.NumSvcs())
	fmt.Printf("  vm categories:  %d\n", cfg.NumVMCategories)
	fmt.Printf("  allocation interval: %v\n", cfg.VMAllocationInterval)
	fmt.Printf("  allocation policy:   %s\n", cfg.VMAllocationPolicy)
	fmt.Printf("  real workload mode:  %s\n", cfg.RealWorkloadMode)
	fmt.Printf("rng-seed=%d optim-reltol=%g optim-tilim=%gs\n", rngSeed, optimRelTol, optimTimeLimit)
	fmt.Printf("sim-ci-level=%g sim-ci-rel-precision=%g sim-max-num-rep=%d sim-max-rep-len=%d\n",
		ciLevel, ciRelPrecision, maxNumRep, maxRepLen)
	fmt.Printf("out-stats-file=%s out-trace-file=%s\n", outStatsFile, outTraceFile)
}

func statsColumns() []string {
	return []string{
		"predicted_profit", "real_profit",
		"predicted_revenue", "real_revenue",
		"predicted_cost", "real_cost",
		"global_predicted_profit", "global_real_profit",
		"mean_profit", "mean_predicted_profit", "mean_real_profit",
		"mean_global_predicted_profit", "mean_global_real_profit",
		"half_width",
	}
}

func traceColumns() []string {
	return []string{
		"predicted_profit", "real_profit",
		"predicted_num_fns_on", "real_num_fns_on",
	}
}

func verbosityToLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.PanicLevel
	case v == 1:
		return logrus.FatalLevel
	case v == 2:
		return logrus.ErrorLevel
	case v == 3:
		return logrus.WarnLevel
	case v <= 5:
		return logrus.InfoLevel
	case v <= 7:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
