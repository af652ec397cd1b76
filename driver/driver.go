// Package driver implements the experiment driver: the
// INIT -> (VM_ALLOC_TRIGGER -> PROCESS_SLOT)* -> END_OF_REPLICATION state
// machine that ties every other package together into runnable
// replications, feeding interval/replication/global scalars into
// stats.MeanEstimator and report.Writer.
package driver

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sguazt/fog-vmalloc-sub000/estimator"
	"github.com/sguazt/fog-vmalloc-sub000/mobility"
	"github.com/sguazt/fog-vmalloc-sub000/oracle"
	"github.com/sguazt/fog-vmalloc-sub000/placement"
	"github.com/sguazt/fog-vmalloc-sub000/queueing"
	"github.com/sguazt/fog-vmalloc-sub000/report"
	"github.com/sguazt/fog-vmalloc-sub000/scenario"
	"github.com/sguazt/fog-vmalloc-sub000/simcore"
	"github.com/sguazt/fog-vmalloc-sub000/simrand"
	"github.com/sguazt/fog-vmalloc-sub000/stats"
)

const vmAllocTriggerKind = "VM_ALLOC_TRIGGER"

// Config bundles everything the CLI resolves before handing off to the
// driver.
type Config struct {
	Scenario *scenario.Config
	Seed     int64

	CILevel            float64
	CIRelPrecision     float64
	MaxNumReplications int
	MaxReplicationLen  int // max slots per replication

	OptimTimeLimitSeconds float64
	OptimRelTol           float64

	StatsWriter *report.Writer // may be nil
	TraceWriter *report.Writer // may be nil
}

// Driver runs a full multi-replication experiment against one scenario.
type Driver struct {
	cfg    Config
	rng    *simrand.RNG
	solver placement.Solver

	numFN  int
	numSvc int

	estimators   []estimator.Estimator
	mobilitySrcs []mobility.Source

	// watched CI estimators: the simulation ends when all four are
	// Done() or Unstable() (§4.8 end-of-simulation).
	predProfitCI       *stats.MeanEstimator
	realProfitCI       *stats.MeanEstimator
	globalPredProfitCI *stats.MeanEstimator
	globalRealProfitCI *stats.MeanEstimator
}

// New constructs a Driver, building per-service estimators and mobility
// sources from the scenario's category configuration.
func New(cfg Config) (*Driver, error) {
	c := cfg.Scenario
	if err := c.Validate(); err != nil {
		return nil, err
	}

	solver, err := placement.New(string(c.VMAllocationPolicy))
	if err != nil {
		return nil, err
	}

	rng := simrand.New(simrand.NewKey(cfg.Seed))

	d := &Driver{
		cfg:    cfg,
		rng:    rng,
		solver: solver,
		numFN:  c.NumFNs(),
		numSvc: c.NumSvcs(),
	}

	d.estimators = make([]estimator.Estimator, d.numSvc)
	d.mobilitySrcs = make([]mobility.Source, d.numSvc)
	for svc := 0; svc < d.numSvc; svc++ {
		cat := c.SvcCategories[c.SvcCat[svc]]
		est, err := estimator.New(estimator.Kind(cat.EstimatorKind), rng.For(simrand.SubsystemService(svc)), cat.EstimatorParams)
		if err != nil {
			return nil, fmt.Errorf("driver: building estimator for service %d: %w", svc, err)
		}
		d.estimators[svc] = est

		src, err := mobility.New(mobility.Kind(cat.MobilityKind), cat.MobilityParams, cat.MobilityCounts, c.VMAllocationInterval)
		if err != nil {
			return nil, fmt.Errorf("driver: building mobility source for service %d: %w", svc, err)
		}
		d.mobilitySrcs[svc] = src
	}

	nMax := maxOr(cfg.MaxNumReplications, 1<<30)
	d.predProfitCI = stats.NewMeanEstimator("predicted_profit", cfg.CILevel, cfg.CIRelPrecision, 2, nMax)
	d.realProfitCI = stats.NewMeanEstimator("real_profit", cfg.CILevel, cfg.CIRelPrecision, 2, nMax)
	d.globalPredProfitCI = stats.NewMeanEstimator("global_predicted_profit", cfg.CILevel, cfg.CIRelPrecision, 2, nMax)
	d.globalRealProfitCI = stats.NewMeanEstimator("global_real_profit", cfg.CILevel, cfg.CIRelPrecision, 2, nMax)

	return d, nil
}

func maxOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// Summary reports the outcome of a full experiment run.
type Summary struct {
	Replications int

	MeanPredictedProfit float64
	MeanRealProfit      float64
	MeanGlobalPredictedProfit float64
	MeanGlobalRealProfit      float64

	HalfWidth float64 // of the real-profit estimator, the scored outcome
	Unstable  bool
}

// watchedDone reports whether every CI estimator named in §4.8's
// end-of-simulation condition is Done() or Unstable().
func (d *Driver) watchedDone() bool {
	for _, e := range []*stats.MeanEstimator{d.predProfitCI, d.realProfitCI, d.globalPredProfitCI, d.globalRealProfitCI} {
		if !(e.Done() || e.Unstable()) {
			return false
		}
	}
	return true
}

func (d *Driver) watchedUnstable() bool {
	for _, e := range []*stats.MeanEstimator{d.predProfitCI, d.realProfitCI, d.globalPredProfitCI, d.globalRealProfitCI} {
		if e.Unstable() {
			return true
		}
	}
	return false
}

// Run drives replications until every watched CI estimator is Done (or
// Unstable), or MaxNumReplications is reached, whichever comes first.
func (d *Driver) Run() (Summary, error) {
	rep := 0
	maxRep := d.cfg.MaxNumReplications
	for (maxRep <= 0 || rep < maxRep) && !d.watchedDone() {
		outcome, err := d.runReplication(rep)
		if err != nil {
			return Summary{}, err
		}

		d.predProfitCI.Collect(outcome.predProfit)
		d.realProfitCI.Collect(outcome.realProfit)
		if outcome.globalPredOK {
			d.globalPredProfitCI.Collect(outcome.globalPredProfit)
		}
		if outcome.globalRealOK {
			d.globalRealProfitCI.Collect(outcome.globalRealProfit)
		}

		if d.cfg.StatsWriter != nil {
			values := map[string]float64{
				"predicted_profit": outcome.predProfit,
				"real_profit":      outcome.realProfit,
			}
			if outcome.globalPredOK {
				values["global_predicted_profit"] = outcome.globalPredProfit
			}
			if outcome.globalRealOK {
				values["global_real_profit"] = outcome.globalRealProfit
			}
			_ = d.cfg.StatsWriter.WriteRow(report.TagReplication, rep, -1, values)
		}
		rep++
	}

	if d.cfg.StatsWriter != nil {
		_ = d.cfg.StatsWriter.WriteRow(report.TagSimulation, -1, -1, map[string]float64{
			"mean_profit":                   d.realProfitCI.Mean(),
			"mean_predicted_profit":         d.predProfitCI.Mean(),
			"mean_real_profit":              d.realProfitCI.Mean(),
			"mean_global_predicted_profit":  d.globalPredProfitCI.Mean(),
			"mean_global_real_profit":       d.globalRealProfitCI.Mean(),
			"half_width":                    d.realProfitCI.HalfWidth(),
		})
	}

	return Summary{
		Replications:              rep,
		MeanPredictedProfit:       d.predProfitCI.Mean(),
		MeanRealProfit:            d.realProfitCI.Mean(),
		MeanGlobalPredictedProfit: d.globalPredProfitCI.Mean(),
		MeanGlobalRealProfit:      d.globalRealProfitCI.Mean(),
		HalfWidth:                 d.realProfitCI.HalfWidth(),
		Unstable:                  d.watchedUnstable(),
	}, nil
}

// replicationOutcome bundles the per-replication scalars fed into the
// four watched CI estimators at the end of a replication.
type replicationOutcome struct {
	predProfit       float64
	realProfit       float64
	globalPredProfit float64
	globalRealProfit float64
	// globalPredOK/globalRealOK are false when the end-of-replication
	// oracle solve failed outright (§7 "infeasible optimization"): the
	// corresponding zero-value profit must not be folded into the
	// watched global CI estimator, or a transient solver failure would
	// be indistinguishable from a genuine zero-profit outcome.
	globalPredOK bool
	globalRealOK bool
}

// runReplication executes one INIT -> (VM_ALLOC_TRIGGER -> PROCESS_SLOT)*
// -> END_OF_REPLICATION cycle: the predicted solution is the one actually
// persisted into ρ/A each slot, the real solution (computed per
// RealWorkloadMode) only scores the outcome. At the end, the recorded
// predicted and real demand series are replayed through the multi-slot
// oracle (C6) to produce the "global" benchmark.
func (d *Driver) runReplication(repIdx int) (replicationOutcome, error) {
	c := d.cfg.Scenario
	sim := simcore.New(0)
	sim.AllowKind(vmAllocTriggerKind)

	state := newAllocState(d.numFN)

	maxSlots := d.cfg.MaxReplicationLen
	if maxSlots <= 0 {
		maxSlots = 1
	}

	var outcome replicationOutcome
	predDemand := make([]oracle.SlotDemand, 0, maxSlots)
	realDemand := make([]oracle.SlotDemand, 0, maxSlots)

	for slot := 0; slot < maxSlots; slot++ {
		t := float64(slot) * c.VMAllocationInterval
		sim.Schedule(&simcore.FuncEvent{
			BaseEvent: simcore.BaseEvent{EventTime: t, EventKind: vmAllocTriggerKind},
			Fn: func(s *simcore.Simulator) {
				predProfit, realProfit, predReq, realReq := d.processSlot(repIdx, slot, state)
				outcome.predProfit += predProfit
				outcome.realProfit += realProfit
				predDemand = append(predDemand, oracle.SlotDemand{SvcCatVMCatMinVMs: predReq})
				realDemand = append(realDemand, oracle.SlotDemand{SvcCatVMCatMinVMs: realReq})
			},
		})
		sim.Run()
	}

	oracleSolver := d.Oracle()
	base := d.baseOracleInput()
	if predSol, err := oracleSolver.Solve(base, predDemand); err == nil {
		outcome.globalPredProfit = predSol.Profit
		outcome.globalPredOK = true
	} else {
		logrus.Warnf("driver: replication %d global predicted oracle solve failed: %v", repIdx, err)
	}
	if realSol, err := oracleSolver.Solve(base, realDemand); err == nil {
		outcome.globalRealProfit = realSol.Profit
		outcome.globalRealOK = true
	} else {
		logrus.Warnf("driver: replication %d global real oracle solve failed: %v", repIdx, err)
	}

	return outcome, nil
}

// processSlot runs one VM_ALLOC_TRIGGER/PROCESS_SLOT pair per §4.8:
// re-estimate arrival rates, size predicted and real demand, solve the
// predicted placement (always persisted), solve or derive the real
// placement per RealWorkloadMode, write the interval's CSV row, reset
// estimators, and return both profits plus both per-category VM-demand
// matrices (for the end-of-replication oracle).
func (d *Driver) processSlot(repIdx, slot int, state *allocState) (predProfit, realProfit float64, predReq, realReq [][]int) {
	c := d.cfg.Scenario

	predReq, realReq = d.sizeDemand()

	predOK, realOK := true, true

	predIn := d.buildInput(state, predReq)
	predSol, err := d.solver.Solve(predIn)
	if err != nil {
		logrus.Warnf("driver: slot %d predicted solve error: %v", slot, err)
		predSol = placement.Solution{}
		predOK = false
	}

	realIn := d.buildInput(state, realReq)
	var realSol placement.Solution
	switch c.RealWorkloadMode {
	case scenario.AllocateWithFixedFNs:
		fixed := poweredOnFNs(predSol.FNPowerStates)
		realSol, err = d.solver.SolveWithFixedFNs(fixed, realIn)
		if err != nil {
			logrus.Warnf("driver: slot %d real (fixed-fns) solve error: %v", slot, err)
			realSol = placement.Solution{}
			realOK = false
		}
	case scenario.AllocateNone:
		realSol = predSol
		lost := unusedVMRevenue(realIn, predSol, c)
		realSol.Revenue -= lost
		realSol.Profit = realSol.Revenue - realSol.Cost
		realSol.ObjectiveValue = realSol.Profit
		realOK = predOK
	default: // AllocateAll
		realSol, err = d.solver.Solve(realIn)
		if err != nil {
			logrus.Warnf("driver: slot %d real solve error: %v", slot, err)
			realSol = placement.Solution{}
			realOK = false
		}
	}

	if problems := placement.CheckSolution(predSol, predIn); len(problems) > 0 {
		for _, p := range problems {
			logrus.Warnf("driver: slot %d predicted-solution anomaly: %s", slot, p)
		}
		if placement.AbortOnAnomaly {
			logrus.Fatalf("driver: aborting on predicted-solution anomaly at slot %d", slot)
		}
	}

	// The predicted solution is the one that actually runs (§4.8 step 5).
	state.apply(predSol)

	for svc := range d.estimators {
		d.estimators[svc].Reset()
	}

	if d.cfg.StatsWriter != nil {
		values := map[string]float64{}
		if predOK {
			values["predicted_profit"] = predSol.Profit
			values["predicted_revenue"] = predSol.Revenue
			values["predicted_cost"] = predSol.Cost
		}
		if realOK {
			values["real_profit"] = realSol.Profit
			values["real_revenue"] = realSol.Revenue
			values["real_cost"] = realSol.Cost
		}
		_ = d.cfg.StatsWriter.WriteRow(report.TagInterval, repIdx, slot, values)
	}

	if d.cfg.TraceWriter != nil {
		values := map[string]float64{}
		if predOK {
			values["predicted_profit"] = predSol.Profit
			values["predicted_num_fns_on"] = float64(countOn(predSol.FNPowerStates))
		}
		if realOK {
			values["real_profit"] = realSol.Profit
			values["real_num_fns_on"] = float64(countOn(realSol.FNPowerStates))
		}
		_ = d.cfg.TraceWriter.WriteRow(report.TagInterval, repIdx, slot, values)
	}

	return predSol.Profit, realSol.Profit, predReq, realReq
}

func countOn(powerStates []bool) int {
	n := 0
	for _, on := range powerStates {
		if on {
			n++
		}
	}
	return n
}

// unusedVMRevenue implements Open Question (a): in the ALLOCATE_NONE
// real-workload mode, revenue is reduced for VMs placed beyond what each
// service's real-demand minimum actually required this slot. A service
// placed below its real-demand minimum is not charged a penalty here.
func unusedVMRevenue(in placement.Input, sol placement.Solution, c *scenario.Config) float64 {
	var lost float64
	demanded := make([]int, len(in.SvcCategories))
	placed := make([]int, len(in.SvcCategories))
	for svc, cat := range in.SvcCategories {
		_, need := placement.BestVMCategory(cat, in)
		demanded[svc] = need
	}
	for _, allocs := range sol.FNVMAllocations {
		for svc, a := range allocs {
			placed[svc] += a.Count
		}
	}
	for svc := range in.SvcCategories {
		if placed[svc] > demanded[svc] {
			cat := in.SvcCategories[svc]
			lost += float64(placed[svc]-demanded[svc]) * in.SvcRevenue[cat] / float64(max1(demanded[svc]))
		}
	}
	return lost
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func poweredOnFNs(powerStates []bool) []int {
	var out []int
	for fn, on := range powerStates {
		if on {
			out = append(out, fn)
		}
	}
	return out
}

// sizeDemand runs the §4.8 step 1-2 per-service loop: observe a user
// count, derive λ_pred directly from it, collect λ_pred into the
// service's estimator, then read λ_real back out as the estimator's
// smoothed forecast — exactly the (initially counter-intuitive) naming
// spec.md §4.8 step 1 specifies: the value fed into the placement that
// actually runs is the raw per-interval observation, while the value
// used only to score the outcome is the estimator's own prediction.
// Both are then sized into minimum VM counts via the M/M/c core (C3)
// and collapsed to one row per service category.
func (d *Driver) sizeDemand() (predReq, realReq [][]int) {
	c := d.cfg.Scenario

	predPerSvc := make([][]int, d.numSvc)
	realPerSvc := make([][]int, d.numSvc)

	for svc := 0; svc < d.numSvc; svc++ {
		cat := c.SvcCat[svc]
		sc := c.SvcCategories[cat]

		nUsers := d.mobilitySrcs[svc].Next()
		lambdaPred := sc.ArrivalRate * float64(nUsers)
		if lambdaPred > sc.MaxArrivalRate {
			lambdaPred = sc.MaxArrivalRate
		}

		d.estimators[svc].Collect(lambdaPred)
		lambdaReal := d.estimators[svc].Estimate()
		if lambdaReal > sc.MaxArrivalRate {
			lambdaReal = sc.MaxArrivalRate
		}

		predPerSvc[svc] = sizeForRate(lambdaPred, sc)
		realPerSvc[svc] = sizeForRate(lambdaReal, sc)
	}

	return minVMsBySvcCat(c, predPerSvc), minVMsBySvcCat(c, realPerSvc)
}

// sizeForRate runs C3.min_num_vms for one service's arrival rate across
// every VM category it may be hosted on.
func sizeForRate(lambda float64, sc scenario.ServiceCategory) []int {
	reqs := make([]int, len(sc.ServiceRates))
	for vmCat, mu := range sc.ServiceRates {
		n, ok := queueing.MinNumVMs(lambda, mu, sc.MaxDelay, sc.DelayTolerance)
		if ok {
			reqs[vmCat] = n
		}
	}
	return reqs
}

// minVMsBySvcCat collapses the per-service-instance requirement rows
// down to one row per service category (taking the max across instances
// of the same category, since placement.Input indexes requirements by
// category, not by instance).
func minVMsBySvcCat(c *scenario.Config, perSvc [][]int) [][]int {
	out := make([][]int, c.NumSvcCategories)
	for i := range out {
		out[i] = make([]int, c.NumVMCategories)
	}
	for svc, reqs := range perSvc {
		cat := c.SvcCat[svc]
		for vmCat, n := range reqs {
			if n > out[cat][vmCat] {
				out[cat][vmCat] = n
			}
		}
	}
	return out
}

// buildInput assembles a placement.Input for the current slot given an
// already-sized per-(service-category, vm-category) minimum VM matrix.
func (d *Driver) buildInput(state *allocState, minVMs [][]int) placement.Input {
	c := d.cfg.Scenario

	fnCatMin := make([]float64, len(c.FNCategories))
	fnCatMax := make([]float64, len(c.FNCategories))
	asleep := make([]float64, len(c.FNCategories))
	awake := make([]float64, len(c.FNCategories))
	for i, fc := range c.FNCategories {
		fnCatMin[i] = fc.PowerMinW
		fnCatMax[i] = fc.PowerMaxW
		asleep[i] = fc.SwitchOffCost
		awake[i] = fc.SwitchOnCost
	}

	vmCatCPU := make([][]float64, c.NumVMCategories)
	allocCost := make([]float64, c.NumVMCategories)
	for i, vc := range c.VMCategories {
		vmCatCPU[i] = vc.CPURequirement
		allocCost[i] = vc.AllocationCost
	}

	svcRevenue := make([]float64, len(c.SvcCategories))
	svcPenalty := make([]float64, len(c.SvcCategories))
	for cat, sc := range c.SvcCategories {
		svcRevenue[cat] = sc.Revenue
		svcPenalty[cat] = sc.Penalty
	}
	svcCatIdx := make([]int, d.numSvc)
	for svc := 0; svc < d.numSvc; svc++ {
		svcCatIdx[svc] = c.SvcCat[svc]
	}

	return placement.Input{
		FNCategories:      c.FNCat,
		FNPowerStates:     state.powerStates,
		FNVMAllocations:   state.allocations,
		FNCatMinPowers:    fnCatMin,
		FNCatMaxPowers:    fnCatMax,
		VMCatFNCatCPU:     vmCatCPU,
		VMCatAllocCost:    allocCost,
		SvcCategories:     svcCatIdx,
		SvcCatVMCatMinVMs: minVMs,
		SvcRevenue:        svcRevenue,
		SvcPenalty:        svcPenalty,
		ElectricityCost:   c.ElectricityCost,
		FNCatAsleepCost:   asleep,
		FNCatAwakeCost:    awake,
		DeltaT:            c.VMAllocationInterval,
		TimeLimitSeconds:  d.cfg.OptimTimeLimitSeconds,
		RelTol:            d.cfg.OptimRelTol,
	}
}

// baseOracleInput assembles the Input the oracle anchors slot 0 on: the
// replication starts from the configured initial power state (all off),
// so this carries no FN-category-independent demand row (the oracle
// overwrites SvcCatVMCatMinVMs per slot from the recorded demand series).
func (d *Driver) baseOracleInput() placement.Input {
	return d.buildInput(newAllocState(d.numFN), nil)
}

// Oracle returns a multi-slot oracle.Solver wired to this driver's
// placement strategy, for callers that want to evaluate a full horizon
// at once instead of the slot-by-slot driver loop.
func (d *Driver) Oracle() *oracle.Solver {
	return oracle.NewSolver(d.solver)
}
