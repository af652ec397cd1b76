package scenario

import (
	"fmt"
	"strings"
)

// buildConfig assembles a Config from the raw key/value table produced by
// parseKeyValues, applying the scenario key table and reporting the first
// missing-mandatory-key or type-mismatch error as a ConfigError.
func buildConfig(raw map[string]rawEntry) (*Config, error) {
	c := &Config{}

	var err error
	if c.NumFNCategories, err = reqInt(raw, "num_fn_categories"); err != nil {
		return nil, err
	}
	if c.NumSvcCategories, err = reqInt(raw, "num_svc_categories"); err != nil {
		return nil, err
	}
	if c.NumVMCategories, err = reqInt(raw, "num_vm_categories"); err != nil {
		return nil, err
	}

	if err := buildSvcCategories(raw, c); err != nil {
		return nil, err
	}
	if err := buildFNCategories(raw, c); err != nil {
		return nil, err
	}
	if err := buildVMCategories(raw, c); err != nil {
		return nil, err
	}

	if c.NumSvcsPerCategory, err = reqInts(raw, "fp.num_svcs"); err != nil {
		return nil, err
	}
	if c.NumFNsPerCategory, err = reqInts(raw, "fp.num_fns"); err != nil {
		return nil, err
	}
	c.SvcCat = expandCategories(c.NumSvcsPerCategory)
	c.FNCat = expandCategories(c.NumFNsPerCategory)

	if c.ElectricityCost, err = reqFloatList1(raw, "fp.electricity_costs"); err != nil {
		return nil, err
	}

	if c.VMAllocationInterval, err = reqFloat(raw, "fp.vm_allocation_interval"); err != nil {
		return nil, err
	}

	policy, err := optString(raw, "fp.vm_allocation_policy", string(PolicyOptimal))
	if err != nil {
		return nil, err
	}
	c.VMAllocationPolicy = AllocationPolicy(strings.ToLower(policy))

	mode, err := optString(raw, "fp.real_workload_mode", string(AllocateAll))
	if err != nil {
		return nil, err
	}
	c.RealWorkloadMode = RealWorkloadMode(strings.ToLower(mode))

	if err := c.Validate(); err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}
	return c, nil
}

func buildSvcCategories(raw map[string]rawEntry, c *Config) error {
	arrival, err := reqFloats(raw, "svc.arrival_rates")
	if err != nil {
		return err
	}
	maxArrival, err := reqFloats(raw, "svc.max_arrival_rates")
	if err != nil {
		return err
	}
	maxDelay, err := reqFloats(raw, "svc.max_delays")
	if err != nil {
		return err
	}
	revenues, err := reqFloats(raw, "fp.svc_revenues")
	if err != nil {
		return err
	}
	penalties, err := reqFloats(raw, "fp.svc_penalties")
	if err != nil {
		return err
	}
	rates, err := reqFloatMatrix(raw, "svc.vm_service_rates")
	if err != nil {
		return err
	}
	estKinds, err := optStrings(raw, "svc.arrival_rate_estimation", c.NumSvcCategories, "max")
	if err != nil {
		return err
	}
	estParams, err := optFloatMatrix(raw, "svc.arrival_rate_estimation_params", c.NumSvcCategories)
	if err != nil {
		return err
	}
	tolerances, err := optFloats(raw, "svc.delay_tolerance", c.NumSvcCategories, 0)
	if err != nil {
		return err
	}
	mobKinds, err := optStrings(raw, "svc.user_mobility_model", c.NumSvcCategories, "fixed")
	if err != nil {
		return err
	}

	if err := checkLen("svc.arrival_rates", len(arrival), c.NumSvcCategories); err != nil {
		return err
	}
	if err := checkLen("svc.max_arrival_rates", len(maxArrival), c.NumSvcCategories); err != nil {
		return err
	}
	if err := checkLen("svc.max_delays", len(maxDelay), c.NumSvcCategories); err != nil {
		return err
	}
	if err := checkLen("fp.svc_revenues", len(revenues), c.NumSvcCategories); err != nil {
		return err
	}
	if err := checkLen("fp.svc_penalties", len(penalties), c.NumSvcCategories); err != nil {
		return err
	}
	if err := checkLen("svc.vm_service_rates", len(rates), c.NumSvcCategories); err != nil {
		return err
	}

	c.SvcCategories = make([]ServiceCategory, c.NumSvcCategories)
	for i := range c.SvcCategories {
		c.SvcCategories[i] = ServiceCategory{
			ArrivalRate:     arrival[i],
			MaxArrivalRate:  maxArrival[i],
			MaxDelay:        maxDelay[i],
			Revenue:         revenues[i],
			Penalty:         penalties[i],
			ServiceRates:    rates[i],
			EstimatorKind:   estKinds[i],
			EstimatorParams: estParams[i],
			DelayTolerance:  tolerances[i],
			MobilityKind:    mobKinds[i],
			MobilityParams:  map[string]float64{},
		}
	}

	if rawMob, ok := raw["svc.user_mobility_model_params"]; ok {
		rows, err := rawMob.val.asFloatMatrix()
		if err != nil {
			return &ConfigError{Line: rawMob.line, Msg: "svc.user_mobility_model_params: " + err.Error()}
		}
		if err := checkLen("svc.user_mobility_model_params", len(rows), c.NumSvcCategories); err != nil {
			return err
		}
		for i, row := range rows {
			c.SvcCategories[i].MobilityParams = mobilityParamNames(c.SvcCategories[i].MobilityKind, row)
		}
	}
	return nil
}

// mobilityParamKeys lists, in scenario-file column order, the named
// parameter keys mobility.New expects for each mobility kind.
var mobilityParamKeys = map[string][]string{
	"fixed":           {"n"},
	"step":            {},
	"random-waypoint": {"nr_nodes", "max_x", "max_y", "min_v", "max_v", "max_wt", "seed"},
}

// mobilityParamNames maps a scenario row's positional floats onto the
// named keys mobility.New expects for kind. Extra columns beyond the
// known keys are kept under their positional index so unrecognized
// mobility kinds don't silently lose data.
func mobilityParamNames(kind string, row []float64) map[string]float64 {
	keys := mobilityParamKeys[kind]
	params := make(map[string]float64, len(row))
	for j, v := range row {
		if j < len(keys) {
			params[keys[j]] = v
		} else {
			params[fmt.Sprintf("p%d", j)] = v
		}
	}
	return params
}

func buildFNCategories(raw map[string]rawEntry, c *Config) error {
	minP, err := reqFloats(raw, "fn.min_powers")
	if err != nil {
		return err
	}
	maxP, err := reqFloats(raw, "fn.max_powers")
	if err != nil {
		return err
	}
	onCost, err := optFloats(raw, "fp.fn_awake_costs", c.NumFNCategories, 0)
	if err != nil {
		return err
	}
	offCost, err := optFloats(raw, "fp.fn_asleep_costs", c.NumFNCategories, 0)
	if err != nil {
		return err
	}
	if err := checkLen("fn.min_powers", len(minP), c.NumFNCategories); err != nil {
		return err
	}
	if err := checkLen("fn.max_powers", len(maxP), c.NumFNCategories); err != nil {
		return err
	}
	c.FNCategories = make([]FNCategory, c.NumFNCategories)
	for i := range c.FNCategories {
		c.FNCategories[i] = FNCategory{
			PowerMinW:     minP[i],
			PowerMaxW:     maxP[i],
			SwitchOnCost:  onCost[i],
			SwitchOffCost: offCost[i],
		}
	}
	return nil
}

func buildVMCategories(raw map[string]rawEntry, c *Config) error {
	cpu, err := reqFloatMatrix(raw, "vm.cpu_requirements")
	if err != nil {
		return err
	}
	ram, err := optFloatMatrix(raw, "vm.ram_requirements", c.NumVMCategories)
	if err != nil {
		return err
	}
	cost, err := reqFloats(raw, "vm.allocation_costs")
	if err != nil {
		return err
	}
	if err := checkLen("vm.cpu_requirements", len(cpu), c.NumVMCategories); err != nil {
		return err
	}
	if err := checkLen("vm.allocation_costs", len(cost), c.NumVMCategories); err != nil {
		return err
	}
	c.VMCategories = make([]VMCategory, c.NumVMCategories)
	for i := range c.VMCategories {
		c.VMCategories[i] = VMCategory{
			CPURequirement: cpu[i],
			RAMRequirement: ram[i],
			AllocationCost: cost[i],
		}
	}
	return nil
}

func expandCategories(counts []int) []int {
	var out []int
	for cat, n := range counts {
		for k := 0; k < n; k++ {
			out = append(out, cat)
		}
	}
	return out
}

// --- lookup helpers, each reporting a ConfigError on missing/malformed keys ---

func reqInt(raw map[string]rawEntry, key string) (int, error) {
	e, ok := raw[key]
	if !ok {
		return 0, &ConfigError{Msg: fmt.Sprintf("missing mandatory key %q", key)}
	}
	v, err := e.val.asInt()
	if err != nil {
		return 0, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func reqFloat(raw map[string]rawEntry, key string) (float64, error) {
	e, ok := raw[key]
	if !ok {
		return 0, &ConfigError{Msg: fmt.Sprintf("missing mandatory key %q", key)}
	}
	v, err := e.val.asFloat()
	if err != nil {
		return 0, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func reqFloatList1(raw map[string]rawEntry, key string) (float64, error) {
	vs, err := reqFloats(raw, key)
	if err != nil {
		return 0, err
	}
	if len(vs) == 0 {
		return 0, &ConfigError{Msg: fmt.Sprintf("%s: expected at least one value", key)}
	}
	return vs[0], nil
}

func reqFloats(raw map[string]rawEntry, key string) ([]float64, error) {
	e, ok := raw[key]
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("missing mandatory key %q", key)}
	}
	v, err := e.val.asFloats()
	if err != nil {
		return nil, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func reqInts(raw map[string]rawEntry, key string) ([]int, error) {
	e, ok := raw[key]
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("missing mandatory key %q", key)}
	}
	v, err := e.val.asInts()
	if err != nil {
		return nil, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func reqFloatMatrix(raw map[string]rawEntry, key string) ([][]float64, error) {
	e, ok := raw[key]
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("missing mandatory key %q", key)}
	}
	v, err := e.val.asFloatMatrix()
	if err != nil {
		return nil, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func optFloatMatrix(raw map[string]rawEntry, key string, n int) ([][]float64, error) {
	e, ok := raw[key]
	if !ok {
		out := make([][]float64, n)
		return out, nil
	}
	v, err := e.val.asFloatMatrix()
	if err != nil {
		return nil, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func optFloats(raw map[string]rawEntry, key string, n int, def float64) ([]float64, error) {
	e, ok := raw[key]
	if !ok {
		out := make([]float64, n)
		for i := range out {
			out[i] = def
		}
		return out, nil
	}
	v, err := e.val.asFloats()
	if err != nil {
		return nil, &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: %v", key, err)}
	}
	return v, nil
}

func optStrings(raw map[string]rawEntry, key string, n int, def string) ([]string, error) {
	e, ok := raw[key]
	if !ok {
		out := make([]string, n)
		for i := range out {
			out[i] = def
		}
		return out, nil
	}
	if !e.val.isList() {
		out := make([]string, n)
		for i := range out {
			out[i] = strings.ToLower(e.val.asString())
		}
		return out, nil
	}
	out := make([]string, len(e.val.list))
	for i, item := range e.val.list {
		out[i] = strings.ToLower(item.asString())
	}
	return out, nil
}

func optString(raw map[string]rawEntry, key, def string) (string, error) {
	e, ok := raw[key]
	if !ok {
		return def, nil
	}
	if e.val.isList() {
		return "", &ConfigError{Line: e.line, Msg: fmt.Sprintf("%s: expected scalar", key)}
	}
	return e.val.asString(), nil
}

func checkLen(key string, got, want int) error {
	if got != want {
		return &ConfigError{Msg: fmt.Sprintf("%s: expected %d entries, got %d", key, want, got)}
	}
	return nil
}
