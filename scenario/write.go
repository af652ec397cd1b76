package scenario

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteTo serializes c back to the line-oriented textual form Load reads,
// so that Load(Write(c)) reproduces an equivalent Config. Formatting
// choices (key order, float precision) are this package's own, not a
// requirement of the format itself. MobilityCounts is not written; the
// parser never fills it either.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder

	writeInt(&b, "num_fn_categories", c.NumFNCategories)
	writeInt(&b, "num_svc_categories", c.NumSvcCategories)
	writeInt(&b, "num_vm_categories", c.NumVMCategories)

	writeFloats(&b, "svc.arrival_rates", mapSvc(c.SvcCategories, func(s ServiceCategory) float64 { return s.ArrivalRate }))
	writeFloats(&b, "svc.max_arrival_rates", mapSvc(c.SvcCategories, func(s ServiceCategory) float64 { return s.MaxArrivalRate }))
	writeFloats(&b, "svc.max_delays", mapSvc(c.SvcCategories, func(s ServiceCategory) float64 { return s.MaxDelay }))
	writeFloatMatrix(&b, "svc.vm_service_rates", mapSvcRates(c.SvcCategories))
	writeStrings(&b, "svc.arrival_rate_estimation", mapSvcStr(c.SvcCategories, func(s ServiceCategory) string { return s.EstimatorKind }))
	writeFloatMatrix(&b, "svc.arrival_rate_estimation_params", mapSvcParams(c.SvcCategories))
	writeFloats(&b, "svc.delay_tolerance", mapSvc(c.SvcCategories, func(s ServiceCategory) float64 { return s.DelayTolerance }))
	writeStrings(&b, "svc.user_mobility_model", mapSvcStr(c.SvcCategories, func(s ServiceCategory) string { return s.MobilityKind }))
	mobRows := make([][]float64, len(c.SvcCategories))
	for i, s := range c.SvcCategories {
		mobRows[i] = []float64{}
		for j := 0; ; j++ {
			key := fmt.Sprintf("p%d", j)
			if keys := mobilityParamKeys[s.MobilityKind]; j < len(keys) {
				key = keys[j]
			}
			v, ok := s.MobilityParams[key]
			if !ok {
				break
			}
			mobRows[i] = append(mobRows[i], v)
		}
	}
	writeFloatMatrix(&b, "svc.user_mobility_model_params", mobRows)

	writeFloats(&b, "fn.min_powers", mapFN(c.FNCategories, func(f FNCategory) float64 { return f.PowerMinW }))
	writeFloats(&b, "fn.max_powers", mapFN(c.FNCategories, func(f FNCategory) float64 { return f.PowerMaxW }))
	writeFloats(&b, "fp.fn_awake_costs", mapFN(c.FNCategories, func(f FNCategory) float64 { return f.SwitchOnCost }))
	writeFloats(&b, "fp.fn_asleep_costs", mapFN(c.FNCategories, func(f FNCategory) float64 { return f.SwitchOffCost }))

	writeFloatMatrix(&b, "vm.cpu_requirements", mapVM(c.VMCategories, func(v VMCategory) []float64 { return v.CPURequirement }))
	writeFloatMatrix(&b, "vm.ram_requirements", mapVM(c.VMCategories, func(v VMCategory) []float64 { return v.RAMRequirement }))
	writeFloats(&b, "vm.allocation_costs", mapVM1(c.VMCategories, func(v VMCategory) float64 { return v.AllocationCost }))

	writeFloats(&b, "fp.svc_revenues", mapSvc(c.SvcCategories, func(s ServiceCategory) float64 { return s.Revenue }))
	writeFloats(&b, "fp.svc_penalties", mapSvc(c.SvcCategories, func(s ServiceCategory) float64 { return s.Penalty }))

	writeInts(&b, "fp.num_svcs", c.NumSvcsPerCategory)
	writeInts(&b, "fp.num_fns", c.NumFNsPerCategory)

	writeFloats(&b, "fp.electricity_costs", []float64{c.ElectricityCost})
	writeFloat(&b, "fp.vm_allocation_interval", c.VMAllocationInterval)
	fmt.Fprintf(&b, "fp.vm_allocation_policy %s\n", string(c.VMAllocationPolicy))
	fmt.Fprintf(&b, "fp.real_workload_mode %s\n", string(c.RealWorkloadMode))

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func writeInt(b *strings.Builder, key string, v int) {
	fmt.Fprintf(b, "%s %d\n", key, v)
}

func writeFloat(b *strings.Builder, key string, v float64) {
	fmt.Fprintf(b, "%s %s\n", key, formatFloat(v))
}

func writeInts(b *strings.Builder, key string, vs []int) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	fmt.Fprintf(b, "%s [ %s ]\n", key, strings.Join(parts, " "))
}

func writeFloats(b *strings.Builder, key string, vs []float64) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	fmt.Fprintf(b, "%s [ %s ]\n", key, strings.Join(parts, " "))
}

func writeStrings(b *strings.Builder, key string, vs []string) {
	fmt.Fprintf(b, "%s [ %s ]\n", key, strings.Join(vs, " "))
}

func writeFloatMatrix(b *strings.Builder, key string, rows [][]float64) {
	parts := make([]string, len(rows))
	for i, row := range rows {
		cols := make([]string, len(row))
		for j, v := range row {
			cols[j] = formatFloat(v)
		}
		parts[i] = "[ " + strings.Join(cols, " ") + " ]"
	}
	fmt.Fprintf(b, "%s [ %s ]\n", key, strings.Join(parts, " "))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func mapSvc(s []ServiceCategory, f func(ServiceCategory) float64) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = f(c)
	}
	return out
}

func mapSvcStr(s []ServiceCategory, f func(ServiceCategory) string) []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = f(c)
	}
	return out
}

func mapSvcRates(s []ServiceCategory) [][]float64 {
	out := make([][]float64, len(s))
	for i, c := range s {
		out[i] = c.ServiceRates
	}
	return out
}

func mapSvcParams(s []ServiceCategory) [][]float64 {
	out := make([][]float64, len(s))
	for i, c := range s {
		out[i] = c.EstimatorParams
	}
	return out
}

func mapFN(s []FNCategory, f func(FNCategory) float64) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = f(c)
	}
	return out
}

func mapVM(s []VMCategory, f func(VMCategory) []float64) [][]float64 {
	out := make([][]float64, len(s))
	for i, c := range s {
		out[i] = f(c)
	}
	return out
}

func mapVM1(s []VMCategory, f func(VMCategory) float64) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = f(c)
	}
	return out
}
