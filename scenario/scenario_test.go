package scenario

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScenario = `
# a minimal single-category scenario
num_fn_categories 1
num_svc_categories 1
num_vm_categories 1

svc.arrival_rates [ 2.0 ]
svc.max_arrival_rates [ 10.0 ]
svc.max_delays [ 1.0 ]
svc.vm_service_rates [ [ 2.0 ] ]
svc.arrival_rate_estimation [ max ]
svc.arrival_rate_estimation_params [ [ ] ]
svc.delay_tolerance [ 0.1 ]
svc.user_mobility_model [ fixed ]

fn.min_powers [ 50.0 ]
fn.max_powers [ 150.0 ]
fp.fn_awake_costs [ 1.0 ]
fp.fn_asleep_costs [ 0.5 ]

vm.cpu_requirements [ [ 0.25 ] ]
vm.ram_requirements [ [ 1.0 ] ]
vm.allocation_costs [ 3.0 ]

fp.svc_revenues [ 5.0 ]
fp.svc_penalties [ 2.0 ]

fp.num_svcs [ 4 ]
fp.num_fns [ 3 ]

fp.electricity_costs [ 0.12 ]
fp.vm_allocation_interval 3600
fp.vm_allocation_policy optimal
fp.real_workload_mode allocate_all
`

func TestParse_MinimalScenario(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleScenario))
	require.NoError(t, err)

	assert.Equal(t, 1, c.NumFNCategories)
	assert.Equal(t, 1, c.NumSvcCategories)
	assert.Equal(t, 1, c.NumVMCategories)
	assert.Equal(t, 2.0, c.SvcCategories[0].ArrivalRate)
	assert.Equal(t, []float64{2.0}, c.SvcCategories[0].ServiceRates)
	assert.Equal(t, "max", c.SvcCategories[0].EstimatorKind)
	assert.Equal(t, []float64{0.25}, c.VMCategories[0].CPURequirement)
	assert.Equal(t, 3, c.NumFNs())
	assert.Equal(t, 4, c.NumSvcs())
	assert.Equal(t, PolicyOptimal, c.VMAllocationPolicy)
	assert.Equal(t, AllocateAll, c.RealWorkloadMode)
	assert.NoError(t, c.Validate())
}

func TestParse_MissingMandatoryKeyIsConfigError(t *testing.T) {
	_, err := Parse(strings.NewReader("num_fn_categories 1\n"))
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestParse_MalformedLineIsConfigError(t *testing.T) {
	_, err := Parse(strings.NewReader("  \n"))
	require.NoError(t, err) // blank lines are skipped, not malformed

	_, err = Parse(strings.NewReader("num_fn_categories [ 1\n"))
	require.Error(t, err)
}

func TestRoundTrip_WriteThenParseReproducesEquivalentConfig(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleScenario))
	require.NoError(t, err)

	var buf strings.Builder
	_, err = c.WriteTo(&buf)
	require.NoError(t, err)

	c2, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)

	assert.Equal(t, c.NumFNCategories, c2.NumFNCategories)
	assert.Equal(t, c.NumSvcCategories, c2.NumSvcCategories)
	assert.Equal(t, c.NumVMCategories, c2.NumVMCategories)
	assert.Equal(t, c.SvcCategories, c2.SvcCategories)
	assert.Equal(t, c.FNCategories, c2.FNCategories)
	assert.Equal(t, c.VMCategories, c2.VMCategories)
	assert.Equal(t, c.NumFNsPerCategory, c2.NumFNsPerCategory)
	assert.Equal(t, c.NumSvcsPerCategory, c2.NumSvcsPerCategory)
	assert.Equal(t, c.ElectricityCost, c2.ElectricityCost)
	assert.Equal(t, c.VMAllocationInterval, c2.VMAllocationInterval)
	assert.Equal(t, c.VMAllocationPolicy, c2.VMAllocationPolicy)
	assert.Equal(t, c.RealWorkloadMode, c2.RealWorkloadMode)
}

func TestConfig_ValidateCatchesOutOfRangeCategory(t *testing.T) {
	c := &Config{
		NumFNCategories:  1,
		NumSvcCategories: 1,
		NumVMCategories:  1,
		FNCategories:     []FNCategory{{}},
		SvcCategories:    []ServiceCategory{{}},
		VMCategories:     []VMCategory{{}},
		FNCat:            []int{0, 1}, // 1 is out of range
		VMAllocationInterval: 1,
	}
	assert.Error(t, c.Validate())
}
