package estimator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMax(t *testing.T) {
	e, err := New(KindMax, nil, nil)
	require.NoError(t, err)

	e.Collect(3)
	e.Collect(7)
	e.Collect(2)
	assert.Equal(t, 7.0, e.Estimate())

	e.Reset()
	assert.Equal(t, 0.0, e.Estimate())
}

func TestMRO(t *testing.T) {
	e, err := New(KindMRO, nil, nil)
	require.NoError(t, err)

	e.Collect(3)
	e.Collect(7)
	assert.Equal(t, 7.0, e.Estimate())
}

func TestEWMA_ClosedForm(t *testing.T) {
	e, err := New(KindEWMA, nil, []float64{0.5})
	require.NoError(t, err)

	e.Collect(2) // first sample initializes
	assert.Equal(t, 2.0, e.Estimate())

	e.Collect(0)
	assert.InDelta(t, 0.5*0+0.5*2, e.Estimate(), 1e-12)

	e.Collect(2)
	assert.InDelta(t, 0.5*2+0.5*1, e.Estimate(), 1e-12)
}

func TestEWMA_Idempotence(t *testing.T) {
	e, err := New(KindEWMA, nil, []float64{0.5})
	require.NoError(t, err)

	const v = 4.2
	for i := 0; i < 50; i++ {
		e.Collect(v)
	}
	assert.InDelta(t, v, e.Estimate(), 1e-9)
}

func TestPerturbedMax_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e, err := New(KindPerturbMax, rng, []float64{0, 10}) // huge sigma to exercise the clamp
	require.NoError(t, err)
	e.Collect(5)

	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, e.Estimate(), 0.0)
	}
}

func TestUniformMinMax_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e, err := New(KindUniformMinMax, rng, nil)
	require.NoError(t, err)

	e.Collect(3)
	e.Collect(9)
	e.Collect(1)

	for i := 0; i < 1000; i++ {
		v := e.Estimate()
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 9.0)
	}
}

func TestBeta_IgnoresObservationsAndStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e, err := New(KindBeta, rng, []float64{2, 2, 5, 10})
	require.NoError(t, err)

	e.Collect(1000) // must have no effect

	for i := 0; i < 1000; i++ {
		v := e.Estimate()
		assert.GreaterOrEqual(t, v, 5.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(Kind("bogus"), nil, nil)
	assert.Error(t, err)
}

func TestUniformMax_ZeroMaxReturnsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e, err := New(KindUniformMax, rng, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.Estimate())
}

func TestPerturbedMRO_TracksMRO(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e, err := New(KindPerturbMRO, rng, []float64{0, 0}) // zero sigma => no perturbation
	require.NoError(t, err)
	e.Collect(8)
	assert.InDelta(t, 8.0, e.Estimate(), 1e-9)
}

func TestEWMA_DefaultAlpha(t *testing.T) {
	e, err := New(KindEWMA, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &EWMA{}, e)
	assert.Equal(t, DefaultEWMASmoothing, e.(*EWMA).alpha)
	assert.False(t, math.IsNaN(e.Estimate()))
}
