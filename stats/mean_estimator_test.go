package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanEstimator_PanicsOnBadConstruction(t *testing.T) {
	assert.Panics(t, func() { NewMeanEstimator("x", 0.95, 0.04, 1, 10) })
	assert.Panics(t, func() { NewMeanEstimator("x", 0.95, 0.04, 10, 5) })
}

func TestMeanEstimator_HalfWidthMatchesStudentT(t *testing.T) {
	e := NewDefaultMeanEstimator("profit")
	samples := []float64{10, 12, 9, 11, 10.5, 11.5, 9.5, 10.2}
	for _, s := range samples {
		e.Collect(s)
	}

	require.GreaterOrEqual(t, e.Size(), DefaultMinSampleSize)
	t_ := studentsTQuantile(e.Size()-1, (1+DefaultCILevel)/2)
	want := t_ * e.StdDev() / math.Sqrt(float64(e.Size()))
	assert.InDelta(t, want, e.HalfWidth(), 1e-9)
}

func TestMeanEstimator_DoneEventuallyForLowVarianceStream(t *testing.T) {
	e := NewMeanEstimator("profit", 0.95, 0.2, 2, 1000)
	for i := 0; i < 1000 && !e.Done() && !e.Unstable(); i++ {
		e.Collect(100 + float64(i%2)*0.01) // nearly constant, tight precision easy to reach
	}
	assert.True(t, e.Done())
}

func TestMeanEstimator_ResetClearsState(t *testing.T) {
	e := NewDefaultMeanEstimator("x")
	e.Collect(1)
	e.Collect(2)
	e.Reset()
	assert.Equal(t, 0, e.Size())
	assert.Equal(t, 0.0, e.Mean())
	assert.False(t, e.Done())
}
