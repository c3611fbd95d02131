package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeSalesColumn(t *testing.T) {
	d := Summarize([]float64{100, 200, 400})
	assert.Equal(t, 3, d.Count)
	assert.InDelta(t, 233.3333, float64(d.Mean), 1e-3)
	assert.Equal(t, Float(200), d.Median)
	assert.Equal(t, Float(100), d.Min)
	assert.Equal(t, Float(400), d.Max)
	// sample std of {100,200,400}
	assert.InDelta(t, 152.7525, float64(d.Std), 1e-3)
	assert.InDelta(t, 0.9352, float64(d.Skew), 1e-3)
}

func TestSummarizeUndefined(t *testing.T) {
	empty := Summarize(nil)
	assert.False(t, empty.Mean.Defined())
	assert.False(t, empty.Min.Defined())

	one := Summarize([]float64{5})
	assert.Equal(t, Float(5), one.Mean)
	assert.False(t, one.Std.Defined(), "std needs two values")
	assert.False(t, one.Skew.Defined())

	flat := Summarize([]float64{0.1, 0.1, 0.1, 0.1})
	assert.False(t, flat.Skew.Defined(), "skew of constant values")
	assert.InDelta(t, 0, float64(flat.Std), 1e-12)
}

func TestFloatEncoding(t *testing.T) {
	b, err := json.Marshal(map[string]Float{"a": 1.5, "b": NaN(), "c": Float(math.Inf(1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null,"c":null}`, string(b))
	assert.Equal(t, "N/A", NaN().String())
	assert.Equal(t, "2.50", Float(2.5).Format(2))

	var back struct{ V Float }
	require.NoError(t, json.Unmarshal([]byte(`{"V":null}`), &back))
	assert.False(t, back.V.Defined())
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1, Pearson(xs, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1, Pearson(xs, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Pearson(xs, []float64{3, 3, 3, 3, 3})), "zero variance")
	assert.True(t, math.IsNaN(Pearson([]float64{1, math.NaN()}, []float64{1, 2})), "one complete pair")

	// NaN positions are dropped pairwise
	r := Pearson([]float64{1, 2, math.NaN(), 4}, []float64{1, 2, 100, 4})
	assert.InDelta(t, 1, r, 1e-12)
}

func TestLargeOffsetsKeepPrecision(t *testing.T) {
	epoch := []float64{1704067200, 1704067260, 1704067320, 1704067500}
	x := []float64{1, 2, 3, 5}
	assert.InDelta(t, 1, Pearson(epoch, epoch), 1e-12)
	assert.InDelta(t, 0.99386, Pearson(epoch, x), 1e-5)

	shifted := make([]float64, len(x))
	for i, v := range []float64{100, 200, 400, 150} {
		shifted[i] = 1e9 + v
	}
	assert.InDelta(t, Pearson([]float64{100, 200, 400, 150}, x), Pearson(shifted, x), 1e-9)

	d := Summarize([]float64{1e9 + 100, 1e9 + 200, 1e9 + 400})
	assert.InDelta(t, 152.7525, float64(d.Std), 1e-3)
	require.True(t, d.Skew.Defined(), "skew survives a large offset")
	assert.InDelta(t, 0.9352, float64(d.Skew), 1e-3)
}

func TestQuantileAndPercent(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 1.0, Quantile([]float64{1, 2, 3}, 0))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.Equal(t, 100.0, Percent(0, 0))
	assert.Equal(t, 25.0, Percent(1, 4))
}
