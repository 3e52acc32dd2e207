package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

func TestGeneratorSeededDeterminism(t *testing.T) {
	a := NewGenerator(DefaultPriors, 42).Generate(50)
	b := NewGenerator(DefaultPriors, 42).Generate(50)
	assert.Equal(t, a, b, "same seed must reproduce the same dataset")

	c := NewGenerator(DefaultPriors, 43).Generate(50)
	assert.NotEqual(t, a, c)
}

func TestGeneratorClassConditionalMeans(t *testing.T) {
	samples := NewGenerator(DefaultPriors, 7).Generate(500)

	sums := make(map[types.Material][3]float64)
	counts := make(map[types.Material]int)
	for _, s := range samples {
		agg := sums[s.Label]
		agg[0] += s.Piezo
		agg[1] += s.TDS
		agg[2] += s.Distance
		sums[s.Label] = agg
		counts[s.Label]++
	}

	for _, prior := range DefaultPriors {
		agg := sums[prior.Label]
		n := float64(counts[prior.Label])
		require.Equal(t, 500, counts[prior.Label])

		// Sampling tolerance: a few standard errors of the channel spread.
		assert.InDelta(t, prior.Piezo.Mean, agg[0]/n, 4*prior.Piezo.Stddev/20,
			"piezo mean for %s", prior.Label)
		assert.InDelta(t, prior.TDS.Mean, agg[1]/n, 4*prior.TDS.Stddev/20,
			"tds mean for %s", prior.Label)
		// Distance clamping at 0.1 biases tight-distance classes slightly
		// upward, so allow a wider margin there.
		assert.InDelta(t, prior.Distance.Mean, agg[2]/n, prior.Distance.Stddev,
			"distance mean for %s", prior.Label)
	}
}

func TestGeneratorClampsToMinimums(t *testing.T) {
	samples := NewGenerator(DefaultPriors, 99).Generate(300)
	for _, s := range samples {
		assert.GreaterOrEqual(t, s.Piezo, 0.0)
		assert.GreaterOrEqual(t, s.TDS, 0.0)
		assert.GreaterOrEqual(t, s.Distance, 0.1)
	}
}

func TestStratifiedSplit(t *testing.T) {
	// 3 classes, 10 samples each, trivially identifiable rows.
	var X [][]float64
	var y []int
	for class := 0; class < 3; class++ {
		for i := 0; i < 10; i++ {
			X = append(X, []float64{float64(class)})
			y = append(y, class)
		}
	}

	trainX, testX, trainY, testY, err := StratifiedSplit(X, y, 0.2, 3, 1)
	require.NoError(t, err)

	assert.Len(t, trainX, 24)
	assert.Len(t, testX, 6)

	countByClass := func(ys []int) map[int]int {
		out := make(map[int]int)
		for _, v := range ys {
			out[v]++
		}
		return out
	}
	trainCounts := countByClass(trainY)
	testCounts := countByClass(testY)
	for class := 0; class < 3; class++ {
		assert.Equal(t, 8, trainCounts[class], "train proportion preserved for class %d", class)
		assert.Equal(t, 2, testCounts[class], "test proportion preserved for class %d", class)
	}

	// Rows keep their labels.
	for i, row := range trainX {
		assert.Equal(t, float64(trainY[i]), row[0])
	}
	for i, row := range testX {
		assert.Equal(t, float64(testY[i]), row[0])
	}
}

func TestStratifiedSplitRejectsTinyClasses(t *testing.T) {
	X := [][]float64{{0}, {0}, {1}}
	y := []int{0, 0, 1} // class 1 has a single sample

	_, _, _, _, err := StratifiedSplit(X, y, 0.2, 2, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryTrainingData))
}

func TestStratifiedSplitSeededDeterminism(t *testing.T) {
	samples := NewGenerator(DefaultPriors, 3).Generate(20)
	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	idx := labelIndex(types.Materials)
	for i, s := range samples {
		X[i] = []float64{s.Piezo, s.TDS, s.Distance}
		y[i] = idx[s.Label]
	}

	a1, b1, c1, d1, err := StratifiedSplit(X, y, 0.2, len(types.Materials), 5)
	require.NoError(t, err)
	a2, b2, c2, d2, err := StratifiedSplit(X, y, 0.2, len(types.Materials), 5)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, d1, d2)
}
