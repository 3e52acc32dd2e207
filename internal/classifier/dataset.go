package classifier

import (
	"fmt"
	"math/rand"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/features"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

// Sample is one labeled training row of raw sensor values.
type Sample struct {
	Piezo    float64
	TDS      float64
	Distance float64
	Label    types.Material
}

// NormalParam is a (mean, stddev) pair for one sensor channel.
type NormalParam struct {
	Mean   float64
	Stddev float64
}

// ClassPrior holds the class-conditional generator parameters for one
// material.
type ClassPrior struct {
	Label    types.Material
	Piezo    NormalParam
	TDS      NormalParam
	Distance NormalParam
}

// DefaultPriors is the synthetic-data parameter table. These are domain
// assumptions carried over from field calibration notes, not learned
// values; treat them as a swappable placeholder prior.
var DefaultPriors = []ClassPrior{
	{types.MaterialMetal, NormalParam{3800, 400}, NormalParam{750, 150}, NormalParam{2.5, 0.8}},
	{types.MaterialPlastic, NormalParam{500, 150}, NormalParam{250, 80}, NormalParam{5, 2}},
	{types.MaterialLiquid, NormalParam{1800, 600}, NormalParam{1900, 300}, NormalParam{10, 4}},
	{types.MaterialWood, NormalParam{1400, 300}, NormalParam{180, 60}, NormalParam{8, 3}},
	{types.MaterialCeramic, NormalParam{2800, 400}, NormalParam{600, 150}, NormalParam{4, 1.5}},
	{types.MaterialGlass, NormalParam{1600, 350}, NormalParam{200, 70}, NormalParam{6, 2.5}},
	{types.MaterialSoil, NormalParam{1200, 300}, NormalParam{1000, 250}, NormalParam{3.5, 1.2}},
	{types.MaterialSand, NormalParam{600, 200}, NormalParam{1100, 200}, NormalParam{4, 1.5}},
	{types.MaterialCoral, NormalParam{2500, 500}, NormalParam{700, 200}, NormalParam{6, 2}},
	{types.MaterialAlgae, NormalParam{1000, 250}, NormalParam{300, 100}, NormalParam{7, 2.5}},
	{types.MaterialShell, NormalParam{1800, 400}, NormalParam{250, 80}, NormalParam{4, 1.5}},
	{types.MaterialSedimentaryRock, NormalParam{1400, 350}, NormalParam{900, 250}, NormalParam{5, 2}},
}

// Jitter applied on top of the class-conditional draw, per channel.
var jitter = [3]float64{50, 30, 0.2}

// Generator produces labeled synthetic samples from a prior table.
type Generator struct {
	priors []ClassPrior
	rng    *rand.Rand
}

// NewGenerator seeds a generator over the given priors. The same seed
// reproduces the same dataset.
func NewGenerator(priors []ClassPrior, seed int64) *Generator {
	return &Generator{priors: priors, rng: rand.New(rand.NewSource(seed))}
}

// Generate draws perClass samples for every material in the prior table,
// applies channel jitter and floors values to the same minimums the feature
// synthesizer clamps to.
func (g *Generator) Generate(perClass int) []Sample {
	samples := make([]Sample, 0, perClass*len(g.priors))
	for _, prior := range g.priors {
		for i := 0; i < perClass; i++ {
			piezo := g.rng.NormFloat64()*prior.Piezo.Stddev + prior.Piezo.Mean
			tds := g.rng.NormFloat64()*prior.TDS.Stddev + prior.TDS.Mean
			distance := g.rng.NormFloat64()*prior.Distance.Stddev + prior.Distance.Mean

			piezo += g.rng.NormFloat64() * jitter[0]
			tds += g.rng.NormFloat64() * jitter[1]
			distance += g.rng.NormFloat64() * jitter[2]

			piezo, tds, distance = features.Clamp(piezo, tds, distance)

			samples = append(samples, Sample{
				Piezo:    piezo,
				TDS:      tds,
				Distance: distance,
				Label:    prior.Label,
			})
		}
	}
	return samples
}

// labelIndex maps materials to their canonical position.
func labelIndex(labels []types.Material) map[types.Material]int {
	idx := make(map[types.Material]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}

// StratifiedSplit partitions rows into train/test preserving per-class
// proportions. Fails when any class has fewer than two samples, since a
// stratified split is then impossible.
func StratifiedSplit(X [][]float64, y []int, testFraction float64, numClasses int, seed int64) (trainX, testX [][]float64, trainY, testY []int, err error) {
	byClass := make([][]int, numClasses)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	for label, members := range byClass {
		if len(members) < 2 {
			return nil, nil, nil, nil, apperrors.NewTrainingDataError(
				fmt.Sprintf("class %d has %d samples, need at least 2 for a stratified split", label, len(members)))
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, members := range byClass {
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})

		nTest := int(float64(len(members)) * testFraction)
		if nTest < 1 {
			nTest = 1
		}
		if nTest >= len(members) {
			nTest = len(members) - 1
		}

		for k, idx := range members {
			if k < nTest {
				testX = append(testX, X[idx])
				testY = append(testY, y[idx])
			} else {
				trainX = append(trainX, X[idx])
				trainY = append(trainY, y[idx])
			}
		}
	}

	return trainX, testX, trainY, testY, nil
}
