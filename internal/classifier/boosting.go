package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// RegressionNode is one node of a residual-fitting tree inside the boosted
// stage. Leaves carry the additive update value.
type RegressionNode struct {
	Feature   int             `json:"feature"`
	Threshold float64         `json:"threshold"`
	Left      *RegressionNode `json:"left,omitempty"`
	Right     *RegressionNode `json:"right,omitempty"`
	Value     float64         `json:"value"`
}

func (n *RegressionNode) isLeaf() bool { return n.Left == nil && n.Right == nil }

func (n *RegressionNode) predict(x []float64) float64 {
	for !n.isLeaf() {
		if x[n.Feature] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// GradientBoosting is a multiclass boosted-tree classifier: each stage fits
// one shallow regression tree per class to the softmax residuals and adds
// it with shrinkage.
type GradientBoosting struct {
	Stages       [][]*RegressionNode `json:"stages"` // [stage][class]
	NumStages    int                 `json:"num_stages"`
	LearningRate float64             `json:"learning_rate"`
	MaxDepth     int                 `json:"max_depth"`
	MinLeaf      int                 `json:"min_leaf"`
	Seed         int64               `json:"seed"`
	NumClasses   int                 `json:"num_classes"`
	BasePriors   []float64           `json:"base_priors"` // initial log-odds per class
}

// NewGradientBoosting configures a boosted ensemble; Fit does the work.
func NewGradientBoosting(numStages int, learningRate float64, seed int64) *GradientBoosting {
	return &GradientBoosting{
		NumStages:    numStages,
		LearningRate: learningRate,
		MaxDepth:     3,
		MinLeaf:      5,
		Seed:         seed,
	}
}

func softmaxInto(scores, probs []float64) {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	sum := 0.0
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
}

// Fit grows NumStages rounds of per-class residual trees.
func (gb *GradientBoosting) Fit(X [][]float64, y []int, numClasses int) error {
	gb.NumClasses = numClasses
	n := len(X)
	rng := rand.New(rand.NewSource(gb.Seed))

	// Start from the class log-priors so early stages correct a sensible
	// baseline instead of a uniform one.
	counts := make([]float64, numClasses)
	for _, label := range y {
		counts[label]++
	}
	gb.BasePriors = make([]float64, numClasses)
	for k := range counts {
		p := (counts[k] + 1) / (float64(n) + float64(numClasses))
		gb.BasePriors[k] = math.Log(p)
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, numClasses)
		copy(scores[i], gb.BasePriors)
	}

	probs := make([]float64, numClasses)
	residuals := make([]float64, n)
	allIdx := make([]int, n)
	for i := range allIdx {
		allIdx[i] = i
	}

	gb.Stages = make([][]*RegressionNode, gb.NumStages)
	for stage := 0; stage < gb.NumStages; stage++ {
		round := make([]*RegressionNode, numClasses)
		for k := 0; k < numClasses; k++ {
			for i := range X {
				softmaxInto(scores[i], probs)
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				residuals[i] = target - probs[k]
			}

			tree := gb.buildRegressionTree(X, residuals, allIdx, 0, rng)
			round[k] = tree
			for i := range X {
				scores[i][k] += gb.LearningRate * tree.predict(X[i])
			}
		}
		gb.Stages[stage] = round
	}

	return nil
}

// leafValue uses the Friedman multiclass approximation so each leaf takes a
// near-Newton step instead of a raw mean residual.
func (gb *GradientBoosting) leafValue(residuals []float64, indices []int) float64 {
	num, den := 0.0, 0.0
	for _, i := range indices {
		r := residuals[i]
		num += r
		den += math.Abs(r) * (1 - math.Abs(r))
	}
	if den < 1e-10 {
		return 0
	}
	k := float64(gb.NumClasses)
	return (k - 1) / k * num / den
}

func (gb *GradientBoosting) buildRegressionTree(X [][]float64, residuals []float64, indices []int, depth int, rng *rand.Rand) *RegressionNode {
	if depth >= gb.MaxDepth || len(indices) < 2*gb.MinLeaf {
		return &RegressionNode{Value: gb.leafValue(residuals, indices)}
	}

	feature, threshold, ok := bestVarianceSplit(X, residuals, indices, gb.MinLeaf)
	if !ok {
		return &RegressionNode{Value: gb.leafValue(residuals, indices)}
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if X[i][feature] < threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return &RegressionNode{Value: gb.leafValue(residuals, indices)}
	}

	return &RegressionNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      gb.buildRegressionTree(X, residuals, leftIdx, depth+1, rng),
		Right:     gb.buildRegressionTree(X, residuals, rightIdx, depth+1, rng),
	}
}

// bestVarianceSplit minimizes the summed squared residual error of the two
// children via a single sorted scan per feature.
func bestVarianceSplit(X [][]float64, residuals []float64, indices []int, minLeaf int) (feature int, threshold float64, ok bool) {
	n := len(indices)
	dims := len(X[0])

	totalSum, totalSq := 0.0, 0.0
	for _, i := range indices {
		totalSum += residuals[i]
		totalSq += residuals[i] * residuals[i]
	}
	bestErr := totalSq - totalSum*totalSum/float64(n)

	sorted := make([]int, n)
	for j := 0; j < dims; j++ {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][j] < X[sorted[b]][j] })

		leftSum, leftSq := 0.0, 0.0
		for i := 0; i < n-1; i++ {
			r := residuals[sorted[i]]
			leftSum += r
			leftSq += r * r

			nl := i + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			v, next := X[sorted[i]][j], X[sorted[i+1]][j]
			if v == next {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			err := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if err < bestErr-1e-12 {
				bestErr = err
				feature = j
				threshold = (v + next) / 2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

// PredictProba accumulates every stage's update and softmaxes the scores.
func (gb *GradientBoosting) PredictProba(x []float64) []float64 {
	scores := make([]float64, gb.NumClasses)
	copy(scores, gb.BasePriors)
	for _, round := range gb.Stages {
		for k, tree := range round {
			scores[k] += gb.LearningRate * tree.predict(x)
		}
	}
	probs := make([]float64, gb.NumClasses)
	softmaxInto(scores, probs)
	return probs
}
