package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a classification tree. Leaves carry a class
// distribution; internal nodes route on Feature < Threshold.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Probs     []float64 `json:"probs,omitempty"`
}

func (n *TreeNode) isLeaf() bool { return n.Left == nil && n.Right == nil }

// DecisionTree is a CART classifier splitting on Gini impurity.
type DecisionTree struct {
	Root       *TreeNode `json:"root"`
	MaxDepth   int       `json:"max_depth"`
	MinLeaf    int       `json:"min_leaf"`
	MTry       int       `json:"mtry"` // features considered per split; 0 means all
	NumClasses int       `json:"num_classes"`
}

type treeFitter struct {
	X   [][]float64
	y   []int
	k   int
	rng *rand.Rand
	t   *DecisionTree
}

func (t *DecisionTree) fit(X [][]float64, y []int, numClasses int, indices []int, rng *rand.Rand) {
	t.NumClasses = numClasses
	if t.MinLeaf < 1 {
		t.MinLeaf = 1
	}
	f := &treeFitter{X: X, y: y, k: numClasses, rng: rng, t: t}
	t.Root = f.build(indices, 0)
}

func (f *treeFitter) leaf(indices []int) *TreeNode {
	probs := make([]float64, f.k)
	for _, i := range indices {
		probs[f.y[i]]++
	}
	for j := range probs {
		probs[j] /= float64(len(indices))
	}
	return &TreeNode{Probs: probs}
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g
}

// bestSplit scans sorted feature values for the threshold minimizing the
// weighted child impurity.
func (f *treeFitter) bestSplit(indices []int) (feature int, threshold float64, ok bool) {
	n := len(indices)
	dims := len(f.X[0])

	parentCounts := make([]float64, f.k)
	for _, i := range indices {
		parentCounts[f.y[i]]++
	}
	bestImpurity := gini(parentCounts, float64(n))
	if bestImpurity == 0 {
		return 0, 0, false
	}

	candidates := make([]int, dims)
	for j := range candidates {
		candidates[j] = j
	}
	if f.t.MTry > 0 && f.t.MTry < dims {
		f.rng.Shuffle(dims, func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		candidates = candidates[:f.t.MTry]
	}

	sorted := make([]int, n)
	left := make([]float64, f.k)
	right := make([]float64, f.k)
	found := false

	for _, j := range candidates {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool { return f.X[sorted[a]][j] < f.X[sorted[b]][j] })

		for c := range left {
			left[c] = 0
		}
		copy(right, parentCounts)

		for i := 0; i < n-1; i++ {
			cls := f.y[sorted[i]]
			left[cls]++
			right[cls]--

			nl := i + 1
			nr := n - nl
			if nl < f.t.MinLeaf || nr < f.t.MinLeaf {
				continue
			}
			v, next := f.X[sorted[i]][j], f.X[sorted[i+1]][j]
			if v == next {
				continue
			}

			impurity := (float64(nl)*gini(left, float64(nl)) + float64(nr)*gini(right, float64(nr))) / float64(n)
			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				feature = j
				threshold = (v + next) / 2
				found = true
			}
		}
	}

	return feature, threshold, found
}

func (f *treeFitter) build(indices []int, depth int) *TreeNode {
	if depth >= f.t.MaxDepth || len(indices) < 2*f.t.MinLeaf {
		return f.leaf(indices)
	}

	feature, threshold, ok := f.bestSplit(indices)
	if !ok {
		return f.leaf(indices)
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if f.X[i][feature] < threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return f.leaf(indices)
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      f.build(leftIdx, depth+1),
		Right:     f.build(rightIdx, depth+1),
	}
}

// PredictProba walks the tree to a leaf distribution.
func (t *DecisionTree) PredictProba(x []float64) []float64 {
	node := t.Root
	for !node.isLeaf() {
		if x[node.Feature] < node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Probs
}

// RandomForest is a bagged ensemble of decision trees, each fit on a
// bootstrap resample with sqrt(d) features per split.
type RandomForest struct {
	Trees      []*DecisionTree `json:"trees"`
	NumTrees   int             `json:"num_trees"`
	MaxDepth   int             `json:"max_depth"`
	MinLeaf    int             `json:"min_leaf"`
	Seed       int64           `json:"seed"`
	NumClasses int             `json:"num_classes"`
}

// NewRandomForest configures a forest; Fit does the work.
func NewRandomForest(numTrees, maxDepth int, seed int64) *RandomForest {
	return &RandomForest{NumTrees: numTrees, MaxDepth: maxDepth, MinLeaf: 1, Seed: seed}
}

// Fit trains every tree on its own bootstrap sample.
func (rf *RandomForest) Fit(X [][]float64, y []int, numClasses int) error {
	rf.NumClasses = numClasses
	rng := rand.New(rand.NewSource(rf.Seed))
	mtry := int(math.Ceil(math.Sqrt(float64(len(X[0])))))

	rf.Trees = make([]*DecisionTree, rf.NumTrees)
	n := len(X)
	for t := 0; t < rf.NumTrees; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}
		tree := &DecisionTree{MaxDepth: rf.MaxDepth, MinLeaf: rf.MinLeaf, MTry: mtry}
		tree.fit(X, y, numClasses, indices, rng)
		rf.Trees[t] = tree
	}
	return nil
}

// PredictProba averages leaf distributions across all trees.
func (rf *RandomForest) PredictProba(x []float64) []float64 {
	probs := make([]float64, rf.NumClasses)
	for _, tree := range rf.Trees {
		for j, p := range tree.PredictProba(x) {
			probs[j] += p
		}
	}
	for j := range probs {
		probs[j] /= float64(len(rf.Trees))
	}
	return probs
}
