package classifier

import "github.com/archaeoscan/archaeoscan/internal/types"

// ClassMetrics is precision/recall for one material on the held-out split.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

// Evaluation is the diagnostic report from the held-out split. It never
// gates persistence; a low-accuracy model still ships.
type Evaluation struct {
	Accuracy  float64                         `json:"accuracy"`
	PerClass  map[types.Material]ClassMetrics `json:"per_class"`
	TestSize  int                             `json:"test_size"`
	TrainSize int                             `json:"train_size"`
}

// Evaluate computes accuracy and per-class precision/recall from predicted
// vs true class indices.
func Evaluate(yTrue, yPred []int, labels []types.Material) Evaluation {
	correct := 0
	truePos := make([]int, len(labels))
	predCount := make([]int, len(labels))
	trueCount := make([]int, len(labels))

	for i := range yTrue {
		trueCount[yTrue[i]]++
		predCount[yPred[i]]++
		if yTrue[i] == yPred[i] {
			correct++
			truePos[yTrue[i]]++
		}
	}

	perClass := make(map[types.Material]ClassMetrics, len(labels))
	for k, label := range labels {
		m := ClassMetrics{Support: trueCount[k]}
		if predCount[k] > 0 {
			m.Precision = float64(truePos[k]) / float64(predCount[k])
		}
		if trueCount[k] > 0 {
			m.Recall = float64(truePos[k]) / float64(trueCount[k])
		}
		perClass[label] = m
	}

	accuracy := 0.0
	if len(yTrue) > 0 {
		accuracy = float64(correct) / float64(len(yTrue))
	}

	return Evaluation{
		Accuracy: accuracy,
		PerClass: perClass,
		TestSize: len(yTrue),
	}
}
