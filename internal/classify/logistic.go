package classify

import "math"

const (
	trainEpochs       = 500
	trainLearningRate = 1.0
	trainRegularizer  = 1e-3
)

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// trainLogistic fits a binary logistic regression with balanced class weights
// by full-batch gradient descent. y holds 0/1 targets.
func trainLogistic(features []map[int]float64, y []int, dim int) (weights []float64, bias float64) {
	n := len(features)
	weights = make([]float64, dim)
	if n == 0 {
		return weights, 0
	}

	// Balanced class weighting: n / (2 * count(class)).
	var positives int
	for _, target := range y {
		positives += target
	}
	negatives := n - positives
	classWeight := [2]float64{1, 1}
	if positives > 0 && negatives > 0 {
		classWeight[0] = float64(n) / (2 * float64(negatives))
		classWeight[1] = float64(n) / (2 * float64(positives))
	}

	grad := make([]float64, dim)
	for epoch := 0; epoch < trainEpochs; epoch++ {
		for i := range grad {
			grad[i] = trainRegularizer * weights[i]
		}
		var gradBias float64

		for i, vec := range features {
			z := bias
			for idx, val := range vec {
				z += weights[idx] * val
			}
			residual := classWeight[y[i]] * (sigmoid(z) - float64(y[i])) / float64(n)
			for idx, val := range vec {
				grad[idx] += residual * val
			}
			gradBias += residual
		}

		for i := range weights {
			weights[i] -= trainLearningRate * grad[i]
		}
		bias -= trainLearningRate * gradBias
	}
	return weights, bias
}
