package ml

import (
	"math"
	"math/rand/v2"
)

const eulerGamma = 0.5772156649

type iNode struct {
	feature     int
	split       float64
	left, right *iNode
	size        int
}

// isolationForest scores points by how quickly random axis-aligned splits
// isolate them. Shorter average paths mean more anomalous points.
type isolationForest struct {
	trees      []*iNode
	sampleSize int
}

func fitIsolationForest(points [][]float64, nTrees, maxSamples int, rng *rand.Rand) *isolationForest {
	sampleSize := min(maxSamples, len(points))
	maxDepth := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))

	f := &isolationForest{trees: make([]*iNode, nTrees), sampleSize: sampleSize}
	sample := make([][]float64, sampleSize)
	for t := range f.trees {
		perm := rng.Perm(len(points))
		for i := range sample {
			sample[i] = points[perm[i]]
		}
		f.trees[t] = buildITree(sample, 0, maxDepth, rng)
	}
	return f
}

func buildITree(points [][]float64, depth, maxDepth int, rng *rand.Rand) *iNode {
	if depth >= maxDepth || len(points) <= 1 {
		return &iNode{size: len(points)}
	}

	dims := len(points[0])
	for _, feature := range rng.Perm(dims) {
		lo, hi := points[0][feature], points[0][feature]
		for _, p := range points[1:] {
			lo = math.Min(lo, p[feature])
			hi = math.Max(hi, p[feature])
		}
		if lo == hi {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, p := range points {
			if p[feature] < split {
				left = append(left, p)
			} else {
				right = append(right, p)
			}
		}
		return &iNode{
			feature: feature,
			split:   split,
			left:    buildITree(left, depth+1, maxDepth, rng),
			right:   buildITree(right, depth+1, maxDepth, rng),
		}
	}
	return &iNode{size: len(points)}
}

// score returns the anomaly score in (0, 1].
func (f *isolationForest) score(p []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(p, t, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/averagePath(f.sampleSize))
}

func pathLength(p []float64, n *iNode, depth int) float64 {
	for n.left != nil {
		if p[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePath(n.size)
}

// averagePath is the expected path length of an unsuccessful search in a
// binary search tree of n points.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
