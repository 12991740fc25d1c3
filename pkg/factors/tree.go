package factors

import (
	"sort"
)

// node is a regression tree node. Leaves have feature -1.
type node struct {
	feature   int
	threshold float64
	value     float64
	left      *node
	right     *node
}

// Tree is a CART regression tree grown on squared error.
type Tree struct {
	root *node
	// importances holds the impurity decrease per feature, normalized to sum to 1 when the
	// tree has at least one split
	importances []float64
	splits      int
}

type treeParams struct {
	minSamplesSplit int
	minSamplesLeaf  int
	maxDepth        int
}

type grower struct {
	x        [][]float64
	y        []float64
	params   treeParams
	decrease []float64
	splits   int
}

// growTree fits a tree on the samples listed in idx (repeats allowed).
func growTree(x [][]float64, y []float64, idx []int, features int, params treeParams) *Tree {
	g := &grower{
		x:        x,
		y:        y,
		params:   params,
		decrease: make([]float64, features),
	}

	t := &Tree{
		root:        g.grow(idx, 0),
		importances: g.decrease,
		splits:      g.splits,
	}

	var total float64
	for _, v := range t.importances {
		total += v
	}

	if total > 0 {
		for i := range t.importances {
			t.importances[i] /= total
		}
	}

	return t
}

// Predict returns the leaf mean for a sample.
func (t *Tree) Predict(x []float64) float64 {
	n := t.root
	for n.feature >= 0 {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}

	return n.value
}

func (g *grower) grow(idx []int, depth int) *node {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += g.y[i]
		sumSq += g.y[i] * g.y[i]
	}

	n := float64(len(idx))
	leaf := &node{feature: -1, value: sum / n}

	// total squared error around the mean
	sse := sumSq - sum*sum/n
	if sse <= 1e-12*n || len(idx) < g.params.minSamplesSplit ||
		(g.params.maxDepth > 0 && depth >= g.params.maxDepth) {
		return leaf
	}

	feature, threshold, gain := g.bestSplit(idx, sse)
	if feature < 0 {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	g.decrease[feature] += gain
	g.splits++

	return &node{
		feature:   feature,
		threshold: threshold,
		value:     leaf.value,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

// bestSplit scans every feature for the threshold with the largest squared-error
// reduction. Thresholds sit halfway between consecutive distinct values. Ties keep the
// lowest feature index and threshold.
func (g *grower) bestSplit(idx []int, sse float64) (int, float64, float64) {
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	order := make([]int, len(idx))
	minLeaf := g.params.minSamplesLeaf

	for f := range g.decrease {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return g.x[order[a]][f] < g.x[order[b]][f] })

		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += g.y[i]
			totalSq += g.y[i] * g.y[i]
		}

		var leftSum, leftSq float64
		for k := 0; k < len(order)-1; k++ {
			yi := g.y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			nLeft := k + 1
			nRight := len(order) - nLeft

			cur, next := g.x[order[k]][f], g.x[order[k+1]][f]
			if cur == next || nLeft < minLeaf || nRight < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq

			childSSE := (leftSq - leftSum*leftSum/float64(nLeft)) +
				(rightSq - rightSum*rightSum/float64(nRight))

			gain := sse - childSSE
			if gain > bestGain+1e-12 {
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				bestGain = gain
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}
