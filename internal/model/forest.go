package model

import (
	"math"
	"math/rand/v2"
	"slices"
)

// Node is one node of a flattened decision tree. Leaves have Feature -1 and
// carry the fraction of class-1 training samples that reached them.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a binary classification tree. Samples with x[Feature] <= Threshold
// go left.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows one CART tree with Gini impurity over a bootstrap sample.
type treeBuilder struct {
	x        [][]float64
	y        []int
	maxDepth int
	mtry     int
	rng      *rand.Rand
	nodes    []Node
}

func growTree(x [][]float64, y []int, maxDepth int, rng *rand.Rand) Tree {
	p := len(x[0])
	b := &treeBuilder{
		x:        x,
		y:        y,
		maxDepth: maxDepth,
		mtry:     max(1, int(math.Sqrt(float64(p)))),
		rng:      rng,
	}

	sample := make([]int, len(x))
	for i := range sample {
		sample[i] = rng.IntN(len(x))
	}
	b.build(sample, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: float64(pos) / float64(len(idx))})

	if depth >= b.maxDepth || pos == 0 || pos == len(idx) || len(idx) < 2 {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: b.nodes[self].Value}
	return self
}

// bestSplit draws features in random order and evaluates them until mtry
// non-constant features have been tried. It returns false when no split
// lowers the weighted Gini impurity.
func (b *treeBuilder) bestSplit(idx []int, pos int) (int, float64, bool) {
	n := float64(len(idx))
	parent := gini(float64(pos), n)
	bestScore := parent
	bestFeature, bestThreshold := -1, 0.0

	sorted := slices.Clone(idx)
	tried := 0
	for _, f := range b.rng.Perm(len(b.x[0])) {
		if tried >= b.mtry {
			break
		}
		slices.SortFunc(sorted, func(a, c int) int {
			switch {
			case b.x[a][f] < b.x[c][f]:
				return -1
			case b.x[a][f] > b.x[c][f]:
				return 1
			}
			return 0
		})
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		tried++

		leftPos := 0.0
		for k := 0; k < len(sorted)-1; k++ {
			leftPos += float64(b.y[sorted[k]])
			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			ln := float64(k + 1)
			rn := n - ln
			score := (ln*gini(leftPos, ln) + rn*gini(float64(pos)-leftPos, rn)) / n
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}
