package factors

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Forest is a bagged ensemble of regression trees.
type Forest struct {
	Trees    []*Tree
	Features []string
}

// FitForest grows cfg.Trees trees on bootstrap samples of the design. Each tree draws its
// sample from a generator seeded with (cfg.Seed, tree index), so the fitted forest does not
// depend on how trees are scheduled across workers.
func FitForest(ctx context.Context, d *Design, cfg *Config) (*Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	forest := &Forest{
		Trees:    make([]*Tree, cfg.Trees),
		Features: d.Features,
	}

	params := treeParams{
		minSamplesSplit: cfg.MinSamplesSplit,
		minSamplesLeaf:  cfg.MinSamplesLeaf,
		maxDepth:        cfg.MaxDepth,
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for t := range forest.Trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t)))

			sample := make([]int, d.Len())
			for i := range sample {
				sample[i] = rng.IntN(d.Len())
			}

			forest.Trees[t] = growTree(d.X, d.Y, sample, len(d.Features), params)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return forest, nil
}

// Predict averages the tree predictions for one sample.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}

	return sum / float64(len(f.Trees))
}

// Importances returns the mean decrease in impurity per feature: per-tree importances
// averaged over trees that split at least once, normalized to sum to 1. All zeros when no
// tree could split.
func (f *Forest) Importances() []float64 {
	out := make([]float64, len(f.Features))

	counted := 0
	for _, t := range f.Trees {
		if t.splits == 0 {
			continue
		}

		for i, v := range t.importances {
			out[i] += v
		}
		counted++
	}

	if counted == 0 {
		return out
	}

	var total float64
	for i := range out {
		out[i] /= float64(counted)
		total += out[i]
	}

	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}

	return out
}
