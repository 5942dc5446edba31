package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/index"
	"github.com/orneryd/annlite/internal/annlog"
	"github.com/orneryd/annlite/metric"
)

var (
	recallK      int
	recallKind   string
	recallMetric string
)

var recallCmd = &cobra.Command{
	Use:   "recall <base.fvecs> <queries.fvecs>",
	Short: "measure recall@K of --kind against a brute-force baseline",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().IntVar(&recallK, "k", 10, "neighbors per query")
	recallCmd.Flags().StringVar(&recallKind, "kind", "hnsw", "index kind to measure: hnsw, hnsw_rabitq")
	recallCmd.Flags().StringVar(&recallMetric, "metric", string(metric.SquaredEuclidean), "distance metric")
}

func runRecall(cmd *cobra.Command, args []string) error {
	basePath, queryPath := args[0], args[1]

	base, dim, err := readFvecs(basePath)
	if err != nil {
		return err
	}
	queries, qDim, err := readFvecs(queryPath)
	if err != nil {
		return err
	}
	if qDim != dim {
		return fmt.Errorf("annbench recall: base dim %d != query dim %d", dim, qDim)
	}
	annlog.Infof("loaded %d base vectors and %d queries, dim=%d", len(base), len(queries), dim)

	m, err := metric.New(metric.Name(recallMetric), metric.FP32, dim, metric.Options{})
	if err != nil {
		return err
	}

	factory := index.NewFactory()
	truth, err := factory.Build(index.KindFlat, m)
	if err != nil {
		return err
	}
	candidate, err := factory.Build(index.Kind(recallKind), m)
	if err != nil {
		return err
	}

	for _, v := range base {
		encoded := encodeFP32(v)
		if _, err := truth.Add(encoded); err != nil {
			return err
		}
		if _, err := candidate.Add(encoded); err != nil {
			return err
		}
	}

	var hits, total int
	for _, q := range queries {
		encoded := encodeFP32(q)
		truthTop := truth.Search(encoded, recallK)
		candidateTop := candidate.Search(encoded, recallK)
		hits += overlap(truthTop, candidateTop)
		total += len(truthTop)
	}

	recall := 0.0
	if total > 0 {
		recall = float64(hits) / float64(total)
	}
	fmt.Printf("recall@%d (%s vs flat, n=%d, queries=%d): %.4f\n",
		recallK, recallKind, len(base), len(queries), recall)
	return nil
}

func overlap(truth, candidate []container.ScoredItem) int {
	seen := make(map[uint32]struct{}, len(truth))
	for _, t := range truth {
		seen[t.ID] = struct{}{}
	}
	n := 0
	for _, c := range candidate {
		if _, ok := seen[c.ID]; ok {
			n++
		}
	}
	return n
}
