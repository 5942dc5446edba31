package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/annlite/config"
	"github.com/orneryd/annlite/index"
	"github.com/orneryd/annlite/internal/annlog"
	"github.com/orneryd/annlite/metric"
	"github.com/orneryd/annlite/storage"
)

var (
	buildKind    string
	buildMetric  string
	buildM       int
	buildEfCon   int
	buildWorkers int
)

var buildCmd = &cobra.Command{
	Use:   "build <vectors.fvecs> <out-dump>",
	Short: "build an index from a .fvecs file and dump its IndexMeta header to disk",
	Args:  cobra.ExactArgs(2),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildKind, "kind", "hnsw", "index kind: flat, hnsw, hnsw_rabitq")
	buildCmd.Flags().StringVar(&buildMetric, "metric", string(metric.SquaredEuclidean), "distance metric")
	buildCmd.Flags().IntVar(&buildM, "m", 16, "HNSW per-node neighbor budget (validated only; index.NewFactory builds with the package defaults)")
	buildCmd.Flags().IntVar(&buildEfCon, "ef-construction", 200, "HNSW build-time beam width (validated only; index.NewFactory builds with the package defaults)")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 4, "Context worker pool size")
}

func runBuild(cmd *cobra.Command, args []string) error {
	vectorsPath, outPath := args[0], args[1]

	vectors, dim, err := readFvecs(vectorsPath)
	if err != nil {
		return err
	}
	annlog.Infof("read %d vectors of dim %d from %s", len(vectors), dim, vectorsPath)

	cfg := config.Defaults()
	cfg.Index.Kind = buildKind
	cfg.Index.Metric = buildMetric
	cfg.Index.M = buildM
	cfg.Index.EfConstruction = buildEfCon
	if err := cfg.Validate(); err != nil {
		return err
	}

	meta := storage.IndexMeta{
		Version:   1,
		Dim:       uint32(dim),
		Encoding:  metric.FP32,
		Metric:    metric.Name(cfg.Index.Metric),
		BlockSize: cfg.Storage.BlockSize,
	}

	factory := index.NewFactory()
	ctx, err := index.Open(meta, index.Kind(cfg.Index.Kind), factory, buildWorkers, cfg.Index.ScratchPoolEnabled)
	if err != nil {
		return err
	}
	defer ctx.Close()

	start := time.Now()
	for _, v := range vectors {
		if _, err := ctx.Add(encodeFP32(v)); err != nil {
			return fmt.Errorf("annbench build: adding vector: %w", err)
		}
	}
	elapsed := time.Since(start)
	annlog.Infof("built %s index over %d vectors in %s", cfg.Index.Kind, ctx.Provider.Size(), elapsed)

	store, err := storage.OpenFileStore(outPath, cfg.Storage.PoolCapacity, int(cfg.Storage.BlockSize))
	if err != nil {
		return err
	}
	defer store.Close()

	dumper := storage.NewDumper(store)
	ctx.Meta.Count = uint64(ctx.Provider.Size())
	if err := dumper.Append("index_meta", storage.EncodeIndexMeta(ctx.Meta)); err != nil {
		return err
	}
	if err := dumper.Close(); err != nil {
		return err
	}

	fmt.Printf("wrote %s: %d vectors, dim=%d, kind=%s, metric=%s\n",
		outPath, ctx.Provider.Size(), dim, cfg.Index.Kind, cfg.Index.Metric)
	return nil
}
