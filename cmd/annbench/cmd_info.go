package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orneryd/annlite/storage"
)

var infoCmd = &cobra.Command{
	Use:   "info <dump>",
	Short: "print a dumped index's IndexMeta header",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	store, err := storage.OpenFileStore(args[0], 1<<20, 4096)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := storage.Open(store)
	if err != nil {
		return fmt.Errorf("annbench info: %w", err)
	}
	defer s.Close()

	raw, err := s.Get("index_meta")
	if err != nil {
		return fmt.Errorf("annbench info: %w", err)
	}
	meta, err := storage.DecodeIndexMeta(raw)
	if err != nil {
		return err
	}

	fmt.Printf("version:    %d\n", meta.Version)
	fmt.Printf("dim:        %d\n", meta.Dim)
	fmt.Printf("encoding:   %s\n", meta.Encoding)
	fmt.Printf("metric:     %s\n", meta.Metric)
	fmt.Printf("count:      %d\n", meta.Count)
	fmt.Printf("block_size: %d\n", meta.BlockSize)
	return nil
}
