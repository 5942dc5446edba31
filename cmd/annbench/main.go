// Command annbench is a small developer tool for exercising an
// annlite index end to end outside of a test binary: build one from a
// .fvecs-style vector file, measure recall@K against a brute-force
// baseline, and inspect a dumped file's header. It is a bundled dev
// tool, not a CLI-wrapper product surface — nothing here is a
// supported client interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "annbench",
	Short: "annlite benchmarking and inspection tool",
	Long: `annbench builds and inspects annlite index dumps from the command
line, for local benchmarking during development:

  annbench build   - build an index from a .fvecs vector file and dump its IndexMeta header
  annbench recall  - build an index from a .fvecs file and measure its recall@K against brute-force ground truth
  annbench info    - print a dumped file's IndexMeta header`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(buildCmd, recallCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "annbench:", err)
		os.Exit(1)
	}
}
