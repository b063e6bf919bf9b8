// Command starhdl runs embedded Starlark snippets in HDL sources and
// writes the expanded documents to an output directory.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"nickandperla.net/starhdl/internal/driver"
)

var (
	cfg        driver.Config
	configPath string
	watch      bool
)

var rootCmd = &cobra.Command{
	Use:   "starhdl [flags] <input> <output-dir>",
	Short: "Run embedded Starlark snippets in HDL sources",
	Long: `starhdl scans HDL source for snippet regions and replaces them with
the text the snippets produce. Inline snippets sit between single
backticks on one line; block snippets sit between lines starting with
three backticks. All snippets in one file share a single namespace, so
a variable defined early is visible to every snippet below it.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Input = args[0]
		cfg.OutputDir = args[1]
		if configPath != "" {
			fc, err := driver.LoadFileConfig(configPath)
			if err != nil {
				return err
			}
			fc.Apply(&cfg)
		}
		if watch {
			return driver.Watch(cmd.Context(), cfg, 0)
		}
		return driver.Run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&cfg.Recursive, "recursive", "r", false, "go into the input folder recursively")
	rootCmd.Flags().StringArrayVar(&cfg.ImportDirs, "import-dir", nil, "directory searched by snippet load() calls (repeatable)")
	rootCmd.Flags().StringArrayVar(&cfg.Extensions, "ext", nil, "input file extension to process (repeatable, default .v)")
	rootCmd.Flags().IntVarP(&cfg.Jobs, "jobs", "j", 0, "documents processed in parallel (default: number of CPUs)")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "log each processed file")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "keep running and reprocess documents as they change")
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML config file (import_dirs, extensions, jobs)")
}

func main() {
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Fatalf("starhdl: %v", err)
	}
}
