package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the movie index if it is empty",
	Long: `Reads and embeds the catalog when the store holds no chunks.
With --rebuild the catalog is re-embedded and the stored index replaced.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "replace the stored index even if populated")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if indexRebuild {
		err = app.index.Reindex(ctx)
	} else {
		err = app.index.EnsureReady(ctx)
	}
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	state, n, err := app.index.State(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Index %s: %d chunks\n", state, n)
	return nil
}
