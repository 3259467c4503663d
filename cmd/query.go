package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retailradar/storesync/internal/retrieval"
)

func newQueryCmd() *cobra.Command {
	var (
		category  string
		source    string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the knowledge store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			engine, err := app.retrievalEngine()
			if err != nil {
				return err
			}
			params := retrieval.Params{
				Threshold:       app.cfg.Retrieval.Threshold,
				K:               app.cfg.Retrieval.K,
				SourceBonus:     app.cfg.Retrieval.SourceBonus,
				ImageBonus:      app.cfg.Retrieval.ImageBonus,
				Category:        category,
				PreferredSource: source,
			}
			if threshold > 0 {
				params.Threshold = threshold
			}
			results, err := engine.Query(cmd.Context(), strings.Join(args, " "), params)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%d. [%.3f] %s\n", i+1, r.Adjusted, strings.TrimSpace(r.Chunk.Text))
				if src := r.Chunk.Source(); src != "" {
					fmt.Printf("   source: %s\n", src)
				}
				if img := r.Chunk.ImageRef(); img != "" {
					fmt.Printf("   image:  %s\n", img)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restrict to one product category")
	cmd.Flags().StringVar(&source, "source", "", "boost results from this store")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "override the relevance cutoff")
	return cmd
}
