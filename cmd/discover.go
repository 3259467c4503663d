package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <location> <product-type>",
		Short: "Ask the reasoning service for store sites worth syncing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			extractor, err := app.extractor()
			if err != nil {
				return err
			}
			urls, err := extractor.DiscoverStores(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("discover stores: %w", err)
			}
			if len(urls) == 0 {
				fmt.Println("no stores found")
				return nil
			}
			for _, u := range urls {
				fmt.Println(u)
			}
			return nil
		},
	}
}
