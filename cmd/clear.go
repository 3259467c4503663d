package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retailradar/storesync/internal/knowledge"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every chunk from the knowledge store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			store, err := app.knowledgeStore()
			if err != nil {
				return err
			}
			n, err := store.DeleteAll(cmd.Context())
			if errors.Is(err, knowledge.ErrDeleteUnsupported) {
				return fmt.Errorf("knowledge store cannot be cleared: %w", err)
			}
			if err != nil {
				return fmt.Errorf("clear knowledge store: %w", err)
			}
			if n > 0 {
				fmt.Printf("deleted %d chunks\n", n)
			} else {
				fmt.Println("knowledge store cleared")
			}
			return nil
		},
	}
}
