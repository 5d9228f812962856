package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iris-ai/irisd/pkg/config"
	"github.com/iris-ai/irisd/pkg/models"
	"github.com/iris-ai/irisd/pkg/server"
	"github.com/iris-ai/irisd/pkg/store"
)

func newPredictionsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "predictions",
		Short: "List stored predictions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			st, err := store.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			preds, err := st.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(preds) == 0 {
				fmt.Fprintln(out, "No predictions found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSEPAL LENGTH\tSEPAL WIDTH\tPETAL LENGTH\tPETAL WIDTH\tCLASS\tCREATED")
			for _, p := range preds {
				created := "-"
				if !p.CreatedAt.IsZero() {
					created = p.CreatedAt.UTC().Format(models.TimestampLayout)
				}
				fmt.Fprintf(w, "%d\t%g\t%g\t%g\t%g\t%d\t%s\n",
					p.ID, p.Features.SepalLength, p.Features.SepalWidth, p.Features.PetalLength, p.Features.PetalWidth,
					p.PredictedClass, created)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "irisd.yaml", "path to config file")
	cmd.Flags().IntVar(&limit, "limit", server.DefaultLimit, "maximum number of predictions to show")
	cmd.Flags().IntVar(&offset, "offset", server.DefaultOffset, "number of most recent predictions to skip")
	return cmd
}
