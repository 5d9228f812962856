package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iris-ai/irisd/pkg/config"
	"github.com/iris-ai/irisd/pkg/models"
	"github.com/iris-ai/irisd/pkg/predictor"
)

func newClassifyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "classify SEPAL_LENGTH SEPAL_WIDTH PETAL_LENGTH PETAL_WIDTH",
		Short: "Classify one measurement with the configured model",
		Args:  cobra.ExactArgs(models.NumFeatures),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v [models.NumFeatures]float64
			for i, a := range args {
				x, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("%s: %q is not a number", models.FeatureNames[i], a)
				}
				v[i] = x
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			m, err := predictor.Load(cmd.Context(), cfg.Model.Path, predictor.WithS3Config(cfg.Model.S3))
			if err != nil {
				return err
			}

			label, err := m.Classify(models.NewFeatures(v))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if name := m.ClassName(label); name != "" {
				fmt.Fprintf(out, "%d\t%s\n", label, name)
			} else {
				fmt.Fprintf(out, "%d\n", label)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "irisd.yaml", "path to config file")
	return cmd
}
