package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/internal/transfer"
	"github.com/transfermesh/dtk/pkg/geom"
)

var (
	applySourcePath  string
	applyTargetPath  string
	applySourceField string
	applyTargetField string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Build a transfer plan and apply it, printing the interpolated target values",
	RunE:  runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applySourcePath, "source", "", "Source mesh description file (required)")
	applyCmd.Flags().StringVar(&applyTargetPath, "target", "", "Target mesh description file (required)")
	applyCmd.Flags().StringVar(&applySourceField, "source-field", "", "Source field name to transfer (required)")
	applyCmd.Flags().StringVar(&applyTargetField, "target-field", "", "Target field name to write")
	applyCmd.MarkFlagRequired("source")
	applyCmd.MarkFlagRequired("target")
	applyCmd.MarkFlagRequired("source-field")
}

func runApply(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	op, err := buildOperator(ctx, cfg, applySourcePath, applyTargetPath, applySourceField, applyTargetField)
	if err != nil {
		return err
	}
	defer op.Destroy()

	buf := transfer.NewMapBuffer()
	if err := op.Apply(ctx, buf); err != nil {
		return fmt.Errorf("applying plan %s: %w", op.PlanID(), err)
	}

	targetMesh, err := mesh.LoadDescription(applyTargetPath)
	if err != nil {
		return err
	}

	log.Info("applied plan %s", op.PlanID())

	for _, id := range targetMesh.LocalEntities(geom.DimVertex) {
		value, ok := buf.Get(id)
		if !ok {
			fmt.Printf("entity %d: unlocated\n", id)
			continue
		}
		fmt.Printf("entity %d: %v\n", id, value.Vector)
	}

	return nil
}
