package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/terrapix/terrapix-client-go/client"
)

func newDetectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detector",
		Short: "Manage detectors",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a detector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			detectionType, _ := cmd.Flags().GetString("type")
			outputType, _ := cmd.Flags().GetString("output")
			steps, _ := cmd.Flags().GetInt("steps")
			id, err := clt.CreateDetector(cmd.Context(), name, client.DetectorConfiguration{
				DetectionType: client.DetectionType(detectionType),
				OutputType:    client.OutputType(outputType),
				TrainingSteps: steps,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	create.Flags().String("name", "", "detector name")
	create.Flags().String("type", string(client.DetectionCount), "detection type (count, segmentation)")
	create.Flags().String("output", string(client.OutputPolygon), "output type (polygon, bbox)")
	create.Flags().Int("steps", client.MinTrainingSteps, "training steps")

	list := &cobra.Command{
		Use:   "list",
		Short: "List detectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			detectors, err := clt.Detectors(cmd.Context())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Name", "Type", "Output", "Steps"})
			for _, d := range detectors {
				t.AppendRow(table.Row{d.ID, d.Name, d.Configuration.DetectionType, d.Configuration.OutputType, d.Configuration.TrainingSteps})
			}
			t.Render()
			return nil
		},
	}

	annotate := &cobra.Command{
		Use:   "annotate <detector-id> <raster-id> <geojson-file>",
		Short: "Attach annotations to a (detector, raster) pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			b, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}
			var geometries interface{}
			if err := json.Unmarshal(b, &geometries); err != nil {
				return fmt.Errorf("%s: %w", args[2], err)
			}
			clt, err := newClient()
			if err != nil {
				return err
			}
			return clt.SetAnnotations(cmd.Context(), args[0], args[1], client.AnnotationType(typ), geometries)
		},
	}
	annotate.Flags().String("type", string(client.AnnotationOutline), "annotation type (outline, training_area, testing_area, validation_area)")

	train := &cobra.Command{
		Use:   "train <detector-id>",
		Short: "Train a detector and wait for completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			return clt.TrainDetector(cmd.Context(), args[0])
		},
	}

	run := &cobra.Command{
		Use:   "run <detector-id> <raster-id>",
		Short: "Run a detector on a raster and print or save the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			op, err := clt.RunDetector(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if output, _ := cmd.Flags().GetString("output"); output != "" {
				return clt.DownloadResultTo(cmd.Context(), op.ID, output)
			}
			return clt.WriteResultTo(cmd.Context(), op.ID, cmd.OutOrStdout())
		},
	}
	run.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")

	cmd.AddCommand(create, list, annotate, train, run)
	return cmd
}
